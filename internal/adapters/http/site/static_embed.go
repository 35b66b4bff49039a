package site

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var embedded embed.FS

// FS exposes the landing page assets rooted at static/.
func FS() http.FileSystem {
	root, err := fs.Sub(embedded, "static")
	if err != nil {
		panic("site: embedded static dir missing: " + err.Error())
	}
	return http.FS(root)
}
