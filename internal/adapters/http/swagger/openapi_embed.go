package swagger

import _ "embed"

// OpenAPI is the gaze aggregator's OpenAPI 3 document.
//
//go:embed openapi.yaml
var OpenAPI []byte
