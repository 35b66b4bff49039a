package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/gazecluster/internal/adapters/http/api"
	"github.com/okian/gazecluster/internal/config"
	"github.com/okian/gazecluster/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	svc := newService(config.New(ctx), logger.Get())
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	srv := httptest.NewServer(newHandler(ctx, svc))
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestMainApplicationRoutes(t *testing.T) {
	convey.Convey("Given the assembled HTTP handler", t, func() {
		srv := startTestServer(t)

		convey.Convey("When the health endpoint is requested", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then it reports OK with a request id", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(resp.Header.Get(api.HeaderRequestID), convey.ShouldNotBeEmpty)
				convey.So(resp.Header.Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "*")
			})
		})

		convey.Convey("When the landing page and docs are requested", func() {
			root, err := http.Get(srv.URL + "/")
			convey.So(err, convey.ShouldBeNil)
			defer root.Body.Close()
			docs, err := http.Get(srv.URL + "/api-docs")
			convey.So(err, convey.ShouldBeNil)
			defer docs.Body.Close()

			convey.Convey("Then both are served", func() {
				convey.So(root.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(docs.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When a preflight request arrives", func() {
			req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/gazeData/teacher", nil)
			resp, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then it is answered without a body", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNoContent)
			})
		})
	})
}

func TestMainApplicationFlow(t *testing.T) {
	convey.Convey("Given two students on the legacy endpoint", t, func() {
		srv := startTestServer(t)
		url := srv.URL + "/gazeData/teacher"

		first := postJSON(t, url, `{"role":0,"fixations":[{"x_per":0.1,"y_per":0.1},{"x_per":0.12,"y_per":0.09}],"saccades":[]}`)
		second := postJSON(t, url, `{"role":1,"fixations":[{"x_per":0.8,"y_per":0.8},{"x_per":0.82,"y_per":0.79}],"saccades":[{"d":1}]}`)

		convey.Convey("When both submissions are acknowledged", func() {
			var ack struct {
				Result string `json:"result"`
			}
			convey.So(first.StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(second.StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(json.NewDecoder(first.Body).Decode(&ack), convey.ShouldBeNil)
			convey.So(ack.Result, convey.ShouldStartWith, "Fixations and saccades are logged @ ")

			convey.Convey("Then the teacher sees both groups clustered", func() {
				resp := postJSON(t, url, `{"role":2}`)
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

				var out struct {
					Fixations []json.RawMessage `json:"fixations"`
					Saccades  []json.RawMessage `json:"saccades"`
					Result    []int             `json:"result"`
					K         int               `json:"k"`
				}
				convey.So(json.NewDecoder(resp.Body).Decode(&out), convey.ShouldBeNil)
				convey.So(len(out.Fixations), convey.ShouldEqual, 4)
				convey.So(len(out.Saccades), convey.ShouldEqual, 1)
				convey.So(out.K, convey.ShouldEqual, 2)
				convey.So(out.Result, convey.ShouldResemble, []int{0, 0, 1, 1})
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a runnable configuration", t, func() {
		cfg := config.New(context.Background())
		cfg.ShutdownTimeout = time.Second

		convey.Convey("When the context is cancelled after start", func() {
			cfg.Addr = "127.0.0.1:0"
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run returns cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return after cancel")
				}
			})
		})

		convey.Convey("When the listen address is invalid", func() {
			cfg.Addr = "127.0.0.1:-1"
			err := run(context.Background(), cfg)

			convey.Convey("Then the listen error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "http server")
			})
		})
	})
}

func TestUpdateMetrics(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(config.New(ctx), logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("Then the metric updaters do not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}
