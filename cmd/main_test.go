package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/weatheroracle/internal/adapters/http/api"
	app "github.com/okian/weatheroracle/internal/app"
	"github.com/okian/weatheroracle/internal/config"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When a .env file sets configuration", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, ".env")
			convey.So(os.WriteFile(path, []byte("WORACLE_ADDR=:8181\nWORACLE_TX_POOL_SIZE=16\n"), 0o600), convey.ShouldBeNil)
			defer func() {
				_ = os.Unsetenv("WORACLE_ADDR")
				_ = os.Unsetenv("WORACLE_TX_POOL_SIZE")
			}()

			convey.So(loadDotEnv(path), convey.ShouldBeNil)

			convey.Convey("Then configuration picks it up", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8181")
				convey.So(cfg.TxPoolSize, convey.ShouldEqual, 16)
			})
		})

		convey.Convey("When the environment already sets a variable", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, ".env")
			convey.So(os.WriteFile(path, []byte("WORACLE_ADDR=:8181\n"), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("WORACLE_ADDR", ":9000")
			defer func() { _ = os.Unsetenv("WORACLE_ADDR") }()

			convey.So(loadDotEnv(path), convey.ShouldBeNil)

			convey.Convey("Then the environment wins", func() {
				convey.So(os.Getenv("WORACLE_ADDR"), convey.ShouldEqual, ":9000")
			})
		})

		convey.Convey("When there is no .env file", func() {
			convey.So(loadDotEnv(filepath.Join(t.TempDir(), ".env")), convey.ShouldBeNil)
		})
	})
}

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given the node's HTTP server", t, func() {
		ctx := context.Background()
		svc := app.New(app.WithoutSchedule())
		srv := newHTTPServer(":0", api.NewServer(svc, svc).Router(ctx))

		convey.Convey("Then timeouts are set", func() {
			convey.So(srv.Addr, convey.ShouldEqual, ":0")
			convey.So(srv.ReadTimeout, convey.ShouldEqual, readTimeout)
			convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})

		convey.Convey("Then the health route is served", func() {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then an update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop returns once the context is done", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			<-done
		})
	})
}
