package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/weatheroracle/internal/adapters/http/api"
	service "github.com/okian/weatheroracle/internal/app"
	"github.com/okian/weatheroracle/internal/ledger/weather"
)

func call(h http.Handler, method, path, body string, headers map[string]string) (int, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a node served over HTTP", t, func() {
		up := newUpstream()
		defer up.Close()

		ctx := context.Background()
		svc := service.New(service.WithConfig(up.config()), service.WithoutSchedule())
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		h := api.NewServer(svc, svc).Router(ctx)

		Convey("When an order is posted and two blocks are authored", func() {
			code, ack := call(h, http.MethodPost, "/orders", `{"lat":"52.5","long":"13.4"}`,
				map[string]string{api.HeaderAccount: "alice", api.HeaderIdempotencyKey: "o-1"})
			So(code, ShouldEqual, http.StatusAccepted)
			So(ack["status"], ShouldEqual, "accepted")

			code, _ = call(h, http.MethodPost, "/orders", `{"lat":"52.5","long":"13.4"}`,
				map[string]string{api.HeaderAccount: "alice", api.HeaderIdempotencyKey: "o-1"})
			So(code, ShouldEqual, http.StatusOK)

			first, err := svc.AuthorSlot(ctx)
			So(err, ShouldBeNil)

			Convey("Then the first block carries the order after the inherent", func() {
				So(len(first.Extrinsics), ShouldEqual, 2)
				So(first.Extrinsics[1].Success, ShouldBeTrue)
				So(up.lastQuery(), ShouldEqual, "48.1,11.6")

				code, order := call(h, http.MethodGet, "/order", "", nil)
				So(code, ShouldEqual, http.StatusOK)
				So(order["lat"], ShouldEqual, "52.5")
				So(order["long"], ShouldEqual, "13.4")
			})

			Convey("Then the second block reads the weather at the ordered location", func() {
				second, err := svc.AuthorSlot(ctx)
				So(err, ShouldBeNil)
				So(second.Header.ParentHash, ShouldEqual, first.Hash)
				So(up.lastQuery(), ShouldEqual, "52.5,13.4")

				var msgs []string
				for _, r := range second.Events {
					if d, ok := r.Event.Data.(weather.WeatherDataSet); ok {
						msgs = append(msgs, d.Message)
					}
				}
				So(msgs, ShouldResemble, []string{"18.6 °C"})

				code, _ := call(h, http.MethodGet, "/order", "", nil)
				So(code, ShouldEqual, http.StatusNotFound)

				code, reading := call(h, http.MethodGet, "/weather", "", nil)
				So(code, ShouldEqual, http.StatusOK)
				So(reading["per_thousand"], ShouldEqual, float64(186))

				code, latest := call(h, http.MethodGet, "/blocks/latest", "", nil)
				So(code, ShouldEqual, http.StatusOK)
				So(latest["header"].(map[string]interface{})["number"], ShouldEqual, float64(2))

				code, stats := call(h, http.MethodGet, "/stats", "", nil)
				So(code, ShouldEqual, http.StatusOK)
				So(stats["best_block"], ShouldEqual, float64(2))
				So(stats["retained_blocks"], ShouldEqual, float64(2))
			})
		})

		Convey("When the pool is full", func() {
			for i := 0; i < 4; i++ {
				code, _ := call(h, http.MethodPost, "/orders", `{"lat":"1","long":"2"}`,
					map[string]string{api.HeaderAccount: "alice"})
				So(code, ShouldEqual, http.StatusAccepted)
			}
			code, body := call(h, http.MethodPost, "/orders", `{"lat":"1","long":"2"}`,
				map[string]string{api.HeaderAccount: "alice"})

			Convey("Then the node pushes back", func() {
				So(code, ShouldEqual, http.StatusTooManyRequests)
				So(body["code"], ShouldEqual, "backpressure")
			})

			Convey("Then only the first order lands and the rest fail on-chain", func() {
				b, err := svc.AuthorSlot(ctx)
				So(err, ShouldBeNil)
				So(len(b.Extrinsics), ShouldEqual, 5)
				So(b.Extrinsics[1].Success, ShouldBeTrue)
				for _, a := range b.Extrinsics[2:] {
					So(a.Success, ShouldBeFalse)
					So(a.Code, ShouldEqual, "weather.WeatherOrderAlreadySet")
				}
			})
		})
	})
}
