package geo_test

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/okian/weatheroracle/internal/domain/geo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given decimal coordinate strings", t, func() {
		Convey("When they are well formed", func() {
			s, err := geo.Parse("52.5", "13.4")

			Convey("Then they should scale to tenths", func() {
				So(err, ShouldBeNil)
				So(s, ShouldResemble, geo.Scaled{Lat: 525, Long: 134})
			})
		})

		Convey("When they carry extra precision", func() {
			s, err := geo.Parse("52.46", "-13.45")

			Convey("Then they should round half away from zero", func() {
				So(err, ShouldBeNil)
				So(s, ShouldResemble, geo.Scaled{Lat: 525, Long: -135})
			})
		})

		Convey("When latitude is outside the usual domain", func() {
			s, err := geo.Parse("91.0", "0.0")

			Convey("Then it should still be accepted", func() {
				So(err, ShouldBeNil)
				So(s.Lat, ShouldEqual, 910)
			})
		})

		Convey("When a value is not a decimal", func() {
			_, err := geo.Parse("abc", "0.0")
			So(errors.Is(err, geo.ErrNotDecimal), ShouldBeTrue)

			_, err = geo.Parse("0.0", "")
			So(errors.Is(err, geo.ErrNotDecimal), ShouldBeTrue)
		})

		Convey("When a value does not fit 16 bits once scaled", func() {
			_, err := geo.Parse("3276.8", "0")
			So(errors.Is(err, geo.ErrOutOfRange), ShouldBeTrue)

			s, err := geo.Parse("-3276.8", "3276.7")
			So(err, ShouldBeNil)
			So(s, ShouldResemble, geo.Scaled{Lat: math.MinInt16, Long: math.MaxInt16})
		})
	})
}

func TestUnscale(t *testing.T) {
	Convey("Given scaled coordinates", t, func() {
		Convey("Then they should render as the shortest decimal", func() {
			So(geo.Scaled{Lat: 525, Long: 134}.Unscale(), ShouldResemble, geo.Coordinates{Lat: "52.5", Long: "13.4"})
			So(geo.Scaled{Lat: 130, Long: -5}.Unscale(), ShouldResemble, geo.Coordinates{Lat: "13", Long: "-0.5"})
			So(geo.Scaled{}.Unscale(), ShouldResemble, geo.Coordinates{Lat: "0", Long: "0"})
		})

		Convey("When sweeping the valid domain", func() {
			worst := 0.0
			for x := -180.0; x <= 180.0; x += 0.037 {
				in := strconv.FormatFloat(x, 'f', -1, 64)
				s, err := geo.Parse(in, in)
				So(err, ShouldBeNil)

				back, err := strconv.ParseFloat(s.Unscale().Lat, 64)
				So(err, ShouldBeNil)
				worst = math.Max(worst, math.Abs(back-x))
			}

			Convey("Then the round trip should stay within half a tenth", func() {
				So(worst, ShouldBeLessThanOrEqualTo, 0.05+1e-9)
			})
		})
	})
}

func TestScaledEncoding(t *testing.T) {
	Convey("Given an encoded scaled pair", t, func() {
		s := geo.Scaled{Lat: -905, Long: 1799}
		raw := s.Encode()

		Convey("Then decoding should recover it", func() {
			back, err := geo.DecodeScaled(raw)
			So(err, ShouldBeNil)
			So(back, ShouldResemble, s)
		})

		Convey("When the bytes are short", func() {
			_, err := geo.DecodeScaled(raw[:2])
			So(errors.Is(err, geo.ErrMalformed), ShouldBeTrue)
		})
	})
}
