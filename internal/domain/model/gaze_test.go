package model_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	model "github.com/okian/gazecluster/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestFixation(t *testing.T) {
	convey.Convey("Given a fixation payload with auxiliary fields", t, func() {
		payload := []byte(`{"x_per":0.25,"y_per":0.75,"duration":180,"label":"a"}`)

		convey.Convey("When decoding it", func() {
			var f model.Fixation
			err := json.Unmarshal(payload, &f)

			convey.Convey("Then the coordinates are parsed and the raw object kept", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(f.XPercent, convey.ShouldEqual, 0.25)
				convey.So(f.YPercent, convey.ShouldEqual, 0.75)
				convey.So(f.Validate(), convey.ShouldBeNil)

				out, err := json.Marshal(f)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(out), convey.ShouldEqual, string(payload))
			})
		})

		convey.Convey("When a coordinate is missing", func() {
			var f model.Fixation
			err := json.Unmarshal([]byte(`{"x_per":0.5}`), &f)

			convey.Convey("Then it is malformed", func() {
				convey.So(errors.Is(err, model.ErrMalformedInput), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a coordinate is not a number", func() {
			var f model.Fixation
			err := json.Unmarshal([]byte(`{"x_per":"left","y_per":0.5}`), &f)

			convey.Convey("Then it is malformed", func() {
				convey.So(errors.Is(err, model.ErrMalformedInput), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given fixations with out-of-range coordinates", t, func() {
		bad := []model.Fixation{
			model.NewFixation(-0.1, 0.5),
			model.NewFixation(0.5, 1.01),
			model.NewFixation(math.NaN(), 0.5),
			model.NewFixation(0.5, math.Inf(1)),
		}

		convey.Convey("Then validation rejects each of them", func() {
			for _, f := range bad {
				convey.So(errors.Is(f.Validate(), model.ErrMalformedInput), convey.ShouldBeTrue)
			}
		})

		convey.Convey("And the boundaries are accepted", func() {
			convey.So(model.NewFixation(0, 1).Validate(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a fixation built in code", t, func() {
		f := model.NewFixation(0.1, 0.2)

		convey.Convey("Then it marshals to x_per/y_per", func() {
			out, err := json.Marshal(f)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(out), convey.ShouldEqual, `{"x_per":0.1,"y_per":0.2}`)
		})
	})
}

func TestSaccade(t *testing.T) {
	convey.Convey("Given an arbitrary saccade payload", t, func() {
		payload := `{"from":[0.1,0.2],"to":[0.4,0.5],"velocity":312.5}`

		convey.Convey("Then it survives a decode/encode cycle byte for byte", func() {
			var s model.Saccade
			convey.So(json.Unmarshal([]byte(payload), &s), convey.ShouldBeNil)
			out, err := json.Marshal(s)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(out), convey.ShouldEqual, payload)
		})

		convey.Convey("And an empty saccade marshals to null", func() {
			out, err := json.Marshal(model.Saccade{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(out), convey.ShouldEqual, "null")
		})
	})
}

func TestFlatten(t *testing.T) {
	convey.Convey("Given two session entries", t, func() {
		entries := []model.SessionEntry{
			{
				SessionID: "a",
				Fixations: []model.Fixation{model.NewFixation(0.1, 0.1), model.NewFixation(0.2, 0.2)},
				Saccades:  []model.Saccade{{Raw: json.RawMessage(`1`)}},
				LastSeen:  time.Now(),
			},
			{
				SessionID: "b",
				Fixations: []model.Fixation{model.NewFixation(0.9, 0.9)},
				Saccades:  []model.Saccade{{Raw: json.RawMessage(`2`)}, {Raw: json.RawMessage(`3`)}},
			},
		}

		convey.Convey("When flattening", func() {
			fixations, saccades := model.Flatten(entries)
			points := model.Points(fixations)

			convey.Convey("Then entry order and in-entry order are kept", func() {
				convey.So(len(fixations), convey.ShouldEqual, 3)
				convey.So(len(saccades), convey.ShouldEqual, 3)
				convey.So(points[0], convey.ShouldResemble, model.Point{X: 0.1, Y: 0.1})
				convey.So(points[2], convey.ShouldResemble, model.Point{X: 0.9, Y: 0.9})
				convey.So(string(saccades[2].Raw), convey.ShouldEqual, "3")
			})
		})

		convey.Convey("When flattening nothing", func() {
			fixations, saccades := model.Flatten(nil)

			convey.Convey("Then both slices are empty", func() {
				convey.So(fixations, convey.ShouldBeEmpty)
				convey.So(saccades, convey.ShouldBeEmpty)
			})
		})
	})
}
