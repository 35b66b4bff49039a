// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedInput marks a submission whose role, fixations or saccades
// cannot be accepted. The session store is never touched for such input.
var ErrMalformedInput = errors.New("malformed input")

// Fixation is one gaze fixation in screen-relative coordinates.
// Any fields besides x_per/y_per are kept verbatim in Raw and echoed back.
type Fixation struct {
	XPercent float64
	YPercent float64
	Raw      json.RawMessage
}

type fixationCoords struct {
	XPer *float64 `json:"x_per"`
	YPer *float64 `json:"y_per"`
}

// UnmarshalJSON decodes a fixation object, keeping the original bytes.
func (f *Fixation) UnmarshalJSON(data []byte) error {
	var c fixationCoords
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("%w: fixation: %v", ErrMalformedInput, err)
	}
	if c.XPer == nil || c.YPer == nil {
		return fmt.Errorf("%w: fixation missing x_per or y_per", ErrMalformedInput)
	}
	f.XPercent = *c.XPer
	f.YPercent = *c.YPer
	f.Raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	return nil
}

// MarshalJSON returns the original object when one was decoded.
func (f Fixation) MarshalJSON() ([]byte, error) {
	if len(f.Raw) > 0 {
		return f.Raw, nil
	}
	return json.Marshal(struct {
		XPer float64 `json:"x_per"`
		YPer float64 `json:"y_per"`
	}{f.XPercent, f.YPercent})
}

// Validate checks that both coordinates are finite and inside [0,1].
func (f Fixation) Validate() error {
	for _, v := range [...]float64{f.XPercent, f.YPercent} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return fmt.Errorf("%w: fixation coordinate %v outside [0,1]", ErrMalformedInput, v)
		}
	}
	return nil
}

// NewFixation builds a fixation without auxiliary fields.
func NewFixation(x, y float64) Fixation {
	return Fixation{XPercent: x, YPercent: y}
}

// Saccade is an opaque eye-movement record carried through untouched.
type Saccade struct {
	Raw json.RawMessage
}

// UnmarshalJSON keeps the raw bytes.
func (s *Saccade) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("%w: saccade is not valid JSON", ErrMalformedInput)
	}
	s.Raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	return nil
}

// MarshalJSON writes the raw bytes back, or null for an empty record.
func (s Saccade) MarshalJSON() ([]byte, error) {
	if len(s.Raw) == 0 {
		return []byte("null"), nil
	}
	return s.Raw, nil
}

// SessionEntry is everything the store holds for one session. Fixations and
// Saccades are replaced together on every submission and never mutated.
type SessionEntry struct {
	SessionID string
	Fixations []Fixation
	Saccades  []Saccade
	LastSeen  time.Time
}

// Point is a bare 2-D coordinate fed to the clusterer.
type Point struct {
	X float64
	Y float64
}

// Flatten concatenates fixations and saccades across entries, keeping entry
// order and within-entry order.
func Flatten(entries []SessionEntry) ([]Fixation, []Saccade) {
	var nf, ns int
	for _, e := range entries {
		nf += len(e.Fixations)
		ns += len(e.Saccades)
	}
	fixations := make([]Fixation, 0, nf)
	saccades := make([]Saccade, 0, ns)
	for _, e := range entries {
		fixations = append(fixations, e.Fixations...)
		saccades = append(saccades, e.Saccades...)
	}
	return fixations, saccades
}

// Points projects fixations onto their coordinates.
func Points(fixations []Fixation) []Point {
	out := make([]Point, len(fixations))
	for i, f := range fixations {
		out[i] = Point{X: f.XPercent, Y: f.YPercent}
	}
	return out
}
