package oee

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source identifies where an input value came from.
type Source string

const (
	// SourceExplicit marks a value entered literally by the caller.
	SourceExplicit Source = "explicit"

	// SourceInferred marks a value derived from other inputs.
	SourceInferred Source = "inferred"

	// SourceDefault marks a value filled in from a documented default.
	SourceDefault Source = "default"
)

// Valid reports whether the source is one of the known variants.
func (s Source) Valid() bool {
	switch s {
	case SourceExplicit, SourceInferred, SourceDefault:
		return true
	}
	return false
}

// InputValue wraps a scalar input together with its provenance.
// Every scalar that feeds a metric is carried as an InputValue so the
// origin of the number survives all the way into the assumption ledger.
type InputValue[T any] struct {
	// Raw is the wrapped value.
	Raw T `json:"value"`

	// Source records how the value entered the analysis.
	Source Source `json:"source"`
}

// Explicit wraps a value the caller entered literally.
func Explicit[T any](v T) InputValue[T] {
	return InputValue[T]{Raw: v, Source: SourceExplicit}
}

// Inferred wraps a value derived from other inputs.
func Inferred[T any](v T) InputValue[T] {
	return InputValue[T]{Raw: v, Source: SourceInferred}
}

// Default wraps a value taken from a documented default.
func Default[T any](v T) InputValue[T] {
	return InputValue[T]{Raw: v, Source: SourceDefault}
}

// Wrap constructs an InputValue with the given source.
func Wrap[T any](v T, source Source) InputValue[T] {
	return InputValue[T]{Raw: v, Source: source}
}

// Value extracts the wrapped value. Extraction is total: it never fails
// for a well-formed InputValue.
func (iv InputValue[T]) Value() T {
	return iv.Raw
}

// UnmarshalJSON decodes the wrapper and rejects unknown source tags so
// that "exactly one variant" stays a checked property, not a convention.
func (iv *InputValue[T]) UnmarshalJSON(data []byte) error {
	type alias InputValue[T]
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Source == "" {
		a.Source = SourceExplicit
	}
	if !a.Source.Valid() {
		return fmt.Errorf("unknown input value source: %q", a.Source)
	}
	*iv = InputValue[T](a)
	return nil
}

// Duration is a wire duration. The compute boundary exchanges durations
// as float seconds, not Go's nanosecond integers.
type Duration time.Duration

// Seconds constructs a Duration from a number of seconds.
func Seconds(s float64) Duration {
	return Duration(time.Duration(s * float64(time.Second)))
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SecondsValue returns the duration in seconds.
func (d Duration) SecondsValue() float64 {
	return time.Duration(d).Seconds()
}

// MarshalJSON encodes the duration as float seconds.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).Seconds())
}

// UnmarshalJSON decodes a float-seconds duration.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s float64
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = Seconds(s)
	return nil
}

// String formats the duration using time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}
