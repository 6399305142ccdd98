// Package model defines the persisted run document and shared data structures.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Duration is an optional duration persisted as integer milliseconds or null.
type Duration struct {
	Value time.Duration
	Valid bool
}

// Some returns a set Duration.
func Some(d time.Duration) Duration {
	return Duration{Value: d, Valid: true}
}

// None returns an unset Duration.
func None() Duration {
	return Duration{}
}

// Millis returns a set Duration of ms milliseconds.
func Millis(ms int64) Duration {
	return Some(time.Duration(ms) * time.Millisecond)
}

// Get returns the value and whether it is set.
func (d Duration) Get() (time.Duration, bool) {
	return d.Value, d.Valid
}

// Or returns the value, or fallback when unset.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if !d.Valid {
		return fallback
	}
	return d.Value
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Value.Milliseconds())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Duration{}
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("duration must be integer milliseconds: %w", err)
	}
	*d = Millis(ms)
	return nil
}
