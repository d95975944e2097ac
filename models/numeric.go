package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Numeric is a number sent by a client either as a JSON number or as a
// numeric string (browser form values).
type Numeric float64

// NumberError reports a value that Numeric could not decode.
type NumberError struct {
	Raw string
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("%s is not a valid number", e.Raw)
}

func (n *Numeric) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	text := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return &NumberError{Raw: string(raw)}
	}
	*n = Numeric(v)
	return nil
}

func (n *Numeric) Float() float64 {
	return float64(*n)
}

const dateOnly = "2006-01-02"

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}
