package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedPayload marks payloads whose top-level structure cannot be read.
// Missing or odd fields are never reported with it; they degrade to unknown.
var ErrMalformedPayload = errors.New("malformed payload")

// jst is Japan Standard Time. A fixed zone avoids depending on tzdata.
var jst = time.FixedZone("JST", 9*60*60)

// Normalize converts a raw feed payload into canonical events. Heartbeats and
// message codes the service does not announce yield no events and no error.
func Normalize(raw RawPayload) ([]Event, error) {
	var (
		events []Event
		err    error
	)
	switch raw.Kind {
	case KindEEW:
		events, err = normalizeEEW(raw.Body)
	case KindQuakeStream:
		events, err = normalizeQuakeStream(raw.Body)
	case KindBulletinList:
		events, err = normalizeBulletinList(raw.Body)
	case KindTsunamiList:
		events, err = normalizeTsunamiList(raw.Body)
	case KindJMATsunami:
		events, err = normalizeJMATsunami(raw.Body)
	case KindJMALongPeriod:
		events, err = normalizeJMALongPeriod(raw.Body)
	default:
		return nil, fmt.Errorf("normalize: unsupported source kind %q", raw.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w: %w", raw.Kind, ErrMalformedPayload, err)
	}
	return events, nil
}

func requireJSON(body []byte, open byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return errors.New("empty body")
	}
	if trimmed[0] != open {
		if open == '{' {
			return errors.New("top-level value is not an object")
		}
		return errors.New("top-level value is not an array")
	}
	return nil
}

// looseValue accepts a JSON string, number, or null. Other shapes are treated
// as absent rather than failing the whole payload.
type looseValue struct {
	text string
	set  bool
}

func (v *looseValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		v.text, v.set = s, s != ""
	case '{', '[':
		// not a scalar
	default:
		v.text, v.set = string(b), true
	}
	return nil
}

func (v looseValue) String() string {
	if !v.set {
		return ""
	}
	return v.text
}

func (v looseValue) Float() *float64 {
	if !v.set {
		return nil
	}
	f, err := strconv.ParseFloat(v.text, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Bool reports whether the value reads as true: true, "true" or 1. Anything
// else, including absent, is false.
func (v looseValue) Bool() bool {
	if !v.set {
		return false
	}
	b, err := strconv.ParseBool(v.text)
	return err == nil && b
}

func (v looseValue) Int() *int {
	f := v.Float()
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// parseJSTTime reads "YYYY/MM/DD HH:MM[:SS[.fff]]" as Japan Standard Time.
func parseJSTTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006/01/02 15:04:05", "2006/01/02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, jst); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseArrival extracts the day, hour and minute from an arrival time string.
// The unknown sentinel and anything unparseable yield nil.
func ParseArrival(s string) *ArrivalEstimate {
	s = strings.TrimSpace(s)
	if s == "" || s == Unknown {
		return nil
	}
	t, ok := parseJSTTime(s)
	if !ok {
		return nil
	}
	return &ArrivalEstimate{Day: t.Day(), Hour: t.Hour(), Minute: t.Minute()}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
