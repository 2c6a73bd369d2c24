// Package datetime normalises commit and build timestamps into the textual
// encodings carried by the generated artifact.
//
// A Time keeps the UTC offset it was constructed with. Formatting never
// converts to UTC unless the source was UTC to begin with.
package datetime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts used by the renderings.
const (
	HumanLayout   = "2006-01-02 15:04:05 -07:00"
	RFC2822Layout = time.RFC1123Z
	RFC3339Layout = time.RFC3339
)

// SourceDateEpoch is the reproducible-builds variable that pins the build
// time. See https://reproducible-builds.org/docs/source-date-epoch/.
const SourceDateEpoch = "SOURCE_DATE_EPOCH"

// Time is an instant together with its original UTC offset.
type Time struct {
	t time.Time
}

// ParseError is returned when a timestamp cannot be parsed.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("datetime: cannot parse %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FromUnix returns the instant sec seconds after the epoch, in UTC.
func FromUnix(sec int64) Time {
	return Time{t: time.Unix(sec, 0).UTC()}
}

// ParseUnix parses a decimal Unix timestamp such as git's %ct output.
func ParseUnix(s string) (Time, error) {
	sec, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return Time{}, &ParseError{Input: s, Err: err}
	}
	return FromUnix(sec), nil
}

// Parse parses an offset-aware ISO-8601/RFC 3339 timestamp, for example
// "2021-08-04T12:34:03+08:00". The offset is preserved exactly.
func Parse(s string) (Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return Time{}, &ParseError{Input: s, Err: err}
	}
	_, off := t.Zone()
	if off == 0 {
		return Time{t: t.UTC()}, nil
	}
	return Time{t: t.In(time.FixedZone("", off))}, nil
}

// FromTime wraps t, keeping its location.
func FromTime(t time.Time) Time {
	return Time{t: t.Truncate(time.Second)}
}

// Now returns the build time. When env holds SOURCE_DATE_EPOCH the build is
// pinned to that instant in UTC; otherwise clock supplies the current local
// time. A malformed SOURCE_DATE_EPOCH is an error.
func Now(env map[string]string, clock func() time.Time) (Time, error) {
	if raw, ok := env[SourceDateEpoch]; ok && raw != "" {
		t, err := ParseUnix(raw)
		if err != nil {
			return Time{}, fmt.Errorf("%s: %w", SourceDateEpoch, err)
		}
		return t, nil
	}
	if clock == nil {
		clock = time.Now
	}
	return FromTime(clock()), nil
}

// Time returns the underlying time.Time.
func (t Time) Time() time.Time { return t.t }

// IsZero reports whether t is the zero instant.
func (t Time) IsZero() bool { return t.t.IsZero() }

// Human renders "YYYY-MM-DD HH:MM:SS ±HH:MM".
func (t Time) Human() string { return t.t.Format(HumanLayout) }

// RFC2822 renders the internet-mail date format, e.g.
// "Wed, 04 Aug 2021 12:34:03 +0000".
func (t Time) RFC2822() string { return t.t.Format(RFC2822Layout) }

// RFC3339 renders the extended format with a numeric offset, or Z for UTC.
func (t Time) RFC3339() string { return t.t.Format(RFC3339Layout) }

// Unix returns seconds since the epoch.
func (t Time) Unix() int64 { return t.t.Unix() }

// Offset returns the UTC offset in seconds.
func (t Time) Offset() int {
	_, off := t.t.Zone()
	return off
}
