package store

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedName is returned when a file name does not carry a valid partition key.
var ErrMalformedName = errors.New("store: malformed partition name")

// MalformedNameError reports the offending name.
type MalformedNameError struct {
	Name   string
	Reason string
}

func (e *MalformedNameError) Error() string {
	return fmt.Sprintf("store: malformed partition name %q: %s", e.Name, e.Reason)
}

func (e *MalformedNameError) Unwrap() error { return ErrMalformedName }

// Key identifies one generation cycle: a year, month, day and hour, each a
// fixed-width zero-padded decimal string.
type Key struct {
	Year  string
	Month string
	Day   string
	Hour  string
}

var (
	fragmentPattern = regexp.MustCompile(`^(?:content_)?(\d{4})-(\d{2})-(\d{2})_(\d{2})(?:\.json|\.md)?$`)
	dayDirPattern   = regexp.MustCompile(`^(\d{4})/(\d{2})/(\d{2})$`)
)

// KeyAt returns the key of instant t as seen in loc.
func KeyAt(t time.Time, loc *time.Location) Key {
	t = t.In(loc)
	return Key{
		Year:  t.Format("2006"),
		Month: t.Format("01"),
		Day:   t.Format("02"),
		Hour:  t.Format("15"),
	}
}

// ParseKey extracts the key from a content file name such as
// "content_2025-01-18_14.json", or from a bare fragment "2025-01-18_14".
func ParseKey(name string) (Key, error) {
	m := fragmentPattern.FindStringSubmatch(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if m == nil {
		return Key{}, &MalformedNameError{Name: name, Reason: "expected YYYY-MM-DD_HH"}
	}
	k := Key{Year: m[1], Month: m[2], Day: m[3], Hour: m[4]}
	if err := k.validate(); err != nil {
		return Key{}, &MalformedNameError{Name: name, Reason: err.Error()}
	}
	return k, nil
}

// ParseDayDir parses a slash-separated "YYYY/MM/DD" directory into a key
// with an empty hour.
func ParseDayDir(dir string) (Key, error) {
	m := dayDirPattern.FindStringSubmatch(strings.Trim(strings.ReplaceAll(dir, "\\", "/"), "/"))
	if m == nil {
		return Key{}, &MalformedNameError{Name: dir, Reason: "expected YYYY/MM/DD"}
	}
	k := Key{Year: m[1], Month: m[2], Day: m[3], Hour: "00"}
	if err := k.validate(); err != nil {
		return Key{}, &MalformedNameError{Name: dir, Reason: err.Error()}
	}
	k.Hour = ""
	return k, nil
}

func (k Key) validate() error {
	if len(k.Year) != 4 || len(k.Month) != 2 || len(k.Day) != 2 || len(k.Hour) != 2 {
		return fmt.Errorf("components must be 4-2-2-2 digits")
	}
	checks := []struct {
		name     string
		value    string
		min, max int
	}{
		{"year", k.Year, 0, 9999},
		{"month", k.Month, 1, 12},
		{"day", k.Day, 1, 31},
		{"hour", k.Hour, 0, 23},
	}
	for _, c := range checks {
		n, err := strconv.Atoi(c.value)
		if err != nil {
			return fmt.Errorf("%s %q is not a number", c.name, c.value)
		}
		if n < c.min || n > c.max {
			return fmt.Errorf("%s %s out of range", c.name, c.value)
		}
	}
	return nil
}

// Date returns "YYYY-MM-DD".
func (k Key) Date() string {
	return k.Year + "-" + k.Month + "-" + k.Day
}

// CompactDate returns "YYYYMMDD", the form used inside record ids.
func (k Key) CompactDate() string {
	return k.Year + k.Month + k.Day
}

// DirPath returns the slash-separated directory "YYYY/MM/DD".
func (k Key) DirPath() string {
	return k.Year + "/" + k.Month + "/" + k.Day
}

// FileFragment returns "YYYY-MM-DD_HH".
func (k Key) FileFragment() string {
	return k.Date() + "_" + k.Hour
}

// Less orders keys chronologically.
func (k Key) Less(o Key) bool {
	if k.Date() != o.Date() {
		return k.Date() < o.Date()
	}
	return k.Hour < o.Hour
}

func (k Key) String() string {
	return k.FileFragment()
}
