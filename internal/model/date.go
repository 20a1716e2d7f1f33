package model

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05.999999999"
	// ISO local date-time writers drop the seconds when they are zero.
	dateTimeMinutesLayout = "2006-01-02T15:04"
)

// Date is a calendar date without time of day, serialized as "yyyy-MM-dd".
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "yyyy-MM-dd".
func ParseDate(s string) (Date, error) {
	t, ok := fastParseDate(s)
	if !ok {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, ErrTypeMismatch)
	}
	return Date{t}, nil
}

// fastParseDate parses "YYYY-MM-DD" without going through time.Parse layout handling.
// Returns zero time and false on invalid input, including days the month does not have.
func fastParseDate(s string) (time.Time, bool) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return time.Time{}, false
	}
	for i := 0; i < len(s); i++ {
		if i == 4 || i == 7 {
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, false
		}
	}
	y := int(s[0]-'0')*1000 + int(s[1]-'0')*100 + int(s[2]-'0')*10 + int(s[3]-'0')
	m := time.Month(int(s[5]-'0')*10 + int(s[6]-'0'))
	d := int(s[8]-'0')*10 + int(s[9]-'0')
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateTime is a local timestamp as the case store serializes it, with no zone offset.
type DateTime struct {
	time.Time
}

func NewDateTime(year int, month time.Month, day, hour, min int) DateTime {
	return DateTime{time.Date(year, month, day, hour, min, 0, 0, time.UTC)}
}

// ParseDateTime parses "yyyy-MM-ddTHH:mm[:ss[.fffffffff]]".
func ParseDateTime(s string) (DateTime, error) {
	t, err := time.ParseInLocation(DateTimeLayout, s, time.UTC)
	if err != nil {
		t, err = time.ParseInLocation(dateTimeMinutesLayout, s, time.UTC)
	}
	if err != nil {
		return DateTime{}, fmt.Errorf("invalid date-time %q: %w", s, ErrTypeMismatch)
	}
	return DateTime{t}, nil
}

// Date drops the time of day.
func (dt DateTime) Date() Date {
	y, m, d := dt.Time.Date()
	return NewDate(y, m, d)
}

func (dt DateTime) String() string {
	return dt.Time.Format(DateTimeLayout)
}

func (dt DateTime) MarshalJSON() ([]byte, error) {
	if dt.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(dt.String())
}

func (dt *DateTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*dt = DateTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date-time: %w", err)
	}
	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}
