package models

import "time"

const (
	// DateLayout is the storage format of calendar dates.
	DateLayout = "2006-01-02"
	// TimestampLayout is the storage format of note timestamps (UTC, millisecond precision).
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
	// InvalidDate is shown in place of a stored date that cannot be parsed.
	InvalidDate = "invalid date"
)

// Date is a calendar date without time component, stored as YYYY-MM-DD.
// It is kept as text so that corrupted values survive decoding and can be
// rendered as InvalidDate instead of failing the whole customer list.
type Date string

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// NewDate returns a pointer to the date of t, for optional date fields.
func NewDate(t time.Time) *Date {
	d := DateOf(t)
	return &d
}

// Time parses the date as midnight UTC.
func (d Date) Time() (time.Time, bool) {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Valid reports whether d holds a parseable date.
func (d Date) Valid() bool {
	_, ok := d.Time()
	return ok
}

// Display returns the date for presentation. Empty dates stay empty.
func (d Date) Display() string {
	if d == "" {
		return ""
	}
	if !d.Valid() {
		return InvalidDate
	}
	return string(d)
}

// Timestamp returns the date as a timestamp at midnight UTC.
func (d Date) Timestamp() Timestamp {
	t, ok := d.Time()
	if !ok {
		return Timestamp(d)
	}
	return TimestampOf(t)
}

// Timestamp is a full ISO 8601 date-time, stored as text for the same reason as Date.
type Timestamp string

// TimestampOf formats t in UTC.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp(t.UTC().Format(TimestampLayout))
}

// Time parses the timestamp. Date-only values are accepted as midnight UTC.
func (ts Timestamp) Time() (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, string(ts)); err == nil {
		return t, true
	}
	return Date(ts).Time()
}

// Date returns the date portion of the timestamp, or "" when it cannot be parsed.
func (ts Timestamp) Date() Date {
	t, ok := ts.Time()
	if !ok {
		return ""
	}
	return DateOf(t)
}

// Display returns the timestamp for presentation.
func (ts Timestamp) Display() string {
	if ts == "" {
		return ""
	}
	if _, ok := ts.Time(); !ok {
		return InvalidDate
	}
	return string(ts)
}
