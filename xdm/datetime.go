package xdm

import (
	"time"

	"github.com/oss-xquery/xq31/xqerr"
)

// tzOffset distinguishes "no timezone specified" (XDM allows this, and
// such values compare using an implicit timezone per the F&O spec) from
// "UTC" (+00:00), which is why offset is a pointer to minutes-east-of-UTC
// rather than a plain int.
type tzOffset = *int

// DateTimeValue is xs:dateTime, UTC-offset-aware per spec.md S3.
type DateTimeValue struct {
	T      time.Time
	Offset tzOffset // nil means no timezone in the lexical form
}

func NewDateTime(t time.Time, offsetMinutes *int) DateTimeValue {
	return DateTimeValue{T: t, Offset: offsetMinutes}
}

func (DateTimeValue) ItemKind() Kind { return KindDateTime }
func (DateTimeValue) atomicMarker()  {}

func (d DateTimeValue) Str() string {
	return formatWithOffset(d.T, d.Offset, "2006-01-02T15:04:05")
}

func ParseDateTime(s string) (DateTimeValue, *xqerr.Error) {
	t, off, err := parseXSDDateTime(s, "2006-01-02T15:04:05")
	if err != nil {
		return DateTimeValue{}, err
	}
	return DateTimeValue{T: t, Offset: off}, nil
}

// DateValue is xs:date.
type DateValue struct {
	T      time.Time
	Offset tzOffset
}

func (DateValue) ItemKind() Kind { return KindDate }
func (DateValue) atomicMarker()  {}
func (d DateValue) Str() string  { return formatWithOffset(d.T, d.Offset, "2006-01-02") }

func ParseDate(s string) (DateValue, *xqerr.Error) {
	t, off, err := parseXSDDateTime(s, "2006-01-02")
	if err != nil {
		return DateValue{}, err
	}
	return DateValue{T: t, Offset: off}, nil
}

// TimeValue is xs:time.
type TimeValue struct {
	T      time.Time
	Offset tzOffset
}

func (TimeValue) ItemKind() Kind { return KindTime }
func (TimeValue) atomicMarker()  {}
func (t TimeValue) Str() string  { return formatWithOffset(t.T, t.Offset, "15:04:05") }

func ParseTime(s string) (TimeValue, *xqerr.Error) {
	t, off, err := parseXSDDateTime(s, "15:04:05")
	if err != nil {
		return TimeValue{}, err
	}
	return TimeValue{T: t, Offset: off}, nil
}

func formatWithOffset(t time.Time, offset tzOffset, layout string) string {
	s := t.Format(layout)
	if offset == nil {
		return s
	}
	if *offset == 0 {
		return s + "Z"
	}
	loc := time.FixedZone("", *offset*60)
	return t.In(loc).Format(layout + "-07:00")
}

// parseXSDDateTime parses the date/time/datetime portion using layout and
// any trailing "Z" or "+hh:mm"/"-hh:mm" timezone suffix.
func parseXSDDateTime(s string, layout string) (time.Time, tzOffset, *xqerr.Error) {
	body := s
	var off tzOffset
	switch {
	case len(s) > 0 && s[len(s)-1] == 'Z':
		body = s[:len(s)-1]
		zero := 0
		off = &zero
	case len(s) >= 6 && (s[len(s)-6] == '+' || s[len(s)-6] == '-'):
		t, err := time.Parse(layout+"-07:00", s)
		if err != nil {
			return time.Time{}, nil, xqerr.New(xqerr.FOCA0002, "invalid lexical form %q", s)
		}
		_, secEast := t.Zone()
		minEast := secEast / 60
		return t.UTC(), &minEast, nil
	}
	t, err := time.Parse(layout, body)
	if err != nil {
		return time.Time{}, nil, xqerr.New(xqerr.FOCA0002, "invalid lexical form %q", s)
	}
	return t, off, nil
}
