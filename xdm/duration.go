package xdm

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/oss-xquery/xq31/xqerr"
)

// YearMonthDuration is the year-month "comparison category" named in
// spec.md S3: a sign-bearing count of months.
type YearMonthDuration struct{ Months int64 }

func NewYearMonthDuration(months int64) YearMonthDuration {
	return YearMonthDuration{Months: months}
}

func (YearMonthDuration) ItemKind() Kind { return KindYearMonthDuration }
func (YearMonthDuration) atomicMarker()  {}

func (d YearMonthDuration) Str() string {
	sign := ""
	m := d.Months
	if m < 0 {
		sign = "-"
		m = -m
	}
	years, months := m/12, m%12
	var b strings.Builder
	b.WriteString(sign)
	b.WriteByte('P')
	if years > 0 {
		fmt.Fprintf(&b, "%dY", years)
	}
	if months > 0 || years == 0 {
		fmt.Fprintf(&b, "%dM", months)
	}
	return b.String()
}

// DayTimeDuration is the day-time "comparison category": a sign-bearing
// count of seconds (fractional seconds permitted, hence decimal.Decimal
// rather than an integer).
type DayTimeDuration struct{ Seconds decimal.Decimal }

func NewDayTimeDuration(seconds decimal.Decimal) DayTimeDuration {
	return DayTimeDuration{Seconds: seconds}
}

func (DayTimeDuration) ItemKind() Kind { return KindDayTimeDuration }
func (DayTimeDuration) atomicMarker()  {}

func (d DayTimeDuration) Str() string {
	s := d.Seconds
	sign := ""
	if s.IsNegative() {
		sign = "-"
		s = s.Neg()
	}
	totalSeconds := s
	days := totalSeconds.Div(decimal.NewFromInt(86400)).Truncate(0)
	rem := totalSeconds.Sub(days.Mul(decimal.NewFromInt(86400)))
	hours := rem.Div(decimal.NewFromInt(3600)).Truncate(0)
	rem = rem.Sub(hours.Mul(decimal.NewFromInt(3600)))
	minutes := rem.Div(decimal.NewFromInt(60)).Truncate(0)
	secs := rem.Sub(minutes.Mul(decimal.NewFromInt(60)))

	var b strings.Builder
	b.WriteString(sign)
	b.WriteByte('P')
	if days.Sign() != 0 {
		fmt.Fprintf(&b, "%sD", days.String())
	}
	if hours.Sign() != 0 || minutes.Sign() != 0 || secs.Sign() != 0 || days.Sign() == 0 {
		b.WriteByte('T')
		if hours.Sign() != 0 {
			fmt.Fprintf(&b, "%sH", hours.String())
		}
		if minutes.Sign() != 0 {
			fmt.Fprintf(&b, "%sM", minutes.String())
		}
		if secs.Sign() != 0 || (hours.Sign() == 0 && minutes.Sign() == 0) {
			fmt.Fprintf(&b, "%sS", secs.String())
		}
	}
	return b.String()
}

// DurationValue is the general xs:duration, carrying both comparison
// categories; general-duration comparison is deliberately restricted
// (spec.md S3: "cross-type comparison requires ... equal comparison
// category"), so a DurationValue can only be value-compared to another
// DurationValue with identical YM and DT parts, never to a bare
// YearMonthDuration or DayTimeDuration.
type DurationValue struct {
	YM YearMonthDuration
	DT DayTimeDuration
}

func (DurationValue) ItemKind() Kind { return KindDuration }
func (DurationValue) atomicMarker()  {}

func (d DurationValue) Str() string {
	ym := d.YM.Str()
	dt := d.DT.Str()
	// Merge the two "P..." strings into one, dropping the duplicate "P".
	if ym == "P0M" {
		return dt
	}
	if dt == "PT0S" {
		return ym
	}
	return ym + strings.TrimPrefix(dt, "P")
}

// ParseYearMonthDuration accepts the canonical PnYnM lexical form.
func ParseYearMonthDuration(s string) (YearMonthDuration, *xqerr.Error) {
	neg, body, ok := splitDurationSign(s)
	if !ok {
		return YearMonthDuration{}, xqerr.New(xqerr.FOCA0002, "invalid xs:yearMonthDuration lexical form %q", s)
	}
	var years, months int64
	_, err := fmt.Sscanf(body, "P%dY%dM", &years, &months)
	if err != nil {
		// Try year-only or month-only forms.
		if n, e2 := fmt.Sscanf(body, "P%dY", &years); e2 != nil || n != 1 {
			// The failed scans above may have stored a number in years.
			years = 0
			if n, e3 := fmt.Sscanf(body, "P%dM", &months); e3 != nil || n != 1 {
				return YearMonthDuration{}, xqerr.New(xqerr.FOCA0002, "invalid xs:yearMonthDuration lexical form %q", s)
			}
		}
	}
	total := years*12 + months
	if neg {
		total = -total
	}
	return YearMonthDuration{Months: total}, nil
}

// ParseDayTimeDuration accepts the canonical PnDTnHnMnS lexical form.
func ParseDayTimeDuration(s string) (DayTimeDuration, *xqerr.Error) {
	neg, body, ok := splitDurationSign(s)
	if !ok {
		return DayTimeDuration{}, xqerr.New(xqerr.FOCA0002, "invalid xs:dayTimeDuration lexical form %q", s)
	}
	rest := strings.TrimPrefix(body, "P")
	if rest == body {
		return DayTimeDuration{}, xqerr.New(xqerr.FOCA0002, "invalid xs:dayTimeDuration lexical form %q", s)
	}
	datePart, timePart, hasTime := strings.Cut(rest, "T")
	total := decimal.Zero
	var days decimal.Decimal
	if datePart != "" {
		var d int64
		if n, err := fmt.Sscanf(datePart, "%dD", &d); err != nil || n != 1 {
			return DayTimeDuration{}, xqerr.New(xqerr.FOCA0002, "invalid xs:dayTimeDuration lexical form %q", s)
		}
		days = decimal.NewFromInt(d)
		total = total.Add(days.Mul(decimal.NewFromInt(86400)))
	}
	if hasTime {
		cursor := timePart
		for _, unit := range []struct {
			suffix  byte
			seconds int64
		}{{'H', 3600}, {'M', 60}} {
			idx := strings.IndexByte(cursor, unit.suffix)
			if idx < 0 {
				continue
			}
			d, derr := decimal.NewFromString(cursor[:idx])
			if derr != nil {
				return DayTimeDuration{}, xqerr.New(xqerr.FOCA0002, "invalid xs:dayTimeDuration lexical form %q", s)
			}
			total = total.Add(d.Mul(decimal.NewFromInt(unit.seconds)))
			cursor = cursor[idx+1:]
		}
		if idx := strings.IndexByte(cursor, 'S'); idx >= 0 {
			d, derr := decimal.NewFromString(cursor[:idx])
			if derr != nil {
				return DayTimeDuration{}, xqerr.New(xqerr.FOCA0002, "invalid xs:dayTimeDuration lexical form %q", s)
			}
			total = total.Add(d)
		}
	}
	if neg {
		total = total.Neg()
	}
	return DayTimeDuration{Seconds: total}, nil
}

func splitDurationSign(s string) (neg bool, body string, ok bool) {
	if strings.HasPrefix(s, "-P") {
		return true, s[1:], true
	}
	if strings.HasPrefix(s, "P") {
		return false, s, true
	}
	return false, "", false
}
