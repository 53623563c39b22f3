package timeaxis

import (
	"fmt"
	"strings"
)

type calendarKind int

const (
	kindMixed calendarKind = iota
	kindProleptic
	kindJulian
	kindNoLeap
	kindAllLeap
	kind360Day
)

var calendarKinds = map[string]calendarKind{
	"standard":            kindMixed,
	"gregorian":           kindMixed,
	"proleptic_gregorian": kindProleptic,
	"julian":              kindJulian,
	"noleap":              kindNoLeap,
	"365_day":             kindNoLeap,
	"all_leap":            kindAllLeap,
	"366_day":             kindAllLeap,
	"360_day":             kind360Day,
}

// First day of the Gregorian reform in the mixed calendar, as a julian day number.
const gregorianReformJDN = 2299161

var (
	noLeapMonths  = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	allLeapMonths = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
)

// Calendar counts days since 1970-01-01 of the same calendar.
type Calendar struct {
	Name string
	kind calendarKind
}

func ParseCalendar(name string) (Calendar, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	kind, ok := calendarKinds[normalized]
	if !ok {
		return Calendar{}, fmt.Errorf("%w: '%s'", ErrUnsupportedCalendar, name)
	}
	return Calendar{Name: normalized, kind: kind}, nil
}

// Date is a calendar date with a time of day.
type Date struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second float64
}

func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d %02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute)
}

func (d Date) secondsOfDay() float64 {
	return float64(d.Hour*3600+d.Minute*60) + d.Second
}

func (c Calendar) daysInMonth(year, month int) int {
	switch c.kind {
	case kind360Day:
		return 30
	case kindNoLeap:
		return noLeapMonths[month-1]
	case kindAllLeap:
		return allLeapMonths[month-1]
	}

	if month != 2 {
		return noLeapMonths[month-1]
	}
	if c.isLeap(year) {
		return 29
	}
	return 28
}

func (c Calendar) isLeap(year int) bool {
	julianLeap := mod(year, 4) == 0
	gregorianLeap := julianLeap && (mod(year, 100) != 0 || mod(year, 400) == 0)

	switch c.kind {
	case kindJulian:
		return julianLeap
	case kindProleptic:
		return gregorianLeap
	case kindMixed:
		if year < 1582 {
			return julianLeap
		}
		return gregorianLeap
	}
	return false
}

func (c Calendar) validate(d Date) error {
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, d.Month)
	}
	if d.Day < 1 || d.Day > c.daysInMonth(d.Year, d.Month) {
		return fmt.Errorf("%w: day %d of %04d-%02d in %s calendar", ErrInvalidDate, d.Day, d.Year, d.Month, c.Name)
	}
	if d.Hour < 0 || d.Hour > 23 || d.Minute < 0 || d.Minute > 59 || d.Second < 0 || d.Second >= 61 {
		return fmt.Errorf("%w: time %02d:%02d:%v", ErrInvalidDate, d.Hour, d.Minute, d.Second)
	}
	return nil
}

// Days returns the number of days from 1970-01-01 to d.
func (c Calendar) Days(d Date) (int64, error) {
	if err := c.validate(d); err != nil {
		return 0, err
	}
	return c.dayNumber(d.Year, d.Month, d.Day) - c.dayNumber(1970, 1, 1), nil
}

// Seconds returns the seconds from 1970-01-01T00:00:00 to d.
func (c Calendar) Seconds(d Date) (float64, error) {
	days, err := c.Days(d)
	if err != nil {
		return 0, err
	}
	return float64(days)*secondsPerDay + d.secondsOfDay(), nil
}

// Date converts seconds since 1970-01-01T00:00:00 back into a calendar date.
func (c Calendar) Date(seconds float64) Date {
	days := floorDiv(int64(floor(seconds)), secondsPerDay)
	rest := seconds - float64(days)*secondsPerDay

	year, month, day := c.fromDayNumber(days + c.dayNumber(1970, 1, 1))
	hour := int(rest) / 3600
	minute := (int(rest) % 3600) / 60
	return Date{
		Year:   year,
		Month:  month,
		Day:    day,
		Hour:   hour,
		Minute: minute,
		Second: rest - float64(hour*3600+minute*60),
	}
}

// dayNumber maps a date to a day count that is continuous within the calendar.
// Gregorian and Julian variants use the julian day number.
func (c Calendar) dayNumber(year, month, day int) int64 {
	y, m, d := int64(year), int64(month), int64(day)

	switch c.kind {
	case kind360Day:
		return y*360 + (m-1)*30 + d - 1
	case kindNoLeap, kindAllLeap:
		lengths := noLeapMonths
		perYear := int64(365)
		if c.kind == kindAllLeap {
			lengths = allLeapMonths
			perYear = 366
		}
		n := y*perYear + d - 1
		for i := 0; i < month-1; i++ {
			n += int64(lengths[i])
		}
		return n
	case kindJulian:
		return julianJDN(y, m, d)
	case kindProleptic:
		return gregorianJDN(y, m, d)
	}

	if jdn := gregorianJDN(y, m, d); jdn >= gregorianReformJDN {
		return jdn
	}
	return julianJDN(y, m, d)
}

func (c Calendar) fromDayNumber(n int64) (int, int, int) {
	switch c.kind {
	case kind360Day:
		year := floorDiv(n, 360)
		rest := n - year*360
		return int(year), int(rest/30) + 1, int(rest%30) + 1
	case kindNoLeap, kindAllLeap:
		lengths := noLeapMonths
		perYear := int64(365)
		if c.kind == kindAllLeap {
			lengths = allLeapMonths
			perYear = 366
		}
		year := floorDiv(n, perYear)
		rest := int(n - year*perYear)
		month := 0
		for rest >= lengths[month] {
			rest -= lengths[month]
			month++
		}
		return int(year), month + 1, rest + 1
	case kindJulian:
		return fromJDN(n, false)
	case kindProleptic:
		return fromJDN(n, true)
	}
	return fromJDN(n, n >= gregorianReformJDN)
}

func gregorianJDN(y, m, d int64) int64 {
	a := floorDiv(14-m, 12)
	yy := y + 4800 - a
	mm := m + 12*a - 3
	return d + floorDiv(153*mm+2, 5) + 365*yy + floorDiv(yy, 4) - floorDiv(yy, 100) + floorDiv(yy, 400) - 32045
}

func julianJDN(y, m, d int64) int64 {
	a := floorDiv(14-m, 12)
	yy := y + 4800 - a
	mm := m + 12*a - 3
	return d + floorDiv(153*mm+2, 5) + 365*yy + floorDiv(yy, 4) - 32083
}

// fromJDN inverts a julian day number into a Gregorian or Julian date.
func fromJDN(jdn int64, gregorian bool) (int, int, int) {
	f := jdn + 1401
	if gregorian {
		f += floorDiv(floorDiv(4*jdn+274277, 146097)*3, 4) - 38
	}
	e := 4*f + 3
	g := floorDiv(mod64(e, 1461), 4)
	h := 5*g + 2
	day := floorDiv(mod64(h, 153), 5) + 1
	month := mod64(floorDiv(h, 153)+2, 12) + 1
	year := floorDiv(e, 1461) - 4716 + floorDiv(12+2-month, 12)
	return int(year), int(month), int(day)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod64(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}

func mod(a, b int) int {
	return int(mod64(int64(a), int64(b)))
}
