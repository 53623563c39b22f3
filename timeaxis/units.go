package timeaxis

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedUnits    = errors.New("timeaxis: unsupported time units")
	ErrUnsupportedCalendar = errors.New("timeaxis: unsupported calendar")
	ErrInvalidDate         = errors.New("timeaxis: invalid date")
)

const secondsPerDay = 86400

// Length of a udunits month, one twelfth of a mean tropical year.
const udunitsMonthSeconds = 365.242198781 / 12 * secondsPerDay

var unitSeconds = map[string]float64{
	"second":  1,
	"seconds": 1,
	"minute":  60,
	"minutes": 60,
	"hour":    3600,
	"hours":   3600,
	"day":     secondsPerDay,
	"days":    secondsPerDay,
	"month":   udunitsMonthSeconds,
	"months":  udunitsMonthSeconds,
}

var (
	unitsPattern = regexp.MustCompile(`^\s*([A-Za-z]+)\s+since\s+(.+?)\s*$`)
	datePattern  = regexp.MustCompile(`^(-?\d{1,4})-(\d{1,2})-(\d{1,2})(?:[ T](\d{1,2}):(\d{1,2})(?::(\d{1,2}(?:\.\d*)?))?)?\s*(?:Z|UTC|\+00:?00)?$`)
)

// Units is a parsed "<unit> since <origin>" string.
type Units struct {
	Unit   string
	Origin Date
	// Seconds covered by one unit step.
	Step float64
}

func ParseUnits(units string) (Units, error) {
	m := unitsPattern.FindStringSubmatch(units)
	if m == nil {
		return Units{}, fmt.Errorf("%w: '%s'", ErrUnsupportedUnits, units)
	}

	unit := strings.ToLower(m[1])
	step, ok := unitSeconds[unit]
	if !ok {
		return Units{}, fmt.Errorf("%w: unit '%s'", ErrUnsupportedUnits, m[1])
	}

	origin, err := ParseDate(m[2])
	if err != nil {
		return Units{}, err
	}

	return Units{
		Unit:   strings.TrimSuffix(unit, "s") + "s",
		Origin: origin,
		Step:   step,
	}, nil
}

// ParseDate parses "YYYY-MM-DD[( |T)hh:mm[:ss]]" without checking it against a calendar.
func ParseDate(s string) (Date, error) {
	m := datePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Date{}, fmt.Errorf("%w: '%s'", ErrInvalidDate, s)
	}

	var d Date
	d.Year, _ = strconv.Atoi(m[1])
	d.Month, _ = strconv.Atoi(m[2])
	d.Day, _ = strconv.Atoi(m[3])
	if m[4] != "" {
		d.Hour, _ = strconv.Atoi(m[4])
		d.Minute, _ = strconv.Atoi(m[5])
	}
	if m[6] != "" {
		d.Second, _ = strconv.ParseFloat(m[6], 64)
	}
	return d, nil
}

// ParseInstant reads either a plain number or a date in the proleptic
// Gregorian calendar and returns it as seconds since the Unix epoch.
func ParseInstant(s string) (float64, error) {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f, nil
	}

	d, err := ParseDate(s)
	if err != nil {
		return 0, err
	}
	return Calendar{Name: "proleptic_gregorian", kind: kindProleptic}.Seconds(d)
}

func floor(f float64) float64 {
	return math.Floor(f)
}
