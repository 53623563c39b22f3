package data

import (
	"math"
	"regexp"
)

const (
	// Tolerance used when comparing coordinate extents and values.
	CoordinateTolerance = 1e-6
	// Maximum spread between consecutive differences for an evenly spaced axis.
	SpacingTolerance = 1e-4

	DefaultCalendar = "gregorian"

	AttributeUnits      = "units"
	AttributeCalendar   = "calendar"
	AttributeTimeOrigin = "time_origin"
)

var timeUnitsPattern = regexp.MustCompile(`^\s*(seconds|hours|days|months)\s+since\b`)

// Sample is one optional entry of a coordinate axis; Valid is false for
// masked or missing entries.
type Sample struct {
	Value float64
	Valid bool
}

func Present(v float64) Sample {
	return Sample{Value: v, Valid: true}
}

func Missing() Sample {
	return Sample{}
}

// Number covers the element types format adapters hand over.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// SamplesOf upcasts values to float64 and masks every entry equal to one of
// the given fill values. NaN entries are always treated as missing.
func SamplesOf[T Number](values []T, fills ...float64) []Sample {
	samples := make([]Sample, len(values))
	for i, v := range values {
		f := float64(v)
		samples[i] = Sample{Value: f, Valid: !math.IsNaN(f) && !isFill(f, fills)}
	}
	return samples
}

func isFill(f float64, fills []float64) bool {
	for _, fill := range fills {
		if f == fill {
			return true
		}
	}
	return false
}

type Coordinate struct {
	ID         int64
	Name       string
	Count      int
	Min        float64
	Max        float64
	Delta      float64
	Values     []float64
	Attributes Attributes
}

// NewCoordinate summarizes the samples of an axis. Missing entries count
// towards Count but are excluded from the extent and spacing.
func NewCoordinate(name string, samples []Sample, attrs Attributes) *Coordinate {
	c := &Coordinate{
		ID:         -1,
		Name:       name,
		Count:      len(samples),
		Min:        math.NaN(),
		Max:        math.NaN(),
		Attributes: attrs,
	}

	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Valid {
			values = append(values, s.Value)
		}
	}
	if len(values) == 0 {
		return c
	}

	c.Min, c.Max = values[0], values[0]
	for _, v := range values[1:] {
		c.Min = math.Min(c.Min, v)
		c.Max = math.Max(c.Max, v)
	}

	if len(values) < 2 {
		return c
	}

	lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
		sum += d
	}

	if hi-lo <= SpacingTolerance {
		c.Delta = math.Abs(sum / float64(len(values)-1))
	} else {
		c.Values = values
	}

	return c
}

func (c *Coordinate) Units() (string, bool) {
	v, ok := c.Attributes.Get(AttributeUnits)
	if !ok || v.Kind != AttributeText {
		return "", false
	}
	return v.Text, true
}

// IsTime reports whether the axis carries time units or a calendar.
func (c *Coordinate) IsTime() bool {
	if c.Attributes.Has(AttributeCalendar) {
		return true
	}
	units, ok := c.Units()
	return ok && timeUnitsPattern.MatchString(units)
}

// Calendar returns the calendar attribute, or the default calendar.
func (c *Coordinate) Calendar() string {
	if v, ok := c.Attributes.Get(AttributeCalendar); ok && v.Kind == AttributeText && v.Text != "" {
		return v.Text
	}
	return DefaultCalendar
}

// IsDiscrete reports whether explicit values are kept instead of a step.
func (c *Coordinate) IsDiscrete() bool {
	return len(c.Values) > 0
}

// Matches reports whether other describes the same axis within tolerance.
func (c *Coordinate) Matches(other *Coordinate) bool {
	if c.Name != other.Name || c.Count != other.Count {
		return false
	}
	if !nearlyEqual(c.Min, other.Min) || !nearlyEqual(c.Max, other.Max) {
		return false
	}

	if c.IsDiscrete() || other.IsDiscrete() {
		if len(c.Values) != len(other.Values) {
			return false
		}
		for i := range c.Values {
			if !nearlyEqual(c.Values[i], other.Values[i]) {
				return false
			}
		}
	} else if !nearlyEqual(c.Delta, other.Delta) {
		return false
	}

	return c.Attributes.EqualSet(other.Attributes)
}

// MatchesType reports whether other is the same kind of axis, possibly with a
// different extent. Time axes may disagree on units and time origin.
func (c *Coordinate) MatchesType(other *Coordinate) bool {
	if c.Name != other.Name {
		return false
	}

	var skip map[string]struct{}
	if c.IsTime() && other.IsTime() {
		skip = map[string]struct{}{
			AttributeUnits:      {},
			AttributeTimeOrigin: {},
		}
	}
	return c.Attributes.equalExcept(other.Attributes, skip)
}

func nearlyEqual(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= CoordinateTolerance
}
