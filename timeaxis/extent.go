package timeaxis

import (
	"fmt"
	"math"

	"github.com/mwantia/metacat/data"
)

// Extent is a coordinate extent in canonical units. Time axes are expressed
// in seconds since 1970-01-01 of their calendar with Delta in hours; other
// axes keep their stored values.
type Extent struct {
	Min   float64
	Max   float64
	Delta float64

	Time     bool
	Calendar string
	MinDate  Date
	MaxDate  Date
}

func (e Extent) String() string {
	if !e.Time {
		return fmt.Sprintf("%v to %v every %v", e.Min, e.Max, e.Delta)
	}
	return fmt.Sprintf("%s to %s every %.2f hours", e.MinDate, e.MaxDate, e.Delta)
}

// Overlaps reports whether [lo, hi] intersects the extent. NaN bounds are
// treated as open.
func (e Extent) Overlaps(lo, hi float64) bool {
	if math.IsNaN(e.Min) || math.IsNaN(e.Max) {
		return false
	}
	return (math.IsNaN(hi) || e.Min <= hi) && (math.IsNaN(lo) || e.Max >= lo)
}

// CanonicalExtent converts the extent of c into canonical units.
func CanonicalExtent(c *data.Coordinate) (Extent, error) {
	extent := Extent{Min: c.Min, Max: c.Max, Delta: c.Delta}
	if !c.IsTime() {
		return extent, nil
	}

	text, ok := c.Units()
	if !ok {
		return Extent{}, fmt.Errorf("%w: time axis '%s' has no units", ErrUnsupportedUnits, c.Name)
	}
	units, err := ParseUnits(text)
	if err != nil {
		return Extent{}, err
	}
	calendar, err := ParseCalendar(c.Calendar())
	if err != nil {
		return Extent{}, err
	}
	origin, err := calendar.Seconds(units.Origin)
	if err != nil {
		return Extent{}, err
	}

	extent.Time = true
	extent.Calendar = calendar.Name
	extent.Min = origin + c.Min*units.Step
	extent.Max = origin + c.Max*units.Step
	if !math.IsNaN(extent.Min) {
		extent.MinDate = calendar.Date(extent.Min)
		extent.MaxDate = calendar.Date(extent.Max)
	}

	step := c.Delta
	if step == 0 && len(c.Values) > 1 {
		sum := 0.0
		for i := 1; i < len(c.Values); i++ {
			sum += math.Abs(c.Values[i] - c.Values[i-1])
		}
		step = sum / float64(len(c.Values)-1)
	}
	extent.Delta = step * units.Step / 3600

	return extent, nil
}
