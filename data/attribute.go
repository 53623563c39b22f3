package data

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// FileSpecific replaces attribute values that differ between merged files.
const FileSpecific = "File specific"

type AttributeKind int

const (
	AttributeText AttributeKind = iota
	AttributeNumber
	AttributeArray
)

func (k AttributeKind) String() string {
	switch k {
	case AttributeText:
		return "text"
	case AttributeNumber:
		return "number"
	case AttributeArray:
		return "array"
	default:
		return "unknown"
	}
}

// ParseAttributeKind is the inverse of AttributeKind.String.
func ParseAttributeKind(kind string) (AttributeKind, error) {
	switch kind {
	case "text":
		return AttributeText, nil
	case "number":
		return AttributeNumber, nil
	case "array":
		return AttributeArray, nil
	default:
		return AttributeText, fmt.Errorf("unknown attribute kind '%s'", kind)
	}
}

// AttributeValue is a tagged union of text, number and a text-encoded array.
// Arrays keep their encoded form in Text.
type AttributeValue struct {
	Kind   AttributeKind
	Text   string
	Number float64
}

func TextValue(s string) AttributeValue {
	return AttributeValue{Kind: AttributeText, Text: s}
}

func NumberValue(f float64) AttributeValue {
	return AttributeValue{Kind: AttributeNumber, Number: f}
}

// ArrayValue encodes numbers as "[v1, v2, ...]".
func ArrayValue(values []float64) AttributeValue {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatNumber(v)
	}
	return AttributeValue{Kind: AttributeArray, Text: "[" + strings.Join(parts, ", ") + "]"}
}

// ValueOf converts a raw value read by a format adapter into an AttributeValue.
// Strings and byte slices become text, numeric scalars become numbers and
// numeric slices become arrays; single element slices collapse to a scalar.
func ValueOf(raw any) AttributeValue {
	switch v := raw.(type) {
	case nil:
		return TextValue("")
	case AttributeValue:
		return v
	case string:
		return TextValue(v)
	case []byte:
		return TextValue(strings.TrimRight(string(v), "\x00"))
	case bool:
		if v {
			return NumberValue(1)
		}
		return NumberValue(0)
	}

	if f, ok := toFloat(raw); ok {
		return NumberValue(f)
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() == 1 {
			return ValueOf(rv.Index(0).Interface())
		}

		values := make([]float64, 0, rv.Len())
		texts := make([]string, 0, rv.Len())
		numeric := true
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			texts = append(texts, fmt.Sprint(item))
			if f, ok := toFloat(item); ok {
				values = append(values, f)
			} else {
				numeric = false
			}
		}
		if numeric {
			return ArrayValue(values)
		}
		return AttributeValue{Kind: AttributeArray, Text: "[" + strings.Join(texts, ", ") + "]"}
	}

	return TextValue(fmt.Sprint(raw))
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func (v AttributeValue) Equal(other AttributeValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	if v.Kind == AttributeNumber {
		return v.Number == other.Number || (math.IsNaN(v.Number) && math.IsNaN(other.Number))
	}
	return v.Text == other.Text
}

// Encode returns the column representation used by relational stores.
func (v AttributeValue) Encode() string {
	if v.Kind == AttributeNumber {
		return formatNumber(v.Number)
	}
	return v.Text
}

// DecodeAttributeValue rebuilds a value from its kind and encoded column.
func DecodeAttributeValue(kind AttributeKind, encoded string) (AttributeValue, error) {
	switch kind {
	case AttributeNumber:
		f, err := strconv.ParseFloat(encoded, 64)
		if err != nil {
			return AttributeValue{}, fmt.Errorf("invalid number attribute '%s': %w", encoded, err)
		}
		return NumberValue(f), nil
	case AttributeArray:
		return AttributeValue{Kind: AttributeArray, Text: encoded}, nil
	default:
		return TextValue(encoded), nil
	}
}

func (v AttributeValue) String() string {
	if v.Kind == AttributeNumber {
		if v.Number != 0 && math.Abs(v.Number) < 0.01 {
			return strconv.FormatFloat(v.Number, 'g', 2, 64)
		}
		return formatNumber(v.Number)
	}
	return v.Text
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type Attribute struct {
	Name  string
	Value AttributeValue
}

func NewAttribute(name string, raw any) Attribute {
	return Attribute{Name: name, Value: ValueOf(raw)}
}

// Attributes is an ordered attribute list. Comparisons treat it as a set.
type Attributes []Attribute

func (a Attributes) Get(name string) (AttributeValue, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return AttributeValue{}, false
}

func (a Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Set replaces the value of name, appending it when missing.
func (a *Attributes) Set(name string, value AttributeValue) {
	for i := range *a {
		if (*a)[i].Name == name {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attribute{Name: name, Value: value})
}

func (a Attributes) Names() map[string]struct{} {
	names := make(map[string]struct{}, len(a))
	for _, attr := range a {
		names[attr.Name] = struct{}{}
	}
	return names
}

// SameNames reports whether both lists hold the same attribute names with the
// same cardinality.
func (a Attributes) SameNames(other Attributes) bool {
	if len(a) != len(other) {
		return false
	}
	names := a.Names()
	for _, attr := range other {
		if _, ok := names[attr.Name]; !ok {
			return false
		}
	}
	return len(names) == len(other.Names())
}

// EqualSet reports whether both lists hold the same (name, value) pairs,
// regardless of order.
func (a Attributes) EqualSet(other Attributes) bool {
	return a.equalExcept(other, nil)
}

func (a Attributes) equalExcept(other Attributes, skip map[string]struct{}) bool {
	if !a.SameNames(other) {
		return false
	}
	for _, attr := range a {
		if _, ok := skip[attr.Name]; ok {
			continue
		}
		value, _ := other.Get(attr.Name)
		if !attr.Value.Equal(value) {
			return false
		}
	}
	return true
}

func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	clone := make(Attributes, len(a))
	copy(clone, a)
	return clone
}
