package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOf(t *testing.T) {
	assert.Equal(t, TextValue("Temperature"), ValueOf("Temperature"))
	assert.Equal(t, NumberValue(3), ValueOf(int32(3)))
	assert.Equal(t, NumberValue(1.5), ValueOf(float32(1.5)))
	assert.Equal(t, NumberValue(7), ValueOf([]int16{7}))
	assert.Equal(t, AttributeValue{Kind: AttributeArray, Text: "[1, 2.5, -3]"}, ValueOf([]float64{1, 2.5, -3}))
	assert.Equal(t, TextValue("abc"), ValueOf([]byte("abc\x00\x00")))
}

func TestAttributeValue_EncodeDecode(t *testing.T) {
	for _, v := range []AttributeValue{
		TextValue("hours since 2000-01-01"),
		NumberValue(-273.15),
		ArrayValue([]float64{0, 90}),
	} {
		decoded, err := DecodeAttributeValue(v.Kind, v.Encode())
		require.NoError(t, err)
		assert.True(t, v.Equal(decoded), "value %v", v)
	}

	_, err := DecodeAttributeValue(AttributeNumber, "not-a-number")
	assert.Error(t, err)
}

func TestAttributes_SetComparisons(t *testing.T) {
	a := Attributes{NewAttribute("units", "K"), NewAttribute("long_name", "Temperature")}
	b := Attributes{NewAttribute("long_name", "Temperature"), NewAttribute("units", "K")}
	c := Attributes{NewAttribute("long_name", "Temperature"), NewAttribute("units", "C")}
	d := Attributes{NewAttribute("long_name", "Temperature")}

	assert.True(t, a.EqualSet(b))
	assert.False(t, a.EqualSet(c))
	assert.True(t, a.SameNames(c))
	assert.False(t, a.SameNames(d))
	assert.False(t, d.SameNames(a))

	c.Set("units", TextValue(FileSpecific))
	value, ok := c.Get("units")
	require.True(t, ok)
	assert.Equal(t, FileSpecific, value.Text)
	assert.Len(t, c, 2)
}
