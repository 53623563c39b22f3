package keyvalue

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/mwantia/metacat/data"
	"gopkg.in/yaml.v3"
)

const (
	fieldAttributes = "attributes"
	fieldKeys       = "keys"
	fieldValues     = "values"
	fieldShape      = "shape"
)

var errLayout = errors.New("invalid document layout")

// entry is one key of a mapping node, in document order.
type entry struct {
	key   string
	value *yaml.Node
}

func entries(node *yaml.Node) ([]entry, error) {
	if node == nil {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: expected a mapping", errLayout, node.Line)
	}

	result := make([]entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		result = append(result, entry{key: node.Content[i].Value, value: node.Content[i+1]})
	}
	return result, nil
}

func field(node *yaml.Node, name string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == name {
			return node.Content[i+1]
		}
	}
	return nil
}

func isGroup(node *yaml.Node) bool {
	return field(node, fieldKeys) != nil
}

func isDataset(node *yaml.Node) bool {
	return field(node, fieldValues) != nil || field(node, fieldShape) != nil
}

// attributes decodes an attribute mapping. Names listed in drop are skipped.
func attributes(node *yaml.Node, drop map[string]struct{}) (data.Attributes, error) {
	list, err := entries(node)
	if err != nil {
		return nil, err
	}

	var result data.Attributes
	for _, e := range list {
		if _, ok := drop[e.key]; ok {
			continue
		}

		var raw any
		switch e.value.Kind {
		case yaml.ScalarNode, yaml.SequenceNode:
			if err := e.value.Decode(&raw); err != nil {
				return nil, fmt.Errorf("attribute '%s': %w", e.key, err)
			}
		default:
			return nil, fmt.Errorf("%w: line %d: attribute '%s' is not a scalar or list", errLayout, e.value.Line, e.key)
		}
		result = append(result, data.NewAttribute(e.key, raw))
	}
	return result, nil
}

// text returns the attribute value of name as a string.
func text(node *yaml.Node, name string) (string, bool) {
	v := field(node, name)
	if v == nil || v.Kind != yaml.ScalarNode {
		return "", false
	}
	return v.Value, true
}

// shape returns the explicit shape of a dataset, or the shape of its values.
func shape(node *yaml.Node) ([]int, error) {
	if s := field(node, fieldShape); s != nil {
		var dims []int
		if err := s.Decode(&dims); err != nil {
			return nil, fmt.Errorf("%w: line %d: shape: %v", errLayout, s.Line, err)
		}
		for _, d := range dims {
			if d < 0 {
				return nil, fmt.Errorf("%w: line %d: negative extent %d", errLayout, s.Line, d)
			}
		}
		return dims, nil
	}
	return valueShape(field(node, fieldValues))
}

// valueShape infers the extents of nested, rectangular value lists.
func valueShape(node *yaml.Node) ([]int, error) {
	var dims []int
	for node != nil && node.Kind == yaml.SequenceNode {
		dims = append(dims, len(node.Content))
		if len(node.Content) == 0 {
			break
		}
		for _, item := range node.Content[1:] {
			if item.Kind != node.Content[0].Kind || (item.Kind == yaml.SequenceNode && len(item.Content) != len(node.Content[0].Content)) {
				return nil, fmt.Errorf("%w: line %d: values are not rectangular", errLayout, item.Line)
			}
		}
		node = node.Content[0]
	}
	return dims, nil
}

// samples reads one-dimensional coordinate values. Null and NaN entries and
// entries equal to a fill value are missing.
func samples(node *yaml.Node, fills []float64) ([]data.Sample, error) {
	values := field(node, fieldValues)
	if values == nil {
		return nil, fmt.Errorf("%w: line %d: coordinate without values", errLayout, node.Line)
	}
	if values.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: line %d: coordinate values must be a list", errLayout, values.Line)
	}

	result := make([]data.Sample, len(values.Content))
	for i, item := range values.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: coordinate values must be scalars", errLayout, item.Line)
		}
		if item.Tag == "!!null" {
			result[i] = data.Missing()
			continue
		}

		f, err := number(item)
		if err != nil {
			return nil, err
		}
		result[i] = data.SamplesOf([]float64{f}, fills...)[0]
	}
	return result, nil
}

func number(item *yaml.Node) (float64, error) {
	switch item.Value {
	case ".nan", ".NaN", ".NAN", "NaN", "nan":
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(item.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: '%s' is not a number", errLayout, item.Line, item.Value)
	}
	return f, nil
}
