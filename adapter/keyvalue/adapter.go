package keyvalue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mwantia/metacat/adapter"
	"github.com/mwantia/metacat/data"
	"gopkg.in/yaml.v3"
)

// FileType is the identifier of the key-value adapter.
const FileType = "kv"

// AttributeDimensionNames lists the coordinate keys of a variable, comma separated.
const AttributeDimensionNames = "DimensionNames"

var (
	coordinateDrop = map[string]struct{}{
		"REFERENCE_LIST": {},
	}
	variableDrop = map[string]struct{}{
		"DIMENSION_LIST":        {},
		"REFERENCE_LIST":        {},
		"coordinates":           {},
		AttributeDimensionNames: {},
	}
)

// Adapter reads hierarchical key-value documents in YAML or JSON:
//
//	attributes: {title: ...}
//	keys:
//	  time: {values: [0, 24, 48], attributes: {units: hours since 2000-01-01}}
//	  temp: {shape: [3], attributes: {long_name: Temperature}}
//	  surface: {keys: {...}}
//
// Keys do not say whether they are coordinates, so the adapter is given the
// coordinate key names up front.
type Adapter struct {
	coordNames []string
}

func New(coordNames []string) *Adapter {
	return &Adapter{coordNames: coordNames}
}

func (*Adapter) Name() string {
	return FileType
}

func (*Adapter) Extensions() []string {
	return []string{"yaml", "yml", "json", "YAML", "YML", "JSON"}
}

// CoordinateNames returns the configured coordinate key names.
func (a *Adapter) CoordinateNames() []string {
	return a.coordNames
}

func (a *Adapter) Open(ctx context.Context, path string) (*adapter.Contents, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, adapter.Unreadable(path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, adapter.Unreadable(path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, adapter.Unreadable(path, fmt.Errorf("%w: empty document", errLayout))
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, adapter.Unreadable(path, fmt.Errorf("%w: document is not a mapping", errLayout))
	}

	contents := &adapter.Contents{}
	if contents.Attributes, err = attributes(field(root, fieldAttributes), nil); err != nil {
		return nil, adapter.Unreadable(path, err)
	}

	w := &walker{adapter: a, contents: contents}
	if err := w.descend(root, "", nil); err != nil {
		return nil, classify(path, err)
	}
	return contents, nil
}

// classify keeps structural resolution errors fatal and reports everything
// else as an unreadable file.
func classify(path string, err error) error {
	if errors.Is(err, data.ErrUnresolvedDimension) {
		return err
	}
	return adapter.Unreadable(path, err)
}

// scoped is a coordinate visible from the group being read.
type scoped struct {
	name   string
	ref    string
	length int
}

type walker struct {
	adapter  *Adapter
	contents *adapter.Contents
}

// descend reads one group. Coordinates of enclosing groups stay visible and
// are shadowed by coordinates of the same name further down.
func (w *walker) descend(group *yaml.Node, path string, outer []scoped) error {
	keys, err := entries(field(group, fieldKeys))
	if err != nil {
		return err
	}

	scope := make([]scoped, 0, len(outer)+len(w.adapter.coordNames))
	coordinates := make(map[string]struct{})

	for _, name := range w.adapter.coordNames {
		for _, e := range keys {
			if e.key != name || !isDataset(e.value) {
				continue
			}

			ref := path + "/" + e.key
			attrs, err := attributes(field(e.value, fieldAttributes), coordinateDrop)
			if err != nil {
				return fmt.Errorf("%s: %w", ref, err)
			}
			s, err := samples(e.value, adapter.FillValues(attrs))
			if err != nil {
				return fmt.Errorf("%s: %w", ref, err)
			}

			w.contents.Dimensions = append(w.contents.Dimensions, adapter.Dimension{
				Name:       e.key,
				Ref:        ref,
				Samples:    s,
				Attributes: attrs,
			})
			scope = append(scope, scoped{name: e.key, ref: ref, length: len(s)})
			coordinates[e.key] = struct{}{}
			break
		}
	}
	for _, s := range outer {
		if _, ok := coordinates[s.name]; !ok {
			scope = append(scope, s)
		}
	}

	for _, e := range keys {
		ref := path + "/" + e.key
		switch {
		case isGroup(e.value):
			if err := w.descend(e.value, ref, scope); err != nil {
				return err
			}
		case isDataset(e.value):
			if _, ok := coordinates[e.key]; ok {
				continue
			}
			if err := w.variable(e.value, ref, scope); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: line %d: key '%s' is neither a group nor a dataset", errLayout, e.value.Line, ref)
		}
	}
	return nil
}

func (w *walker) variable(node *yaml.Node, name string, scope []scoped) error {
	dims, err := shape(node)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	attrNode := field(node, fieldAttributes)
	attrs, err := attributes(attrNode, variableDrop)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	refs := make([]string, len(dims))
	found := make([]bool, len(dims))

	if names, ok := text(attrNode, AttributeDimensionNames); ok {
		for d, dimName := range strings.Split(names, ",") {
			if d >= len(dims) {
				break
			}
			dimName = strings.TrimSpace(dimName)
			s, ok := lookup(scope, dimName)
			if !ok {
				return data.UnresolvedDimension(name, dimName)
			}
			refs[d], found[d] = s.ref, true
		}
	}

	// Remaining dimensions are matched by length; the match must be unique.
	for d, extent := range dims {
		if found[d] {
			continue
		}
		var match *scoped
		for i := range scope {
			if scope[i].length != extent {
				continue
			}
			if match != nil {
				return data.UnresolvedDimension(name, fmt.Sprintf("#%d (ambiguous length %d)", d, extent))
			}
			match = &scope[i]
		}
		if match == nil {
			return data.UnresolvedDimension(name, fmt.Sprintf("#%d (length %d)", d, extent))
		}
		refs[d] = match.ref
	}

	w.contents.Variables = append(w.contents.Variables, adapter.Variable{
		Name:          name,
		DimensionRefs: refs,
		Attributes:    attrs,
	})
	return nil
}

func lookup(scope []scoped, name string) (scoped, bool) {
	for _, s := range scope {
		if s.name == name {
			return s, true
		}
	}
	return scoped{}, false
}

var _ adapter.Adapter = (*Adapter)(nil)
