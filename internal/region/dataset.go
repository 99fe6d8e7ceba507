// Package region holds the polygon dataset model, the dataset registry, and
// the point-in-polygon matcher.
package region

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Point is a geocoded longitude/latitude pair. The absent point (a failed or
// missing geocode) is represented as a nil *Point everywhere, never as (0,0).
type Point struct {
	Lon float64
	Lat float64
}

// Property is one named scalar value on a Feature. Properties keep the order
// they were read in, which fixes the dataset schema order.
type Property struct {
	Key   string
	Value any
}

// Feature is one polygon or multi-polygon geometry with named properties.
type Feature struct {
	Geom  geom.T
	Props []Property
}

// Prop returns the value for key and whether the feature carries it.
func (f *Feature) Prop(key string) (any, bool) {
	for _, p := range f.Props {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Dataset is a named, immutable collection of polygon features. Its property
// schema is the ordered key set of the first feature; later features with
// extra keys do not widen it, so output columns stay stable even for
// heterogeneous inputs.
type Dataset struct {
	name     string
	features []Feature
	schema   []string
}

// NewDataset builds a dataset and derives its schema. An empty feature list
// is allowed and yields an empty schema.
func NewDataset(name string, features []Feature) (*Dataset, error) {
	if name == "" {
		return nil, eris.New("region: dataset name required")
	}

	var schema []string
	if len(features) > 0 {
		seen := make(map[string]bool, len(features[0].Props))
		for _, p := range features[0].Props {
			if seen[p.Key] {
				continue
			}
			seen[p.Key] = true
			schema = append(schema, p.Key)
		}
	}

	return &Dataset{name: name, features: features, schema: schema}, nil
}

// Name returns the dataset's unique name.
func (d *Dataset) Name() string { return d.name }

// Features returns the stored features in load order. Callers must not
// modify the returned slice.
func (d *Dataset) Features() []Feature { return d.features }

// Schema returns the ordered property keys of the dataset. Callers must not
// modify the returned slice.
func (d *Dataset) Schema() []string { return d.schema }

// Len returns the number of features.
func (d *Dataset) Len() int { return len(d.features) }

// ColumnName returns the namespaced output column for a dataset property,
// "{dataset}_{key}".
func ColumnName(dataset, key string) string {
	return dataset + "_" + key
}
