package earthengine

import "encoding/json"

// FeatureCollection is a server-side table of features.
type FeatureCollection struct{ v *Value }

// Feature is a single server-side feature.
type Feature struct{ v *Value }

// Geometry is a server-side geometry.
type Geometry struct{ v *Value }

// Filter is a server-side predicate over collection elements.
type Filter struct{ v *Value }

func (fc FeatureCollection) Value() *Value { return fc.v }
func (f Feature) Value() *Value            { return f.v }
func (g Geometry) Value() *Value           { return g.v }
func (f Filter) Value() *Value             { return f.v }

// LoadFeatureCollection references a table asset by id.
func LoadFeatureCollection(tableID string) FeatureCollection {
	return FeatureCollection{Invoke("Collection.loadTable", map[string]*Value{"tableId": Constant(tableID)})}
}

// Filter keeps the features matching f.
func (fc FeatureCollection) Filter(f Filter) FeatureCollection {
	return FeatureCollection{Invoke("Collection.filter", map[string]*Value{
		"collection": fc.v,
		"filter":     f.v,
	})}
}

// First is the first feature of the collection, or null when it is empty.
func (fc FeatureCollection) First() Feature {
	return Feature{Invoke("Collection.first", map[string]*Value{"collection": fc.v})}
}

// Geometry is the feature footprint.
func (f Feature) Geometry() Geometry {
	return Geometry{Invoke("Feature.geometry", map[string]*Value{"feature": f.v})}
}

// Get reads a feature property.
func (f Feature) Get(property string) Object {
	return Object{Invoke("Element.get", map[string]*Value{
		"object":   f.v,
		"property": Constant(property),
	})}
}

// FilterEq matches elements whose property equals value.
func FilterEq(property string, value any) Filter {
	return Filter{Invoke("Filter.equals", map[string]*Value{
		"leftField":  Constant(property),
		"rightValue": Constant(value),
	})}
}

// FilterLt matches elements whose property is strictly less than value.
func FilterLt(property string, value any) Filter {
	return Filter{Invoke("Filter.lessThan", map[string]*Value{
		"leftField":  Constant(property),
		"rightValue": Constant(value),
	})}
}

// FilterDate matches elements whose system:time_start lies in [start, end).
func FilterDate(start, end string) Filter {
	return Filter{Invoke("Filter.dateRangeContains", map[string]*Value{
		"leftValue": Invoke("DateRange", map[string]*Value{
			"start": Constant(start),
			"end":   Constant(end),
		}),
		"rightField": Constant("system:time_start"),
	})}
}

// FilterBounds matches elements whose footprint intersects g.
func FilterBounds(g Geometry) Filter {
	return Filter{Invoke("Filter.intersects", map[string]*Value{
		"leftField":  Constant(".all"),
		"rightValue": g.v,
	})}
}

// GeoJSONFeature is one element of a computed feature collection.
type GeoJSONFeature struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}
