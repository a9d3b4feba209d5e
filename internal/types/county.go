package types

import "encoding/json"

// County is one administrative boundary of the curated counties table.
type County struct {
	Code     int             `json:"code" example:"47"`
	Name     string          `json:"name" example:"NAIROBI"`
	Geometry json.RawMessage `json:"geometry" swaggertype:"object"`

	// Attribute columns passed through as stored in the table.
	Constituency     any `json:"CONSTITUEN"`
	ConstituencyCode any `json:"CONST_CODE"`
	CountyCode       any `json:"COUNTY_COD"`
	CountyName       any `json:"COUNTY_NAM"`
	FeatureID        any `json:"ID_"`
	ObjectID         any `json:"OBJECTID"`
	ShapeArea        any `json:"Shape_Area"`
	ShapeLength      any `json:"Shape_Leng"`
	SystemIndex      any `json:"system:index"`
}

// CountiesResponse is the body of GET /api/counties.
type CountiesResponse struct {
	Success  bool     `json:"success" example:"true"`
	Counties []County `json:"counties"`
}
