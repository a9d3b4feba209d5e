package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Satellite names accepted by the API.
const (
	SatelliteSentinel2 = "sentinel2"
	SatelliteLandsat8  = "landsat8"
)

// FlexInt decodes a JSON number or a numeric string. The frontend sends
// county codes and years either way.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		*n = FlexInt(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if f != float64(int(f)) {
		return fmt.Errorf("invalid integer %v", f)
	}
	*n = FlexInt(f)
	return nil
}

// SceneRequest is the body of POST /api/sentinel2 and POST /api/landsat8.
// CloudPercentage is only applied to Sentinel-2 scenes.
type SceneRequest struct {
	CountyCode      FlexInt  `json:"county_code" validate:"required" swaggertype:"integer" example:"47"`
	StartDate       string   `json:"start_date" validate:"required,datetime=2006-01-02" example:"2023-01-01"`
	EndDate         string   `json:"end_date" validate:"required,datetime=2006-01-02" example:"2023-06-30"`
	CloudPercentage *float64 `json:"cloud_percentage,omitempty" validate:"omitempty,min=0,max=100" example:"20"`
}

// TrendRequest is the body of POST /api/ndvi_trend. Zero values take defaults.
type TrendRequest struct {
	CountyCode FlexInt `json:"county_code" validate:"required" swaggertype:"integer" example:"47"`
	StartYear  FlexInt `json:"start_year,omitempty" validate:"omitempty,min=1984,max=2100" swaggertype:"integer" example:"2020"`
	EndYear    FlexInt `json:"end_year,omitempty" validate:"omitempty,min=1984,max=2100" swaggertype:"integer" example:"2023"`
	Satellite  string  `json:"satellite,omitempty" validate:"omitempty,oneof=sentinel2 landsat8" example:"sentinel2"`
}

// SceneQuery is a validated request for one composite over one county.
type SceneQuery struct {
	CountyCode      int
	StartDate       string
	EndDate         string
	CloudPercentage float64
}

// Visualization describes how a tile layer was rendered.
type Visualization struct {
	Min     float64         `json:"min" example:"0"`
	Max     float64         `json:"max" example:"0.3"`
	Bands   []string        `json:"bands"`
	Palette []string        `json:"palette,omitempty"`
	Region  json.RawMessage `json:"region" swaggertype:"object"`
}

// AnalysisResponse is the body returned for a scene analysis.
type AnalysisResponse struct {
	Success           bool            `json:"success" example:"true"`
	AnalysisID        string          `json:"analysis_id"`
	Satellite         string          `json:"satellite" example:"sentinel2"`
	RGBVisualization  Visualization   `json:"rgb_visualization"`
	RGBTileURL        string          `json:"rgb_tile_url"`
	NDVIVisualization Visualization   `json:"ndvi_visualization"`
	NDVITileURL       string          `json:"ndvi_tile_url"`
	Statistics        json.RawMessage `json:"statistics" swaggertype:"object"`
	CountyName        string          `json:"county_name" example:"NAIROBI"`
}

// TrendPoint is the mean NDVI of one calendar year; NDVI is null when the
// year could not be evaluated.
type TrendPoint struct {
	Year  int      `json:"year" example:"2021"`
	NDVI  *float64 `json:"ndvi"`
	Class *int     `json:"ndvi_class,omitempty" example:"3"`
}

// TrendResponse is the body of POST /api/ndvi_trend.
type TrendResponse struct {
	Success      bool         `json:"success" example:"true"`
	Satellite    string       `json:"satellite" example:"sentinel2"`
	TrendData    []TrendPoint `json:"trend_data"`
	SlopePerYear *float64     `json:"slope_per_year,omitempty"`
	CountyName   string       `json:"county_name" example:"NAIROBI"`
}
