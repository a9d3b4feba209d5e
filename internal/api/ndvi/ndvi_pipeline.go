package ndvi

import (
	"fmt"

	ee "github.com/FACorreiaa/go-county-ndvi/internal/earthengine"
	"github.com/FACorreiaa/go-county-ndvi/internal/types"
)

const (
	BandNDVI      = "NDVI"
	BandNDVIClass = "NDVI_Class"

	// DefaultCloudPercentage is the scene-level cloud ceiling for Sentinel-2.
	DefaultCloudPercentage = 20.0

	maxPixels = 1e9
)

// ClassPalette colours the five NDVI classes, from bare ground to dense vegetation.
var ClassPalette = []string{"#8B0000", "#FF4500", "#FFFF00", "#90EE90", "#006400"}

// classBreaks are the lower bounds of classes 2..5.
var classBreaks = []float64{0.1, 0.3, 0.5, 0.7}

// Sensor describes how to turn a satellite collection into surface reflectance.
type Sensor struct {
	Name         string
	Label        string
	CollectionID string
	NIR          string
	Red          string
	RGB          []string
	Scale        float64
	// CloudProperty is the scene metadata filtered against the cloud
	// threshold; empty when the sensor relies on pixel masks only.
	CloudProperty string
	prepare       func(ee.Image) ee.Image
}

var Sentinel2 = Sensor{
	Name:          types.SatelliteSentinel2,
	Label:         "Sentinel-2",
	CollectionID:  "COPERNICUS/S2_SR_HARMONIZED",
	NIR:           "B8",
	Red:           "B4",
	RGB:           []string{"B4", "B3", "B2"},
	Scale:         10,
	CloudProperty: "CLOUDY_PIXEL_PERCENTAGE",
	prepare:       maskSentinel2Clouds,
}

var Landsat8 = Sensor{
	Name:         types.SatelliteLandsat8,
	Label:        "Landsat-8",
	CollectionID: "LANDSAT/LC08/C02/T1_L2",
	NIR:          "SR_B5",
	Red:          "SR_B4",
	RGB:          []string{"SR_B4", "SR_B3", "SR_B2"},
	Scale:        30,
	prepare: func(img ee.Image) ee.Image {
		return applyLandsatScaleFactors(maskLandsat8Clouds(img))
	},
}

// SensorByName resolves an API satellite name.
func SensorByName(name string) (Sensor, error) {
	switch name {
	case types.SatelliteSentinel2:
		return Sentinel2, nil
	case types.SatelliteLandsat8:
		return Landsat8, nil
	default:
		return Sensor{}, fmt.Errorf("unknown satellite %q", name)
	}
}

// maskSentinel2Clouds drops opaque-cloud (QA60 bit 10) and cirrus (bit 11)
// pixels and converts digital numbers to reflectance.
func maskSentinel2Clouds(img ee.Image) ee.Image {
	qa := img.Select("QA60")
	zero := ee.ConstantImage(0)
	mask := qa.BitwiseAnd(ee.Bit(10)).Eq(zero).
		And(qa.BitwiseAnd(ee.Bit(11)).Eq(zero))
	return img.UpdateMask(mask).Divide(ee.ConstantImage(10000))
}

// maskLandsat8Clouds drops cloud-shadow (QA_PIXEL bit 3) and cloud (bit 5) pixels.
func maskLandsat8Clouds(img ee.Image) ee.Image {
	qa := img.Select("QA_PIXEL")
	zero := ee.ConstantImage(0)
	mask := qa.BitwiseAnd(ee.Bit(3)).Eq(zero).
		And(qa.BitwiseAnd(ee.Bit(5)).Eq(zero))
	return img.UpdateMask(mask)
}

// applyLandsatScaleFactors converts Collection 2 Level-2 optical bands to
// reflectance and thermal bands to kelvin.
func applyLandsatScaleFactors(img ee.Image) ee.Image {
	optical := img.Select("SR_B.*").Multiply(ee.ConstantImage(0.0000275)).Add(ee.ConstantImage(-0.2))
	thermal := img.Select("ST_B.*").Multiply(ee.ConstantImage(0.00341802)).Add(ee.ConstantImage(149.0))
	return img.AddBands(optical, true).AddBands(thermal, true)
}

// Collection is the filtered, masked collection for a county and date range.
func (s Sensor) Collection(region ee.Geometry, q types.SceneQuery) ee.ImageCollection {
	coll := ee.LoadImageCollection(s.CollectionID).FilterDate(q.StartDate, q.EndDate)
	if s.CloudProperty != "" {
		coll = coll.Filter(ee.FilterLt(s.CloudProperty, q.CloudPercentage))
	}
	return coll.FilterBounds(region).Map(s.prepare)
}

// Composite is the mean image of the collection clipped to the county.
func (s Sensor) Composite(region ee.Geometry, q types.SceneQuery) ee.Image {
	return s.Collection(region, q).Mean().Clip(region)
}

// WithNDVI adds the NDVI band (NIR - RED) / (NIR + RED).
func (s Sensor) WithNDVI(img ee.Image) ee.Image {
	nir := img.Select(s.NIR)
	red := img.Select(s.Red)
	ndvi := nir.Subtract(red).Divide(nir.Add(red)).Rename(BandNDVI)
	return img.AddBands(ndvi, false)
}

// Classify maps NDVI to classes 1..5 using classBreaks.
func Classify(img ee.Image) ee.Image {
	ndvi := img.Select(BandNDVI)
	classes := ndvi.Lt(ee.ConstantImage(classBreaks[0]))
	for i, lower := range classBreaks {
		in := ndvi.Gte(ee.ConstantImage(lower))
		if i+1 < len(classBreaks) {
			in = in.And(ndvi.Lt(ee.ConstantImage(classBreaks[i+1])))
		}
		classes = classes.Add(in.Multiply(ee.ConstantImage(float64(i + 2))))
	}
	return classes.Rename(BandNDVIClass)
}

// ClassOf is the class Classify assigns to a single NDVI value.
func ClassOf(ndvi float64) int {
	class := 1
	for _, lower := range classBreaks {
		if ndvi >= lower {
			class++
		}
	}
	return class
}

// Statistics is the mean and standard deviation of NDVI over the county,
// keyed NDVI_mean and NDVI_stdDev.
func (s Sensor) Statistics(ndviImage ee.Image, region ee.Geometry) ee.Object {
	reducer := ee.ReducerMean().Combine(ee.ReducerStdDev(), "", true)
	return ndviImage.Select(BandNDVI).ReduceRegion(reducer, region, s.Scale, maxPixels)
}

// MeanNDVI is the county mean NDVI as a single number (or null).
func (s Sensor) MeanNDVI(ndviImage ee.Image, region ee.Geometry) ee.Object {
	return ndviImage.Select(BandNDVI).ReduceRegion(ee.ReducerMean(), region, s.Scale, maxPixels).Get(BandNDVI)
}

// RGBVis renders true colour reflectance.
func (s Sensor) RGBVis() ee.VisParams {
	return ee.VisParams{Bands: s.RGB, Min: 0.0, Max: 0.3}
}

// ClassVis renders the classified NDVI.
func ClassVis() ee.VisParams {
	return ee.VisParams{Min: 1, Max: 5, Palette: ClassPalette}
}
