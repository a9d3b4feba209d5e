package earthengine

import "fmt"

// Image is a server-side image.
type Image struct{ v *Value }

// ImageCollection is a server-side stack of images.
type ImageCollection struct{ v *Value }

// Reducer aggregates pixel values.
type Reducer struct{ v *Value }

// Object is any other computed value (numbers, dictionaries, geometries' properties).
type Object struct{ v *Value }

func (i Image) Value() *Value           { return i.v }
func (c ImageCollection) Value() *Value { return c.v }
func (r Reducer) Value() *Value         { return r.v }
func (o Object) Value() *Value          { return o.v }

// LoadImageCollection references a catalogue collection by id.
func LoadImageCollection(id string) ImageCollection {
	return ImageCollection{Invoke("ImageCollection.load", map[string]*Value{"id": Constant(id)})}
}

// ConstantImage is an image with a single constant band.
func ConstantImage(n float64) Image {
	return Image{Invoke("Image.constant", map[string]*Value{"value": Constant(n)})}
}

// Filter keeps the images matching f.
func (c ImageCollection) Filter(f Filter) ImageCollection {
	return ImageCollection{Invoke("Collection.filter", map[string]*Value{
		"collection": c.v,
		"filter":     f.v,
	})}
}

// FilterDate keeps images acquired in [start, end).
func (c ImageCollection) FilterDate(start, end string) ImageCollection {
	return c.Filter(FilterDate(start, end))
}

// FilterBounds keeps images intersecting g.
func (c ImageCollection) FilterBounds(g Geometry) ImageCollection {
	return c.Filter(FilterBounds(g))
}

// Map applies fn to every image on the server. The argument handed to fn is
// a reference, not an image that can be evaluated on its own.
func (c ImageCollection) Map(fn func(Image) Image) ImageCollection {
	const arg = "_MAPPING_VAR_0_0"
	body := fn(Image{Argument(arg)})
	return ImageCollection{Invoke("Collection.map", map[string]*Value{
		"collection":    c.v,
		"baseAlgorithm": Function([]string{arg}, body.v),
	})}
}

// Mean is the per-pixel mean composite of the collection.
func (c ImageCollection) Mean() Image {
	return Image{Invoke("reduce.mean", map[string]*Value{"collection": c.v})}
}

// Size counts the images in the collection.
func (c ImageCollection) Size() Object {
	return Object{Invoke("Collection.size", map[string]*Value{"collection": c.v})}
}

// Select picks bands by name or regular expression.
func (i Image) Select(bands ...string) Image {
	return Image{Invoke("Image.select", map[string]*Value{
		"input":         i.v,
		"bandSelectors": Strings(bands...),
	})}
}

// Rename sets the band names.
func (i Image) Rename(names ...string) Image {
	return Image{Invoke("Image.rename", map[string]*Value{
		"input": i.v,
		"names": Strings(names...),
	})}
}

func (i Image) binary(op string, other Image) Image {
	return Image{Invoke("Image."+op, map[string]*Value{
		"image1": i.v,
		"image2": other.v,
	})}
}

func (i Image) Add(other Image) Image        { return i.binary("add", other) }
func (i Image) Subtract(other Image) Image   { return i.binary("subtract", other) }
func (i Image) Multiply(other Image) Image   { return i.binary("multiply", other) }
func (i Image) Divide(other Image) Image     { return i.binary("divide", other) }
func (i Image) And(other Image) Image        { return i.binary("and", other) }
func (i Image) BitwiseAnd(other Image) Image { return i.binary("bitwiseAnd", other) }
func (i Image) Eq(other Image) Image         { return i.binary("eq", other) }
func (i Image) Lt(other Image) Image         { return i.binary("lt", other) }
func (i Image) Gte(other Image) Image        { return i.binary("gte", other) }

// UpdateMask masks out pixels where mask is zero.
func (i Image) UpdateMask(mask Image) Image {
	return Image{Invoke("Image.updateMask", map[string]*Value{
		"image": i.v,
		"mask":  mask.v,
	})}
}

// AddBands copies the bands of src into i, replacing same-named bands when overwrite is set.
func (i Image) AddBands(src Image, overwrite bool) Image {
	return Image{Invoke("Image.addBands", map[string]*Value{
		"dstImg":    i.v,
		"srcImg":    src.v,
		"overwrite": Constant(overwrite),
	})}
}

// Clip restricts the image footprint to g.
func (i Image) Clip(g Geometry) Image {
	return Image{Invoke("Image.clip", map[string]*Value{
		"input":    i.v,
		"geometry": g.v,
	})}
}

// ReduceRegion applies r over the pixels of i inside g and yields a dictionary
// keyed by band (and reducer output) name.
func (i Image) ReduceRegion(r Reducer, g Geometry, scale, maxPixels float64) Object {
	return Object{Invoke("Image.reduceRegion", map[string]*Value{
		"image":     i.v,
		"reducer":   r.v,
		"geometry":  g.v,
		"scale":     Constant(scale),
		"maxPixels": Constant(maxPixels),
	})}
}

// Get reads a key of a computed dictionary.
func (o Object) Get(key string) Object {
	return Object{Invoke("Dictionary.get", map[string]*Value{
		"dictionary": o.v,
		"key":        Constant(key),
	})}
}

func ReducerMean() Reducer   { return Reducer{Invoke("Reducer.mean", map[string]*Value{})} }
func ReducerStdDev() Reducer { return Reducer{Invoke("Reducer.stdDev", map[string]*Value{})} }

// Combine runs r and other in one pass. With sharedInputs both see the same
// band, so outputs are named <band>_mean, <band>_stdDev, and so on.
func (r Reducer) Combine(other Reducer, outputPrefix string, sharedInputs bool) Reducer {
	return Reducer{Invoke("Reducer.combine", map[string]*Value{
		"reducer1":     r.v,
		"reducer2":     other.v,
		"outputPrefix": Constant(outputPrefix),
		"sharedInputs": Constant(sharedInputs),
	})}
}

// Bit returns an image holding 1<<n, for QA bitmask tests.
func Bit(n uint) Image {
	if n > 30 {
		panic(fmt.Sprintf("earthengine: bit %d out of range", n))
	}
	return ConstantImage(float64(int64(1) << n))
}
