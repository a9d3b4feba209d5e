package earthengine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeNode(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var node map[string]any
	require.NoError(t, json.Unmarshal(raw, &node))
	return node
}

func TestEncodeInvocation(t *testing.T) {
	img := LoadImageCollection("COPERNICUS/S2_SR_HARMONIZED").FilterDate("2023-01-01", "2023-03-31").Mean()

	expr, err := Encode(img.Value())
	require.NoError(t, err)
	assert.Equal(t, "0", expr.Result)
	require.Len(t, expr.Values, 1)

	root := decodeNode(t, expr.Values["0"])
	invocation := root["functionInvocationValue"].(map[string]any)
	assert.Equal(t, "reduce.mean", invocation["functionName"])

	filtered := invocation["arguments"].(map[string]any)["collection"].(map[string]any)["functionInvocationValue"].(map[string]any)
	assert.Equal(t, "Collection.filter", filtered["functionName"])

	filter := filtered["arguments"].(map[string]any)["filter"].(map[string]any)["functionInvocationValue"].(map[string]any)
	assert.Equal(t, "Filter.dateRangeContains", filter["functionName"])
	dateRange := filter["arguments"].(map[string]any)["leftValue"].(map[string]any)["functionInvocationValue"].(map[string]any)
	args := dateRange["arguments"].(map[string]any)
	assert.Equal(t, map[string]any{"constantValue": "2023-01-01"}, args["start"])
	assert.Equal(t, map[string]any{"constantValue": "2023-03-31"}, args["end"])
}

func TestEncodeHoistsFunctionBodies(t *testing.T) {
	coll := LoadImageCollection("LANDSAT/LC08/C02/T1_L2").
		Map(func(img Image) Image { return img.Select("SR_B4") }).
		Map(func(img Image) Image { return img.Multiply(ConstantImage(2)) })

	expr, err := Encode(coll.Value())
	require.NoError(t, err)
	assert.Equal(t, "0", expr.Result)
	// root plus one body per mapped function
	require.Len(t, expr.Values, 3)

	root := decodeNode(t, expr.Values["0"])
	outer := root["functionInvocationValue"].(map[string]any)
	assert.Equal(t, "Collection.map", outer["functionName"])

	def := outer["arguments"].(map[string]any)["baseAlgorithm"].(map[string]any)["functionDefinitionValue"].(map[string]any)
	assert.Equal(t, []any{"_MAPPING_VAR_0_0"}, def["argumentNames"])

	bodyKey := def["body"].(string)
	body := decodeNode(t, expr.Values[bodyKey])
	assert.Equal(t, "Image.multiply", body["functionInvocationValue"].(map[string]any)["functionName"])
	image1 := body["functionInvocationValue"].(map[string]any)["arguments"].(map[string]any)["image1"]
	assert.Equal(t, map[string]any{"argumentReference": "_MAPPING_VAR_0_0"}, image1)
}

func TestEncodeSharesClosedSubgraphs(t *testing.T) {
	composite := LoadImageCollection("LANDSAT/LC08/C02/T1_L2").
		Map(func(img Image) Image { return img.Select("SR_B4") }).
		Mean()
	v := composite.Select("SR_B5").Add(composite.Select("SR_B4")).Value()

	expr, err := Encode(v)
	require.NoError(t, err)
	// root, the shared composite and the mapped body
	require.Len(t, expr.Values, 3)

	b, err := json.Marshal(expr)
	require.NoError(t, err)
	out := string(b)
	assert.Equal(t, 1, strings.Count(out, `"functionDefinitionValue"`))
	assert.Equal(t, 1, strings.Count(out, `"functionName":"reduce.mean"`))
	assert.Equal(t, 2, strings.Count(out, `"valueReference"`))

	root := decodeNode(t, expr.Values[expr.Result])
	args := root["functionInvocationValue"].(map[string]any)["arguments"].(map[string]any)
	left := args["image1"].(map[string]any)["functionInvocationValue"].(map[string]any)["arguments"].(map[string]any)
	ref := left["input"].(map[string]any)["valueReference"].(string)
	shared := decodeNode(t, expr.Values[ref])
	assert.Equal(t, "reduce.mean", shared["functionInvocationValue"].(map[string]any)["functionName"])
}

func TestEncodeInlinesSubgraphsWithArguments(t *testing.T) {
	coll := LoadImageCollection("x").Map(func(img Image) Image {
		qa := img.Select("QA60")
		return qa.Add(qa)
	})

	expr, err := Encode(coll.Value())
	require.NoError(t, err)
	require.Len(t, expr.Values, 2)

	b, err := json.Marshal(expr)
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"valueReference"`)
	assert.Equal(t, 2, strings.Count(string(b), `"argumentReference":"_MAPPING_VAR_0_0"`))
}

func TestEncodeIsDeterministic(t *testing.T) {
	build := func() *Value {
		return LoadImageCollection("x").
			Map(func(img Image) Image { return img.Select("a") }).
			Map(func(img Image) Image { return img.Select("b") }).Value()
	}
	first, err := Encode(build())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Encode(build())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEncodeKeepsFalsyConstants(t *testing.T) {
	v := Invoke("Test.fn", map[string]*Value{
		"zero":  Constant(0),
		"false": Constant(false),
		"null":  Constant(nil),
		"skip":  nil,
	})
	expr, err := Encode(v)
	require.NoError(t, err)

	args := decodeNode(t, expr.Values["0"])["functionInvocationValue"].(map[string]any)["arguments"].(map[string]any)
	assert.Equal(t, map[string]any{"constantValue": float64(0)}, args["zero"])
	assert.Equal(t, map[string]any{"constantValue": false}, args["false"])
	assert.Equal(t, map[string]any{"constantValue": nil}, args["null"])
	assert.NotContains(t, args, "skip")
}

func TestEncodeArraysAndDictionaries(t *testing.T) {
	v := Dictionary(map[string]*Value{"bands": Strings("B4", "B3", "B2")})
	expr, err := Encode(v)
	require.NoError(t, err)

	node := decodeNode(t, expr.Values["0"])
	values := node["dictionaryValue"].(map[string]any)["values"].(map[string]any)
	bands := values["bands"].(map[string]any)["arrayValue"].(map[string]any)["values"].([]any)
	require.Len(t, bands, 3)
	assert.Equal(t, map[string]any{"constantValue": "B3"}, bands[1])
}

func TestReducerCombine(t *testing.T) {
	r := ReducerMean().Combine(ReducerStdDev(), "", true)
	assert.Equal(t, "Reducer.combine", r.Value().Function())
	assert.Equal(t, "Reducer.mean", r.Value().Arg("reducer1").Function())
	assert.Equal(t, "Reducer.stdDev", r.Value().Arg("reducer2").Function())
	assert.Equal(t, true, r.Value().Arg("sharedInputs").ConstantValue())
}

func TestBit(t *testing.T) {
	assert.Equal(t, float64(1024), Bit(10).Value().Arg("value").ConstantValue())
	assert.Panics(t, func() { Bit(31) })
}
