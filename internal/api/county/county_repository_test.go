package county

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-county-ndvi/internal/earthengine"
)

// MockFeatureSource is a mock implementation of FeatureSource
type MockFeatureSource struct {
	mock.Mock
}

func (m *MockFeatureSource) ComputeFeatures(ctx context.Context, fc earthengine.FeatureCollection) ([]earthengine.GeoJSONFeature, error) {
	args := m.Called(ctx, fc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]earthengine.GeoJSONFeature), args.Error(1)
}

func TestRepositoryListCounties(t *testing.T) {
	source := new(MockFeatureSource)
	features := []earthengine.GeoJSONFeature{
		{
			Type:     "Feature",
			Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[[[36.6,-1.4],[37.1,-1.4],[37.1,-1.1],[36.6,-1.4]]]}`),
			Properties: map[string]any{
				"COUNTY_COD":   float64(47),
				"COUNTY_NAM":   "NAIROBI",
				"CONSTITUEN":   "WESTLANDS",
				"Shape_Area":   0.057,
				"system:index": "00000000000000000001",
			},
		},
		{Type: "Feature", Properties: map[string]any{"COUNTY_NAM": "NO CODE"}},
		{Type: "Feature", Properties: map[string]any{"COUNTY_COD": "12", "COUNTY_NAM": "MERU"}},
	}
	source.On("ComputeFeatures", mock.Anything, mock.MatchedBy(func(fc earthengine.FeatureCollection) bool {
		return fc.Value().Function() == "Collection.loadTable" &&
			fc.Value().Arg("tableId").ConstantValue() == "projects/p/assets/counties"
	})).Return(features, nil).Once()

	repo := NewEarthEngineRepository(source, "projects/p/assets/counties", testLogger())
	counties, err := repo.ListCounties(context.Background())
	require.NoError(t, err)
	require.Len(t, counties, 3)

	nairobi := counties[0]
	assert.Equal(t, 47, nairobi.Code)
	assert.Equal(t, "NAIROBI", nairobi.Name)
	assert.Equal(t, "WESTLANDS", nairobi.Constituency)
	assert.Equal(t, "", nairobi.ConstituencyCode)
	assert.Equal(t, float64(47), nairobi.CountyCode)
	assert.JSONEq(t, string(features[0].Geometry), string(nairobi.Geometry))

	// kept in the listing without a usable code
	unkeyed := counties[1]
	assert.Equal(t, 0, unkeyed.Code)
	assert.Equal(t, "NO CODE", unkeyed.Name)
	assert.Equal(t, "", unkeyed.CountyCode)

	assert.Equal(t, 12, counties[2].Code)
	assert.JSONEq(t, "null", string(counties[2].Geometry))
	source.AssertExpectations(t)
}

func TestRepositoryListCountiesError(t *testing.T) {
	source := new(MockFeatureSource)
	source.On("ComputeFeatures", mock.Anything, mock.Anything).Return(nil, earthengine.ErrUnavailable).Once()

	repo := NewEarthEngineRepository(source, "projects/p/assets/counties", testLogger())
	_, err := repo.ListCounties(context.Background())
	assert.ErrorIs(t, err, earthengine.ErrUnavailable)
}

func TestGeometryExpression(t *testing.T) {
	g := Geometry("projects/p/assets/counties", 47)
	v := g.Value()
	require.Equal(t, "Feature.geometry", v.Function())

	first := v.Arg("feature")
	require.Equal(t, "Collection.first", first.Function())

	filter := first.Arg("collection").Arg("filter")
	assert.Equal(t, "Filter.equals", filter.Function())
	assert.Equal(t, PropCode, filter.Arg("leftField").ConstantValue())
	assert.Equal(t, 47, filter.Arg("rightValue").ConstantValue())
}
