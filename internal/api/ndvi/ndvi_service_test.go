package ndvi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-county-ndvi/internal/api/county"
	ee "github.com/FACorreiaa/go-county-ndvi/internal/earthengine"
	"github.com/FACorreiaa/go-county-ndvi/internal/types"
)

// MockNDVIRepository is a mock implementation of Repository
type MockNDVIRepository struct {
	mock.Mock
}

func (m *MockNDVIRepository) Statistics(ctx context.Context, sensor Sensor, q types.SceneQuery) (json.RawMessage, error) {
	args := m.Called(ctx, sensor.Name, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockNDVIRepository) TileURL(ctx context.Context, sensor Sensor, layer Layer, q types.SceneQuery) (string, error) {
	args := m.Called(ctx, sensor.Name, layer, q)
	return args.String(0), args.Error(1)
}

func (m *MockNDVIRepository) CollectionSize(ctx context.Context, sensor Sensor, q types.SceneQuery) (int, error) {
	args := m.Called(ctx, sensor.Name, q)
	return args.Int(0), args.Error(1)
}

func (m *MockNDVIRepository) MeanNDVI(ctx context.Context, sensor Sensor, q types.SceneQuery) (*float64, error) {
	args := m.Called(ctx, sensor.Name, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*float64), args.Error(1)
}

// MockCountyService is a mock implementation of county.Service
type MockCountyService struct {
	mock.Mock
}

func (m *MockCountyService) ListCounties(ctx context.Context) ([]types.County, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.County), args.Error(1)
}

func (m *MockCountyService) GetCounty(ctx context.Context, code int) (*types.County, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.County), args.Error(1)
}

func nairobi() *types.County {
	return &types.County{
		Code:     47,
		Name:     "NAIROBI",
		Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[[[36.6,-1.4],[37.1,-1.4],[37.1,-1.1],[36.6,-1.4]]]}`),
	}
}

func newTestService(repo Repository, counties county.Service) *ServiceImpl {
	return NewServiceImpl(repo, counties, time.Hour, time.Hour, 2, nil, testLogger())
}

func yearQuery(year int) types.SceneQuery {
	return types.SceneQuery{
		CountyCode:      47,
		StartDate:       fmt.Sprintf("%d-01-01", year),
		EndDate:         fmt.Sprintf("%d-12-31", year),
		CloudPercentage: DefaultCloudPercentage,
	}
}

func TestServiceAnalyze(t *testing.T) {
	q := sceneQuery()
	stats := json.RawMessage(`{"NDVI_mean":0.4213,"NDVI_stdDev":0.1102}`)

	repo := new(MockNDVIRepository)
	repo.On("Statistics", mock.Anything, "sentinel2", q).Return(stats, nil).Once()
	repo.On("TileURL", mock.Anything, "sentinel2", LayerRGB, q).Return("https://tiles/rgb/{z}/{x}/{y}", nil).Once()
	repo.On("TileURL", mock.Anything, "sentinel2", LayerNDVIClass, q).Return("https://tiles/ndvi/{z}/{x}/{y}", nil).Once()

	counties := new(MockCountyService)
	counties.On("GetCounty", mock.Anything, 47).Return(nairobi(), nil)

	service := newTestService(repo, counties)
	resp, err := service.Analyze(context.Background(), Sentinel2, q)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.AnalysisID)
	assert.Equal(t, "sentinel2", resp.Satellite)
	assert.Equal(t, "NAIROBI", resp.CountyName)
	assert.JSONEq(t, string(stats), string(resp.Statistics))
	assert.Equal(t, "https://tiles/rgb/{z}/{x}/{y}", resp.RGBTileURL)
	assert.Equal(t, "https://tiles/ndvi/{z}/{x}/{y}", resp.NDVITileURL)

	assert.Equal(t, []string{"B4", "B3", "B2"}, resp.RGBVisualization.Bands)
	assert.Equal(t, 0.3, resp.RGBVisualization.Max)
	assert.JSONEq(t, string(nairobi().Geometry), string(resp.RGBVisualization.Region))
	assert.Equal(t, []string{"NDVI"}, resp.NDVIVisualization.Bands)
	assert.Equal(t, ClassPalette, resp.NDVIVisualization.Palette)
	assert.Equal(t, 0.0, resp.NDVIVisualization.Min)
	assert.Equal(t, 1.0, resp.NDVIVisualization.Max)
	assert.JSONEq(t, string(nairobi().Geometry), string(resp.NDVIVisualization.Region))

	// second call is served from cache
	again, err := service.Analyze(context.Background(), Sentinel2, q)
	require.NoError(t, err)
	assert.Equal(t, resp.AnalysisID, again.AnalysisID)
	repo.AssertExpectations(t)
}

func TestServiceAnalyzeLandsatCacheIgnoresCloudThreshold(t *testing.T) {
	q := sceneQuery()
	repo := new(MockNDVIRepository)
	repo.On("Statistics", mock.Anything, "landsat8", q).Return(json.RawMessage(`{"NDVI_mean":0.38}`), nil).Once()
	repo.On("TileURL", mock.Anything, "landsat8", mock.Anything, q).Return("https://tiles/{z}/{x}/{y}", nil).Twice()

	counties := new(MockCountyService)
	counties.On("GetCounty", mock.Anything, 47).Return(nairobi(), nil)

	service := newTestService(repo, counties)
	first, err := service.Analyze(context.Background(), Landsat8, q)
	require.NoError(t, err)

	other := q
	other.CloudPercentage = 75
	second, err := service.Analyze(context.Background(), Landsat8, other)
	require.NoError(t, err)
	assert.Equal(t, first.AnalysisID, second.AnalysisID)
	repo.AssertExpectations(t)
}

func TestAnalysisCacheKey(t *testing.T) {
	q := sceneQuery()
	other := q
	other.CloudPercentage = 60

	assert.NotEqual(t, analysisCacheKey(Sentinel2, q), analysisCacheKey(Sentinel2, other))
	assert.Equal(t, analysisCacheKey(Landsat8, q), analysisCacheKey(Landsat8, other))
}

func TestServiceAnalyzeCountyNotFound(t *testing.T) {
	repo := new(MockNDVIRepository)
	counties := new(MockCountyService)
	counties.On("GetCounty", mock.Anything, 99).Return(nil, fmt.Errorf("county code 99: %w", county.ErrCountyNotFound))

	service := newTestService(repo, counties)
	q := sceneQuery()
	q.CountyCode = 99
	_, err := service.Analyze(context.Background(), Landsat8, q)
	assert.ErrorIs(t, err, county.ErrCountyNotFound)
	repo.AssertNotCalled(t, "Statistics", mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceAnalyzeRemoteFailure(t *testing.T) {
	q := sceneQuery()
	repo := new(MockNDVIRepository)
	repo.On("Statistics", mock.Anything, "landsat8", q).Return(nil, ee.ErrUnavailable)
	repo.On("TileURL", mock.Anything, "landsat8", mock.Anything, q).Return("https://tiles/{z}/{x}/{y}", nil)

	counties := new(MockCountyService)
	counties.On("GetCounty", mock.Anything, 47).Return(nairobi(), nil)

	service := newTestService(repo, counties)
	_, err := service.Analyze(context.Background(), Landsat8, q)
	assert.ErrorIs(t, err, ee.ErrUnavailable)

	// failures are not cached
	repo.ExpectedCalls = nil
	repo.On("Statistics", mock.Anything, "landsat8", q).Return(json.RawMessage(`{}`), nil).Once()
	repo.On("TileURL", mock.Anything, "landsat8", mock.Anything, q).Return("https://tiles/{z}/{x}/{y}", nil).Twice()
	_, err = service.Analyze(context.Background(), Landsat8, q)
	require.NoError(t, err)
}

func TestServiceTrend(t *testing.T) {
	repo := new(MockNDVIRepository)
	repo.On("CollectionSize", mock.Anything, "sentinel2", yearQuery(2020)).Return(14, nil)
	repo.On("MeanNDVI", mock.Anything, "sentinel2", yearQuery(2020)).Return(ptr(0.412345), nil)
	// no scenes: omitted
	repo.On("CollectionSize", mock.Anything, "sentinel2", yearQuery(2021)).Return(0, nil)
	// remote failure: null
	repo.On("CollectionSize", mock.Anything, "sentinel2", yearQuery(2022)).Return(9, nil)
	repo.On("MeanNDVI", mock.Anything, "sentinel2", yearQuery(2022)).Return(nil, errors.New("computation timed out"))
	repo.On("CollectionSize", mock.Anything, "sentinel2", yearQuery(2023)).Return(11, nil)
	repo.On("MeanNDVI", mock.Anything, "sentinel2", yearQuery(2023)).Return(ptr(0.5123), nil)
	// zero mean: null
	repo.On("CollectionSize", mock.Anything, "sentinel2", yearQuery(2024)).Return(3, nil)
	repo.On("MeanNDVI", mock.Anything, "sentinel2", yearQuery(2024)).Return(ptr(0.0), nil)

	counties := new(MockCountyService)
	counties.On("GetCounty", mock.Anything, 47).Return(nairobi(), nil)

	service := newTestService(repo, counties)
	resp, err := service.Trend(context.Background(), Sentinel2, 47, 2020, 2024)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "NAIROBI", resp.CountyName)
	require.Len(t, resp.TrendData, 4)

	years := make([]int, 0, len(resp.TrendData))
	for _, p := range resp.TrendData {
		years = append(years, p.Year)
	}
	assert.Equal(t, []int{2020, 2022, 2023, 2024}, years)

	require.NotNil(t, resp.TrendData[0].NDVI)
	assert.Equal(t, 0.4123, *resp.TrendData[0].NDVI)
	assert.Equal(t, 3, *resp.TrendData[0].Class)
	assert.Nil(t, resp.TrendData[1].NDVI)
	assert.Nil(t, resp.TrendData[1].Class)
	assert.Equal(t, 0.5123, *resp.TrendData[2].NDVI)
	assert.Equal(t, 4, *resp.TrendData[2].Class)
	assert.Nil(t, resp.TrendData[3].NDVI)

	// (0.5123 - 0.4123) / 3 years
	require.NotNil(t, resp.SlopePerYear)
	assert.InDelta(t, 0.033333, *resp.SlopePerYear, 1e-6)
	repo.AssertExpectations(t)
}

func TestServiceTrendSinglePointHasNoSlope(t *testing.T) {
	repo := new(MockNDVIRepository)
	repo.On("CollectionSize", mock.Anything, "landsat8", yearQuery(2021)).Return(5, nil)
	repo.On("MeanNDVI", mock.Anything, "landsat8", yearQuery(2021)).Return(ptr(0.31), nil)

	counties := new(MockCountyService)
	counties.On("GetCounty", mock.Anything, 47).Return(nairobi(), nil)

	service := newTestService(repo, counties)
	resp, err := service.Trend(context.Background(), Landsat8, 47, 2021, 2021)
	require.NoError(t, err)
	require.Len(t, resp.TrendData, 1)
	assert.Nil(t, resp.SlopePerYear)
}

func TestServiceTrendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	repo := new(MockNDVIRepository)
	repo.On("CollectionSize", mock.Anything, "sentinel2", mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(0, context.Canceled)

	counties := new(MockCountyService)
	counties.On("GetCounty", mock.Anything, 47).Return(nairobi(), nil)

	service := newTestService(repo, counties)
	_, err := service.Trend(ctx, Sentinel2, 47, 2020, 2021)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSlope(t *testing.T) {
	points := []types.TrendPoint{
		{Year: 2020, NDVI: ptr(0.3)},
		{Year: 2021, NDVI: nil},
		{Year: 2022, NDVI: ptr(0.4)},
		{Year: 2023, NDVI: ptr(0.45)},
	}
	got := slope(points)
	require.NotNil(t, got)
	assert.InDelta(t, 0.05, *got, 1e-6)

	assert.Nil(t, slope(points[:2]))
}
