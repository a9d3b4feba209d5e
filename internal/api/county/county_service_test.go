package county

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-county-ndvi/internal/types"
)

// MockCountyRepository is a mock implementation of Repository
type MockCountyRepository struct {
	mock.Mock
}

func (m *MockCountyRepository) ListCounties(ctx context.Context) ([]types.County, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.County), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sampleCounties() []types.County {
	return []types.County{
		{Code: 1, Name: "MOMBASA", Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[]}`)},
		{Code: 47, Name: "NAIROBI", Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[]}`)},
	}
}

func TestServiceListCountiesCaches(t *testing.T) {
	repo := new(MockCountyRepository)
	repo.On("ListCounties", mock.Anything).Return(sampleCounties(), nil).Once()

	service := NewServiceImpl(repo, time.Hour, time.Hour, nil, testLogger())

	first, err := service.ListCounties(context.Background())
	require.NoError(t, err)
	second, err := service.ListCounties(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, second, 2)
	repo.AssertExpectations(t)
}

func TestServiceListCountiesError(t *testing.T) {
	repo := new(MockCountyRepository)
	repo.On("ListCounties", mock.Anything).Return(nil, errors.New("boom")).Twice()

	service := NewServiceImpl(repo, time.Hour, time.Hour, nil, testLogger())

	_, err := service.ListCounties(context.Background())
	require.Error(t, err)
	// failures are not cached
	_, err = service.ListCounties(context.Background())
	require.Error(t, err)
	repo.AssertExpectations(t)
}

func TestServiceGetCounty(t *testing.T) {
	repo := new(MockCountyRepository)
	repo.On("ListCounties", mock.Anything).Return(sampleCounties(), nil).Once()
	service := NewServiceImpl(repo, time.Hour, time.Hour, nil, testLogger())

	t.Run("Found", func(t *testing.T) {
		c, err := service.GetCounty(context.Background(), 47)
		require.NoError(t, err)
		assert.Equal(t, "NAIROBI", c.Name)
	})

	t.Run("UnkeyedNeverMatches", func(t *testing.T) {
		unkeyed := new(MockCountyRepository)
		unkeyed.On("ListCounties", mock.Anything).
			Return(append(sampleCounties(), types.County{Name: "NO CODE"}), nil).Once()
		service := NewServiceImpl(unkeyed, time.Hour, time.Hour, nil, testLogger())

		c, err := service.GetCounty(context.Background(), 0)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, ErrCountyNotFound)
	})

	t.Run("NotFound", func(t *testing.T) {
		c, err := service.GetCounty(context.Background(), 99)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, ErrCountyNotFound)
	})

	repo.AssertExpectations(t)
}
