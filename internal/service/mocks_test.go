package service

import (
	"context"

	"polygonal-zones/internal/catalog"
	"polygonal-zones/internal/config"
	"polygonal-zones/internal/models"
	"polygonal-zones/internal/tracker"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/mock"
)

// MockBuilder is a mock implementation of the tracker.CatalogBuilder interface
type MockBuilder struct {
	mock.Mock
}

func (m *MockBuilder) Build(ctx context.Context, sources []string, prioritize bool) (*catalog.Catalog, error) {
	args := m.Called(ctx, sources, prioritize)
	c, _ := args.Get(0).(*catalog.Catalog)
	return c, args.Error(1)
}

// MockStateRepository is a mock implementation of the StateRepository interface
type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) SaveState(ctx context.Context, state models.TrackerState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockStateRepository) GetState(ctx context.Context, trackerID string) (*models.TrackerState, error) {
	args := m.Called(ctx, trackerID)
	s, _ := args.Get(0).(*models.TrackerState)
	return s, args.Error(1)
}

// MockStatePublisher is a mock implementation of the StatePublisher interface
type MockStatePublisher struct {
	mock.Mock
}

func (m *MockStatePublisher) Publish(ctx context.Context, state models.TrackerState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

// MockZoneStore is a mock implementation of the ZoneStore interface
type MockZoneStore struct {
	mock.Mock
}

func (m *MockZoneStore) Add(path string, feature []byte) error {
	return m.Called(path, feature).Error(0)
}

func (m *MockZoneStore) Edit(path, name string, feature []byte) error {
	return m.Called(path, name, feature).Error(0)
}

func (m *MockZoneStore) Delete(path, name string) error {
	return m.Called(path, name).Error(0)
}

func (m *MockZoneStore) Replace(path string, document []byte) error {
	return m.Called(path, document).Error(0)
}

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

func homeCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Zone{
		{Name: "home", Geometry: square(0, 0, 1, 1)},
		{Name: "work", Geometry: square(10, 10, 11, 11)},
	})
}

// newManager returns a manager with an editable "phone" tracker and a read-only "car" tracker,
// both loaded with homeCatalog.
func newManager(b *MockBuilder) *tracker.Manager {
	b.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(homeCatalog(), nil)

	phone := tracker.New(config.Tracker{
		ID:          "phone",
		EntityID:    "device_tracker.phone",
		ZoneSources: []string{"zones.json"},
		Editable:    true,
	}, b)
	car := tracker.New(config.Tracker{
		ID:          "car",
		EntityID:    "device_tracker.car",
		ZoneSources: []string{"https://example.com/zones.json"},
		Editable:    true,
	}, b)

	m := tracker.NewManager(phone, car)
	if err := m.ReloadAll(context.Background()); err != nil {
		panic(err)
	}
	return m
}

func ptr(v float64) *float64 { return &v }
