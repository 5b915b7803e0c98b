package service

import (
	"context"
	"math"
	"testing"

	"polygonal-zones/internal/models"
	"polygonal-zones/internal/repository"
	"polygonal-zones/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLocationService_Update(t *testing.T) {
	tests := []struct {
		name        string
		update      models.LocationUpdate
		expected    []string
		expectError bool
	}{
		{
			name:     "inside a zone",
			update:   models.LocationUpdate{EntityID: "device_tracker.phone", Latitude: ptr(0.5), Longitude: ptr(0.5), Accuracy: ptr(5)},
			expected: []string{"home"},
		},
		{
			name:     "outside every zone",
			update:   models.LocationUpdate{EntityID: "device_tracker.phone", Latitude: ptr(50), Longitude: ptr(50), Accuracy: ptr(5)},
			expected: []string{models.LocationAway},
		},
		{
			name:   "unknown entity",
			update: models.LocationUpdate{EntityID: "device_tracker.tablet", Latitude: ptr(0.5), Longitude: ptr(0.5), Accuracy: ptr(5)},
		},
		{
			name:        "latitude out of range",
			update:      models.LocationUpdate{EntityID: "device_tracker.phone", Latitude: ptr(91), Longitude: ptr(0), Accuracy: ptr(5)},
			expectError: true,
		},
		{
			name:        "NaN longitude",
			update:      models.LocationUpdate{EntityID: "device_tracker.phone", Latitude: ptr(0), Longitude: ptr(math.NaN()), Accuracy: ptr(5)},
			expectError: true,
		},
		{
			name:        "negative accuracy",
			update:      models.LocationUpdate{EntityID: "device_tracker.phone", Latitude: ptr(0), Longitude: ptr(0), Accuracy: ptr(-1)},
			expectError: true,
		},
		{
			name:        "missing accuracy",
			update:      models.LocationUpdate{EntityID: "device_tracker.phone", Latitude: ptr(0), Longitude: ptr(0)},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			mockRepo := new(MockStateRepository)
			mockPub := new(MockStatePublisher)
			service := NewLocationService(newManager(new(MockBuilder)), mockRepo, mockPub)

			if len(tt.expected) > 0 {
				mockRepo.On("SaveState", mock.Anything, mock.AnythingOfType("models.TrackerState")).Return(nil)
				mockPub.On("Publish", mock.Anything, mock.AnythingOfType("models.TrackerState")).Return(nil)
			}

			// Execute
			changed, err := service.Update(context.Background(), tt.update)

			// Assert
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidLocation)
				return
			}
			require.NoError(t, err)

			var names []string
			for _, s := range changed {
				names = append(names, s.LocationName)
			}
			assert.Equal(t, tt.expected, names)
			mockRepo.AssertExpectations(t)
			mockPub.AssertExpectations(t)
		})
	}
}

func TestLocationService_Update_SinkErrorsDoNotFail(t *testing.T) {
	mockRepo := new(MockStateRepository)
	mockPub := new(MockStatePublisher)
	mockRepo.On("SaveState", mock.Anything, mock.Anything).Return(assert.AnError)
	mockPub.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError)

	service := NewLocationService(newManager(new(MockBuilder)), mockRepo, mockPub)
	changed, err := service.Update(context.Background(), models.LocationUpdate{
		EntityID: "device_tracker.car", Latitude: ptr(10.5), Longitude: ptr(10.5), Accuracy: ptr(0),
	})

	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, "work", changed[0].LocationName)
}

func TestLocationService_StateAndResolve(t *testing.T) {
	service := NewLocationService(newManager(new(MockBuilder)), nil, nil)

	state, err := service.State("phone")
	require.NoError(t, err)
	assert.Equal(t, models.LocationUnknown, state.LocationName)

	_, err = service.State("tablet")
	assert.ErrorIs(t, err, tracker.ErrTrackerNotFound)
	assert.Len(t, service.States(), 2)

	match, err := service.Resolve("phone", models.LocationFix{Latitude: 10.5, Longitude: 10.5, Accuracy: 10})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "work", match.Name)

	state, _ = service.State("phone")
	assert.Equal(t, models.LocationUnknown, state.LocationName, "resolve must not change state")

	_, err = service.Resolve("phone", models.LocationFix{Latitude: 100})
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestLocationService_Restore(t *testing.T) {
	mockRepo := new(MockStateRepository)
	mockRepo.On("GetState", mock.Anything, "phone").Return(&models.TrackerState{
		TrackerID:    "phone",
		SourceEntity: "device_tracker.phone",
		LocationName: "home",
		Latitude:     0.5,
		Longitude:    0.5,
		GPSAccuracy:  5,
	}, nil)
	mockRepo.On("GetState", mock.Anything, "car").Return(nil, repository.ErrStateNotFound)

	service := NewLocationService(newManager(new(MockBuilder)), mockRepo, nil)
	require.NoError(t, service.Restore(context.Background()))

	state, err := service.State("phone")
	require.NoError(t, err)
	assert.Equal(t, "home", state.LocationName)

	state, err = service.State("car")
	require.NoError(t, err)
	assert.Equal(t, models.LocationUnknown, state.LocationName)
	mockRepo.AssertExpectations(t)
}

func TestLocationService_Restore_Error(t *testing.T) {
	mockRepo := new(MockStateRepository)
	mockRepo.On("GetState", mock.Anything, "phone").Return(nil, assert.AnError)

	service := NewLocationService(newManager(new(MockBuilder)), mockRepo, nil)
	assert.ErrorIs(t, service.Restore(context.Background()), assert.AnError)
}
