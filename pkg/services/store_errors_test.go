package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/mocks"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/queue"
	"github.com/dukex/mailflow/pkg/services"
)

var errStoreDown = errors.New("connection refused")

func newMockedFlows(t *testing.T) (*services.Flows, *mocks.MockPersistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := mocks.NewMockPersistence()
	eng := engine.New(store, queue.NewMemoryQueue(logger, time.Second), nil, nil, logger, engine.DefaultConfig())

	return services.NewFlows(store, eng, nil, logger), store
}

func TestFlows_StoreErrorsAreNotClientErrors(t *testing.T) {
	flows, store := newMockedFlows(t)
	ctx := context.Background()

	store.Flows.On("ListByOwner", mock.Anything, "alice").Return(nil, errStoreDown)
	store.Flows.On("GetByID", mock.Anything, "flow-1").Return(nil, errStoreDown)

	_, err := flows.List(ctx, alice)
	require.ErrorIs(t, err, errStoreDown)
	assert.False(t, services.IsValidationError(err))
	assert.False(t, services.IsNotFound(err))

	_, err = flows.Stop(ctx, alice, "flow-1")
	require.ErrorIs(t, err, errStoreDown)

	store.Flows.AssertExpectations(t)
}

func TestFlows_StopDoesNotTouchOtherOwnersFlow(t *testing.T) {
	flows, store := newMockedFlows(t)

	store.Flows.On("GetByID", mock.Anything, "flow-1").Return(&models.Flow{ID: "flow-1", UserID: "bob"}, nil)

	_, err := flows.Stop(context.Background(), alice, "flow-1")
	require.ErrorIs(t, err, services.ErrFlowNotFound)

	store.ScheduledEmail.AssertNotCalled(t, "ListByFlow", mock.Anything, mock.Anything)
	store.Flows.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestFlows_HealthCheckReportsStoreFailure(t *testing.T) {
	flows, store := newMockedFlows(t)

	store.On("HealthCheck", mock.Anything).Return(errStoreDown)

	require.ErrorIs(t, flows.HealthCheck(context.Background()), errStoreDown)
}
