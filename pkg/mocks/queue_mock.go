package mocks

import (
	"context"
	"time"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/queue"
	"github.com/stretchr/testify/mock"
)

// MockJobQueue is a mock implementation of queue.JobQueue interface.
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Schedule(ctx context.Context, at time.Time, job models.EmailJob) (string, error) {
	args := m.Called(ctx, at, job)

	return args.String(0), args.Error(1)
}

func (m *MockJobQueue) Cancel(ctx context.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)

	return args.Int(0), args.Error(1)
}

func (m *MockJobQueue) Exists(ctx context.Context, jobID string) (bool, error) {
	args := m.Called(ctx, jobID)

	return args.Bool(0), args.Error(1)
}

func (m *MockJobQueue) Start(ctx context.Context, handler queue.Handler) error {
	args := m.Called(ctx, handler)

	return args.Error(0)
}

func (m *MockJobQueue) Stop(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
