package mocks

import (
	"context"

	"github.com/dukex/mailflow/pkg/mail"
	"github.com/stretchr/testify/mock"
)

// MockTransport is a mock implementation of mail.Transport interface.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)

	return args.Error(0)
}
