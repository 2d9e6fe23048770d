package mocks

import (
	"context"
	"time"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Flows          *MockFlowRepository
	ScheduledEmail *MockScheduledEmailRepository
	LeadSources    *MockLeadSourceRepository
	Templates      *MockEmailTemplateRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Flows:          &MockFlowRepository{},
		ScheduledEmail: &MockScheduledEmailRepository{},
		LeadSources:    &MockLeadSourceRepository{},
		Templates:      &MockEmailTemplateRepository{},
	}
}

func (m *MockPersistence) FlowRepository() persistence.FlowRepository {
	return m.Flows
}

func (m *MockPersistence) ScheduledEmailRepository() persistence.ScheduledEmailRepository {
	return m.ScheduledEmail
}

func (m *MockPersistence) LeadSourceRepository() persistence.LeadSourceRepository {
	return m.LeadSources
}

func (m *MockPersistence) EmailTemplateRepository() persistence.EmailTemplateRepository {
	return m.Templates
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockFlowRepository is a mock implementation of persistence.FlowRepository interface.
type MockFlowRepository struct {
	mock.Mock
}

func (m *MockFlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Flow, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) ListByStatus(ctx context.Context, status models.FlowStatus) ([]*models.Flow, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	args := m.Called(ctx, flow)

	return args.Error(0)
}

func (m *MockFlowRepository) UpdateStatus(ctx context.Context, id string, status models.FlowStatus) error {
	args := m.Called(ctx, id, status)

	return args.Error(0)
}

func (m *MockFlowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockScheduledEmailRepository is a mock implementation of persistence.ScheduledEmailRepository interface.
type MockScheduledEmailRepository struct {
	mock.Mock
}

func (m *MockScheduledEmailRepository) Create(ctx context.Context, email *models.ScheduledEmail) error {
	args := m.Called(ctx, email)

	return args.Error(0)
}

func (m *MockScheduledEmailRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.ScheduledEmail, error) {
	args := m.Called(ctx, flowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ScheduledEmail), args.Error(1)
}

func (m *MockScheduledEmailRepository) GetByJobID(ctx context.Context, jobID string) (*models.ScheduledEmail, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ScheduledEmail), args.Error(1)
}

func (m *MockScheduledEmailRepository) CountByFlow(ctx context.Context, flowID string) (int, error) {
	args := m.Called(ctx, flowID)

	return args.Int(0), args.Error(1)
}

func (m *MockScheduledEmailRepository) CountPending(ctx context.Context, flowID string, now time.Time) (int, error) {
	args := m.Called(ctx, flowID, now)

	return args.Int(0), args.Error(1)
}

func (m *MockScheduledEmailRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockScheduledEmailRepository) DeleteByFlow(ctx context.Context, flowID string) error {
	args := m.Called(ctx, flowID)

	return args.Error(0)
}

// MockLeadSourceRepository is a mock implementation of persistence.LeadSourceRepository interface.
type MockLeadSourceRepository struct {
	mock.Mock
}

func (m *MockLeadSourceRepository) GetByID(ctx context.Context, id string) (*models.LeadSource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.LeadSource), args.Error(1)
}

func (m *MockLeadSourceRepository) ListByOwner(ctx context.Context, userID string) ([]*models.LeadSource, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.LeadSource), args.Error(1)
}

func (m *MockLeadSourceRepository) Save(ctx context.Context, source *models.LeadSource) error {
	args := m.Called(ctx, source)

	return args.Error(0)
}

func (m *MockLeadSourceRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockEmailTemplateRepository is a mock implementation of persistence.EmailTemplateRepository interface.
type MockEmailTemplateRepository struct {
	mock.Mock
}

func (m *MockEmailTemplateRepository) GetByID(ctx context.Context, id string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateRepository) ListByOwner(ctx context.Context, userID string) ([]*models.EmailTemplate, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateRepository) Save(ctx context.Context, template *models.EmailTemplate) error {
	args := m.Called(ctx, template)

	return args.Error(0)
}

func (m *MockEmailTemplateRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}
