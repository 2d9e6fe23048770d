package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/mail"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence/file"
	"github.com/dukex/mailflow/pkg/queue"
	"github.com/dukex/mailflow/pkg/services"
)

var (
	fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	alice    = models.Owner{ID: "alice", Email: "alice@example.com"}
	bob      = models.Owner{ID: "bob", Email: "bob@example.com"}
)

type fixture struct {
	ctx       context.Context
	store     *file.Persistence
	queue     *queue.MemoryQueue
	engine    *engine.Engine
	transport *mail.LogTransport
	flows     *services.Flows
	sources   *services.LeadSources
	templates *services.EmailTemplates
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	config := engine.DefaultConfig()
	config.Now = func() time.Time { return fixedNow }

	store := file.NewPersistence(t.TempDir())
	q := queue.NewMemoryQueue(logger, time.Second)
	eng := engine.New(store, q, nil, nil, logger, config)

	return &fixture{
		ctx:       context.Background(),
		store:     store,
		queue:     q,
		engine:    eng,
		transport: mail.NewLogTransport(logger),
		flows:     services.NewFlows(store, eng, nil, logger),
		sources:   services.NewLeadSources(store, eng, nil, logger),
		templates: services.NewEmailTemplates(store, eng, nil, logger),
	}
}

func (f *fixture) leadSource(t *testing.T, owner models.Owner, emails ...string) *models.LeadSource {
	t.Helper()

	contacts := make([]models.Contact, 0, len(emails))
	for _, email := range emails {
		contacts = append(contacts, models.Contact{Name: email, Email: email})
	}

	source, err := f.sources.Create(f.ctx, owner, services.LeadSourceInput{Name: "Leads", Contacts: contacts})
	require.NoError(t, err)

	return source
}

func (f *fixture) template(t *testing.T, owner models.Owner, subject string) *models.EmailTemplate {
	t.Helper()

	template, err := f.templates.Create(f.ctx, owner, services.EmailTemplateInput{
		Name:    subject,
		Subject: subject,
		Body:    "<p>" + subject + "</p>",
	})
	require.NoError(t, err)

	return template
}

// linear builds source -> wait(hours) -> email.
func linear(sourceID, templateID string, hours int) services.FlowInput {
	return services.FlowInput{
		Name: "Onboarding",
		Nodes: []*models.Node{
			{ID: "S1", Type: models.NodeKindLeadSource, Data: models.NodeData{LeadSourceID: sourceID}},
			{ID: "W1", Type: models.NodeKindWait, Data: models.NodeData{Delay: &models.WaitDelay{Hours: models.DelayUnit(hours)}}},
			{ID: "E1", Type: models.NodeKindColdEmail, Data: models.NodeData{EmailTemplateID: templateID}},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "S1", Target: "W1"},
			{ID: "e2", Source: "W1", Target: "E1"},
		},
	}
}

func (f *fixture) rows(t *testing.T, flowID string) int {
	t.Helper()

	count, err := f.store.ScheduledEmailRepository().CountByFlow(f.ctx, flowID)
	require.NoError(t, err)

	return count
}
