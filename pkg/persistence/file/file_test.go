package file

import (
	"testing"
	"time"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistence_HealthCheck(t *testing.T) {
	p := NewPersistence("file://" + t.TempDir())
	assert.NoError(t, p.HealthCheck(t.Context()))

	missing := NewPersistence(t.TempDir() + "/does-not-exist")
	assert.Error(t, missing.HealthCheck(t.Context()))
}

func TestFlowRepository_SaveAndGet(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.FlowRepository()

	flow := &models.Flow{
		UserID: "user-1",
		Name:   "Welcome",
		Nodes: []*models.Node{
			{ID: "s1", Type: models.NodeKindLeadSource, Data: models.NodeData{LeadSourceID: "ls-1"}},
			{ID: "w1", Type: models.NodeKindWait, Data: models.NodeData{Delay: &models.WaitDelay{Hours: 2}}},
		},
		Edges: []*models.Edge{{Source: "s1", Target: "w1"}},
	}

	require.NoError(t, repo.Save(t.Context(), flow))
	assert.NotEmpty(t, flow.ID)
	assert.Equal(t, models.FlowStatusPending, flow.Status)
	assert.False(t, flow.CreatedAt.IsZero())

	fetched, err := repo.GetByID(t.Context(), flow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", fetched.Name)
	require.Len(t, fetched.Nodes, 2)
	assert.Equal(t, 2*time.Hour, fetched.Nodes[1].Data.Delay.Duration())

	require.NoError(t, repo.UpdateStatus(t.Context(), flow.ID, models.FlowStatusRunning))

	fetched, err = repo.GetByID(t.Context(), flow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowStatusRunning, fetched.Status)

	running, err := repo.ListByStatus(t.Context(), models.FlowStatusRunning)
	require.NoError(t, err)
	assert.Len(t, running, 1)

	owned, err := repo.ListByOwner(t.Context(), "someone-else")
	require.NoError(t, err)
	assert.Empty(t, owned)

	require.NoError(t, repo.Delete(t.Context(), flow.ID))

	_, err = repo.GetByID(t.Context(), flow.ID)
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestFlowRepository_UpdateStatusMissing(t *testing.T) {
	p := NewPersistence(t.TempDir())

	err := p.FlowRepository().UpdateStatus(t.Context(), "missing", models.FlowStatusRunning)
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestScheduledEmailRepository(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ScheduledEmailRepository()
	now := time.Now().UTC()

	rows := []*models.ScheduledEmail{
		{FlowID: "flow-1", JobID: "job-1", Recipient: "a@x.com", SendAt: now.Add(time.Hour)},
		{FlowID: "flow-1", JobID: "job-2", Recipient: "b@x.com", SendAt: now.Add(-time.Minute)},
		{FlowID: "flow-2", JobID: "job-3", Recipient: "c@x.com", SendAt: now.Add(time.Hour)},
	}

	for _, row := range rows {
		require.NoError(t, repo.Create(t.Context(), row))
		assert.NotEmpty(t, row.ID)
	}

	listed, err := repo.ListByFlow(t.Context(), "flow-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "job-2", listed[0].JobID, "rows are ordered by send time")

	count, err := repo.CountByFlow(t.Context(), "flow-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	pending, err := repo.CountPending(t.Context(), "flow-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	byJob, err := repo.GetByJobID(t.Context(), "job-3")
	require.NoError(t, err)
	assert.Equal(t, "flow-2", byJob.FlowID)

	_, err = repo.GetByJobID(t.Context(), "job-404")
	assert.ErrorIs(t, err, persistence.ErrScheduledEmailNotFound)

	require.NoError(t, repo.Delete(t.Context(), rows[0].ID))
	require.NoError(t, repo.Delete(t.Context(), rows[0].ID), "deleting twice is not an error")

	require.NoError(t, repo.DeleteByFlow(t.Context(), "flow-1"))

	count, err = repo.CountByFlow(t.Context(), "flow-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.CountByFlow(t.Context(), "flow-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCatalogRepositories(t *testing.T) {
	p := NewPersistence(t.TempDir())

	source := &models.LeadSource{
		UserID:   "user-1",
		Name:     "Conference",
		Contacts: []models.Contact{{Name: "A", Email: "a@x.com"}},
	}
	require.NoError(t, p.LeadSourceRepository().Save(t.Context(), source))

	fetched, err := p.LeadSourceRepository().GetByID(t.Context(), source.ID)
	require.NoError(t, err)
	assert.Equal(t, source.Contacts, fetched.Contacts)

	template := &models.EmailTemplate{UserID: "user-1", Name: "Intro", Subject: "Hi", Body: "<p>Hello</p>"}
	require.NoError(t, p.EmailTemplateRepository().Save(t.Context(), template))

	templates, err := p.EmailTemplateRepository().ListByOwner(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Len(t, templates, 1)

	require.NoError(t, p.EmailTemplateRepository().Delete(t.Context(), template.ID))

	_, err = p.EmailTemplateRepository().GetByID(t.Context(), template.ID)
	assert.True(t, persistence.IsEmailTemplateNotFound(err))

	_, err = p.LeadSourceRepository().GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsLeadSourceNotFound(err))
}
