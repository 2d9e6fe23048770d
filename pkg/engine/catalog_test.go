package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
)

// memoryCatalog serves fixed records and counts lookups.
type memoryCatalog struct {
	sources   map[string]*models.LeadSource
	templates map[string]*models.EmailTemplate
	err       error
	lookups   int
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{
		sources:   make(map[string]*models.LeadSource),
		templates: make(map[string]*models.EmailTemplate),
	}
}

func (c *memoryCatalog) withSource(id string, emails ...string) *memoryCatalog {
	source := &models.LeadSource{ID: id, Name: id}
	for _, email := range emails {
		source.Contacts = append(source.Contacts, models.Contact{Name: email, Email: email})
	}

	c.sources[id] = source

	return c
}

func (c *memoryCatalog) withTemplate(id, subject, body string) *memoryCatalog {
	c.templates[id] = &models.EmailTemplate{ID: id, Name: id, Subject: subject, Body: body}

	return c
}

func (c *memoryCatalog) LeadSource(_ context.Context, id string) (*models.LeadSource, error) {
	c.lookups++

	if c.err != nil {
		return nil, c.err
	}

	source, ok := c.sources[id]
	if !ok {
		return nil, persistence.NewLeadSourceError("GetByID", id, persistence.ErrLeadSourceNotFound)
	}

	return source, nil
}

func (c *memoryCatalog) EmailTemplate(_ context.Context, id string) (*models.EmailTemplate, error) {
	c.lookups++

	if c.err != nil {
		return nil, c.err
	}

	template, ok := c.templates[id]
	if !ok {
		return nil, persistence.NewEmailTemplateError("GetByID", id, persistence.ErrEmailTemplateNotFound)
	}

	return template, nil
}

func TestCachedCatalog(t *testing.T) {
	ctx := context.Background()
	backing := newMemoryCatalog().withSource("ls-1", "a@x.com").withTemplate("t-1", "S", "B")
	cached := engine.NewCachedCatalog(backing, time.Minute)

	for range 3 {
		source, err := cached.LeadSource(ctx, "ls-1")
		require.NoError(t, err)
		assert.Equal(t, "ls-1", source.ID)

		template, err := cached.EmailTemplate(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "S", template.Subject)
	}

	assert.Equal(t, 2, backing.lookups)

	cached.InvalidateLeadSource("ls-1")
	cached.InvalidateEmailTemplate("t-1")

	_, err := cached.LeadSource(ctx, "ls-1")
	require.NoError(t, err)
	_, err = cached.EmailTemplate(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, 4, backing.lookups)
}

func TestCachedCatalog_DoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	backing := newMemoryCatalog()
	cached := engine.NewCachedCatalog(backing, time.Minute)

	_, err := cached.LeadSource(ctx, "ls-1")
	assert.True(t, persistence.IsLeadSourceNotFound(err))

	backing.withSource("ls-1", "a@x.com")

	source, err := cached.LeadSource(ctx, "ls-1")
	require.NoError(t, err)
	assert.Len(t, source.Contacts, 1)

	backing.err = errors.New("store down")
	cached.InvalidateLeadSource("ls-1")

	_, err = cached.LeadSource(ctx, "ls-1")
	require.Error(t, err)
}
