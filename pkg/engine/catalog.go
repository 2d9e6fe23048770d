package engine

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
)

// Catalog looks up the lead sources and templates a flow graph references.
// Lookups return a persistence not-found error when the record does not exist.
type Catalog interface {
	LeadSource(ctx context.Context, id string) (*models.LeadSource, error)
	EmailTemplate(ctx context.Context, id string) (*models.EmailTemplate, error)
}

// PersistenceCatalog reads straight from the store.
type PersistenceCatalog struct {
	persistence persistence.Persistence
}

func NewPersistenceCatalog(p persistence.Persistence) *PersistenceCatalog {
	return &PersistenceCatalog{persistence: p}
}

func (c *PersistenceCatalog) LeadSource(ctx context.Context, id string) (*models.LeadSource, error) {
	return c.persistence.LeadSourceRepository().GetByID(ctx, id)
}

func (c *PersistenceCatalog) EmailTemplate(ctx context.Context, id string) (*models.EmailTemplate, error) {
	return c.persistence.EmailTemplateRepository().GetByID(ctx, id)
}

// CachedCatalog keeps recent lookups so validating and then planning the same
// graph reads each record once. Misses are not cached.
type CachedCatalog struct {
	next  Catalog
	cache *cache.Cache
}

func NewCachedCatalog(next Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func leadSourceKey(id string) string    { return "lead_source:" + id }
func emailTemplateKey(id string) string { return "email_template:" + id }

func (c *CachedCatalog) LeadSource(ctx context.Context, id string) (*models.LeadSource, error) {
	if cached, ok := c.cache.Get(leadSourceKey(id)); ok {
		return cached.(*models.LeadSource), nil
	}

	source, err := c.next.LeadSource(ctx, id)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(leadSourceKey(id), source)

	return source, nil
}

func (c *CachedCatalog) EmailTemplate(ctx context.Context, id string) (*models.EmailTemplate, error) {
	if cached, ok := c.cache.Get(emailTemplateKey(id)); ok {
		return cached.(*models.EmailTemplate), nil
	}

	template, err := c.next.EmailTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(emailTemplateKey(id), template)

	return template, nil
}

// InvalidateLeadSource drops a cached lead source after it changes.
func (c *CachedCatalog) InvalidateLeadSource(id string) {
	c.cache.Delete(leadSourceKey(id))
}

// InvalidateEmailTemplate drops a cached template after it changes.
func (c *CachedCatalog) InvalidateEmailTemplate(id string) {
	c.cache.Delete(emailTemplateKey(id))
}
