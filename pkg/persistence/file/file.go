// Package file provides file-based persistence for flows and their scheduled emails.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/mailflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// Every record is one JSON document under <root>/<collection>/<id>.json.
type Persistence struct {
	root              string
	flowRepo          *FlowRepository
	scheduledRepo     *ScheduledEmailRepository
	leadSourceRepo    *LeadSourceRepository
	emailTemplateRepo *EmailTemplateRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:              cleanRoot,
		flowRepo:          NewFlowRepository(cleanRoot),
		scheduledRepo:     NewScheduledEmailRepository(cleanRoot),
		leadSourceRepo:    NewLeadSourceRepository(cleanRoot),
		emailTemplateRepo: NewEmailTemplateRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) FlowRepository() persistence.FlowRepository {
	return fp.flowRepo
}

func (fp *Persistence) ScheduledEmailRepository() persistence.ScheduledEmailRepository {
	return fp.scheduledRepo
}

func (fp *Persistence) LeadSourceRepository() persistence.LeadSourceRepository {
	return fp.leadSourceRepo
}

func (fp *Persistence) EmailTemplateRepository() persistence.EmailTemplateRepository {
	return fp.emailTemplateRepo
}
