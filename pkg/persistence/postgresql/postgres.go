// Package postgresql provides PostgreSQL persistence for flows, scheduled
// emails, lead sources and email templates.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/mailflow/pkg/persistence"
	"github.com/dukex/mailflow/pkg/persistence/sqlbase"

	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db                *sql.DB
	logger            *slog.Logger
	flowRepo          *FlowRepository
	scheduledRepo     *ScheduledEmailRepository
	leadSourceRepo    *LeadSourceRepository
	emailTemplateRepo *EmailTemplateRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:                database,
		logger:            logger,
		flowRepo:          NewFlowRepository(database, logger),
		scheduledRepo:     NewScheduledEmailRepository(database, logger),
		leadSourceRepo:    NewLeadSourceRepository(database, logger),
		emailTemplateRepo: NewEmailTemplateRepository(database, logger),
	}

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) FlowRepository() persistence.FlowRepository {
	return p.flowRepo
}

func (p *Persistence) ScheduledEmailRepository() persistence.ScheduledEmailRepository {
	return p.scheduledRepo
}

func (p *Persistence) LeadSourceRepository() persistence.LeadSourceRepository {
	return p.leadSourceRepo
}

func (p *Persistence) EmailTemplateRepository() persistence.EmailTemplateRepository {
	return p.emailTemplateRepo
}

// closeRows closes a result set, logging instead of failing the query.
func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
