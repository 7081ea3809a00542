// Package di wires the application's dependencies into a Container.
package di

import (
	"github.com/aristath/alphaseeker/internal/clients/advisor"
	"github.com/aristath/alphaseeker/internal/clients/eastmoney"
	"github.com/aristath/alphaseeker/internal/clients/pricing"
	"github.com/aristath/alphaseeker/internal/database"
	"github.com/aristath/alphaseeker/internal/events"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/aristath/alphaseeker/internal/reliability"
	"github.com/aristath/alphaseeker/internal/scheduler"
)

// Container holds all dependencies for the application.
// Backups and Advisor are nil when not configured.
type Container struct {
	// Database
	PortfolioDB *database.DB

	// Repositories
	SnapshotRepo *portfolio.SnapshotRepository

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Clients
	EastmoneyClient *eastmoney.Client
	PriceResolver   *pricing.Chain
	Advisor         *advisor.Client

	// Services
	PortfolioService *portfolio.Service
	BackupService    *reliability.BackupService

	// Jobs
	Scheduler *scheduler.Scheduler
}

// Close releases the database connection
func (c *Container) Close() error {
	if c == nil || c.PortfolioDB == nil {
		return nil
	}
	return c.PortfolioDB.Close()
}
