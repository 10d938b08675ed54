// Package store persists leads, lists, and scrape runs. Every lead-table
// operation is scoped by an explicit user id filter; tenant isolation is
// enforced here, not assumed from the database.
package store

import (
	"context"
	"errors"

	"github.com/smc1992/leadgen-ai/internal/model"
)

// ErrNotFound is returned when a row does not exist for the given user.
var ErrNotFound = errors.New("store: not found")

// LeadFilter specifies criteria for listing a user's leads. Zero values
// mean "no constraint".
type LeadFilter struct {
	Search        string             `json:"search,omitempty"`
	Region        string             `json:"region,omitempty"`
	EmailStatus   model.EmailStatus  `json:"email_status,omitempty"`
	ScoreMin      *int               `json:"score_min,omitempty"`
	ScoreMax      *int               `json:"score_max,omitempty"`
	OutreachReady *bool              `json:"outreach_ready,omitempty"`
	ListID        string             `json:"list_id,omitempty"`
	Page          int                `json:"page,omitempty"`
	Limit         int                `json:"limit,omitempty"`
}

// Store defines the persistence interface for the ingestion pipeline and
// the dashboard query surface.
type Store interface {
	// Leads
	InsertLeads(ctx context.Context, userID string, leads []model.Lead) ([]model.Lead, error)
	ListLeads(ctx context.Context, userID string, filter LeadFilter) (model.LeadPage, error)
	GetLead(ctx context.Context, userID, id string) (*model.Lead, error)
	UpdateLead(ctx context.Context, userID, id string, upd model.LeadUpdate) (*model.Lead, error)
	DeleteLead(ctx context.Context, userID, id string) error

	// Dedup identity queries, one per dimension over the batch's keys.
	LeadsByWebsites(ctx context.Context, userID string, websites []string) (map[string]bool, error)
	LeadsByCompanies(ctx context.Context, userID string, companies []string) (map[string]bool, error)

	// Lists
	CreateList(ctx context.Context, userID, name string) (*model.LeadList, error)
	GetList(ctx context.Context, userID, listID string) (*model.LeadList, error)
	AddListItems(ctx context.Context, listID string, leadIDs []string) error

	// Scrape runs
	CreateScrapeRun(ctx context.Context, run model.ScrapeRun) error
	CompleteScrapeRun(ctx context.Context, id string, status model.RunStatus, resultCount int, errMsg string) error
	GetScrapeRun(ctx context.Context, userID, id string) (*model.ScrapeRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Normalize clamps pagination to sane bounds.
func (f LeadFilter) Normalize() LeadFilter {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 25
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	return f
}
