// Package ingest wires the full lead ingestion pipeline: enrichment,
// deduplication, scoring, persistence, and list attachment.
package ingest

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/smc1992/leadgen-ai/internal/dedup"
	"github.com/smc1992/leadgen-ai/internal/enrich"
	"github.com/smc1992/leadgen-ai/internal/model"
	"github.com/smc1992/leadgen-ai/internal/scoring"
	"github.com/smc1992/leadgen-ai/internal/store"
)

// Request is a batch-ingest call.
type Request struct {
	Leads          []model.ScrapedLead `json:"leads"`
	ListName       string              `json:"listName,omitempty"`
	AttachToListID string              `json:"attachToListId,omitempty"`
}

// Result reports what the pipeline persisted. ListID is null when no list
// was resolved. AttachError carries a structured partial success: the leads
// and the list are committed but the membership insert failed, and ListID
// tells the caller where to retry the attachment.
type Result struct {
	Leads       []model.Lead `json:"leads"`
	ListID      *string      `json:"listId"`
	Duplicates  int          `json:"duplicates"`
	AttachError string       `json:"attachError,omitempty"`
}

// Pipeline runs ingestion for one user request at a time; it owns no
// background workers.
type Pipeline struct {
	store    store.Store
	enricher *enrich.Enricher
	dedup    *dedup.Engine
	scorer   *scoring.Scorer
}

// New creates a Pipeline. The enricher may be nil to disable the
// best-effort contact pass.
func New(st store.Store, enricher *enrich.Enricher, scorer *scoring.Scorer) *Pipeline {
	return &Pipeline{
		store:    st,
		enricher: enricher,
		dedup:    dedup.NewEngine(st),
		scorer:   scorer,
	}
}

// Ingest runs a batch of normalized scraped leads through enrichment,
// dedup, scoring, and persistence. Insert and list-create failures abort
// the call; a membership-insert failure is reported as a partial success.
func (p *Pipeline) Ingest(ctx context.Context, userID string, req Request) (*Result, error) {
	batch := req.Leads

	if p.enricher != nil {
		batch = p.enricher.Apply(ctx, batch)
	}

	unique, err := p.dedup.Filter(ctx, userID, batch)
	if err != nil {
		return nil, err
	}
	duplicates := len(req.Leads) - len(unique)

	scored := make([]model.Lead, 0, len(unique))
	for _, s := range unique {
		scored = append(scored, p.toLead(userID, s))
	}

	inserted, err := p.store.InsertLeads(ctx, userID, scored)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: insert leads")
	}

	result := &Result{Leads: inserted, Duplicates: duplicates}

	listID, err := p.resolveList(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	if listID != "" {
		// The list is resolved and committed before the membership insert,
		// so the id is reported even when the attachment fails below and the
		// caller can retry just that step.
		result.ListID = &listID
	}
	if listID != "" && len(inserted) > 0 {
		leadIDs := make([]string, len(inserted))
		for i, l := range inserted {
			leadIDs[i] = l.ID
		}
		if err := p.store.AddListItems(ctx, listID, leadIDs); err != nil {
			// Leads are committed and safe to re-link; report the failed
			// attachment instead of masking the successful inserts.
			zap.L().Error("ingest: list attachment failed",
				zap.String("user_id", userID),
				zap.String("list_id", listID),
				zap.Error(err),
			)
			result.AttachError = "leads saved, list attachment failed"
			return result, nil
		}
	}

	zap.L().Info("ingest: batch complete",
		zap.String("user_id", userID),
		zap.Int("received", len(req.Leads)),
		zap.Int("inserted", len(inserted)),
		zap.Int("duplicates", duplicates),
		zap.String("list_id", listID),
	)
	return result, nil
}

// resolveList establishes the attachment target. A supplied name creates a
// new list (failure aborts the call: the caller asked for a list it did not
// get). An existing id is trusted only if well-formed and owned by the
// requesting user, otherwise attachment is silently skipped, which blocks
// cross-tenant membership writes without failing the ingestion.
func (p *Pipeline) resolveList(ctx context.Context, userID string, req Request) (string, error) {
	if req.ListName != "" {
		list, err := p.store.CreateList(ctx, userID, req.ListName)
		if err != nil {
			return "", eris.Wrap(err, "ingest: create list")
		}
		return list.ID, nil
	}

	if req.AttachToListID == "" {
		return "", nil
	}
	if _, err := uuid.Parse(req.AttachToListID); err != nil {
		zap.L().Warn("ingest: malformed list id ignored",
			zap.String("user_id", userID),
			zap.String("list_id", req.AttachToListID),
		)
		return "", nil
	}
	list, err := p.store.GetList(ctx, userID, req.AttachToListID)
	if err != nil {
		zap.L().Warn("ingest: list not owned by user, attachment skipped",
			zap.String("user_id", userID),
			zap.String("list_id", req.AttachToListID),
		)
		return "", nil
	}
	return list.ID, nil
}

// toLead scores a normalized record and freezes it into the canonical
// persisted shape. Every descriptive field defaults to the empty string.
func (p *Pipeline) toLead(userID string, s model.ScrapedLead) model.Lead {
	score := p.scorer.Score(s)

	channel := s.Channel
	if channel == "" {
		channel = model.ChannelUnknown
	}
	emailStatus := s.EmailStatus
	if emailStatus == "" {
		emailStatus = model.EmailStatusUnknown
	}

	return model.Lead{
		UserID:          userID,
		FullName:        s.FullName,
		JobTitle:        s.JobTitle,
		Company:         s.Company,
		Email:           s.Email,
		Phone:           s.Phone,
		WebsiteURL:      s.WebsiteURL,
		Address:         s.Address,
		City:            s.City,
		Country:         s.Country,
		PostalCode:      s.PostalCode,
		Region:          s.Region,
		Channel:         channel,
		SourceURL:       s.SourceURL,
		Lat:             s.Lat,
		Lng:             s.Lng,
		RatingAvg:       s.RatingAvg,
		RatingCount:     s.RatingCount,
		Categories:      s.Categories,
		Score:           score,
		IsOutreachReady: p.scorer.IsOutreachReady(score),
		EmailStatus:     emailStatus,
	}
}
