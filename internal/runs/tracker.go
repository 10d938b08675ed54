// Package runs starts remote scrape jobs, records them, and turns finished
// jobs into normalized lead batches. Polling is caller-driven; the tracker
// never runs background work of its own.
package runs

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/smc1992/leadgen-ai/internal/adapter"
	"github.com/smc1992/leadgen-ai/internal/config"
	"github.com/smc1992/leadgen-ai/internal/model"
	"github.com/smc1992/leadgen-ai/internal/resilience"
	"github.com/smc1992/leadgen-ai/pkg/apify"
)

// Job types accepted by Start.
const (
	JobTypeLinkedIn  = "linkedin"
	JobTypeMaps      = "maps"
	JobTypeValidator = "validator"
)

// Store is the slice of persistence the tracker needs.
type Store interface {
	CreateScrapeRun(ctx context.Context, run model.ScrapeRun) error
	CompleteScrapeRun(ctx context.Context, id string, status model.RunStatus, resultCount int, errMsg string) error
	GetScrapeRun(ctx context.Context, userID, id string) (*model.ScrapeRun, error)
}

// StatusResult is what a status check returns. Leads are populated only
// when the run finished successfully; the caller already holds them in
// memory even if the run-record update failed.
type StatusResult struct {
	Run      model.ScrapeRun     `json:"run"`
	Finished bool                `json:"finished"`
	Leads    []model.ScrapedLead `json:"leads,omitempty"`
}

// Tracker drives the remote scrape provider and mirrors job state into
// scrape_runs rows.
type Tracker struct {
	client apify.Client
	store  Store
	cfg    config.ApifyConfig
}

// NewTracker creates a Tracker.
func NewTracker(client apify.Client, store Store, cfg config.ApifyConfig) *Tracker {
	return &Tracker{client: client, store: store, cfg: cfg}
}

// optionalMapsParams are actor input keys that older maps actor versions
// reject as unknown. They are stripped on the single automatic retry.
var optionalMapsParams = []string{
	"language", "maxReviews", "maxImages", "placeMinimumStars",
	"skipClosedPlaces", "searchMatching", "website",
}

// Start launches a scrape job and persists a run record once the provider
// accepts it. The run enters "started" only on a 2xx with a job id.
func (t *Tracker) Start(ctx context.Context, userID, jobType string, input map[string]any) (*model.ScrapeRun, error) {
	actorID := t.actorFor(jobType)
	if actorID == "" {
		return nil, resilience.Classify(resilience.ClassBadRequest, eris.Errorf("runs: unsupported job type %q", jobType))
	}

	providerRun, err := t.client.StartRun(ctx, actorID, input)
	if err != nil {
		// Maps actors have drifted on optional input parameters; one
		// automatic retry with the suspects stripped, nothing else.
		if jobType == JobTypeMaps && looksLikeUnknownParam(err) {
			zap.L().Warn("runs: retrying maps job without optional parameters",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			providerRun, err = t.client.StartRun(ctx, actorID, stripOptionalParams(input))
		}
		if err != nil {
			return nil, classifyProviderError(err)
		}
	}

	run := model.ScrapeRun{
		ID:          providerRun.ID,
		Type:        jobType,
		Status:      normalizeStatus(providerRun.Status),
		TriggeredBy: userID,
	}
	if err := t.store.CreateScrapeRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "runs: persist run record")
	}

	zap.L().Info("runs: started scrape job",
		zap.String("user_id", userID),
		zap.String("type", jobType),
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
	)
	return &run, nil
}

// CheckStatus polls the provider once. On a terminal status it retrieves the
// result dataset, maps each item through the adapter layer, and reports
// completion back to the run record in a single update. A failed record
// update is logged and swallowed: the caller already has the results.
func (t *Tracker) CheckStatus(ctx context.Context, userID, runID string) (*StatusResult, error) {
	stored, err := t.store.GetScrapeRun(ctx, userID, runID)
	if err != nil {
		return nil, resilience.Classify(resilience.ClassBadRequest, eris.Errorf("runs: unknown run %q", runID))
	}

	providerRun, err := t.client.GetRun(ctx, runID)
	if err != nil {
		return nil, classifyProviderError(err)
	}

	status := normalizeStatus(providerRun.Status)
	result := &StatusResult{Run: *stored}
	result.Run.Status = status

	if !status.Terminal() {
		return result, nil
	}
	result.Finished = true

	errMsg := ""
	if status == model.RunStatusSucceeded {
		items, err := t.client.DatasetItems(ctx, providerRun.DefaultDatasetID)
		if err != nil {
			return nil, classifyProviderError(err)
		}
		result.Leads = adapter.AdaptAll(items, stored.Type)
		result.Run.ResultCount = len(result.Leads)
	} else {
		errMsg = resilience.Truncate(providerRun.StatusMessage)
		result.Run.ErrorMessage = errMsg
	}

	if err := t.store.CompleteScrapeRun(ctx, runID, status, result.Run.ResultCount, errMsg); err != nil {
		zap.L().Warn("runs: failed to record run completion",
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}

	return result, nil
}

func (t *Tracker) actorFor(jobType string) string {
	switch jobType {
	case JobTypeLinkedIn:
		return t.cfg.LinkedInActor
	case JobTypeMaps:
		return t.cfg.MapsActor
	case JobTypeValidator:
		return t.cfg.ValidatorActor
	default:
		return ""
	}
}

// classifyProviderError maps provider failures onto the client-facing
// taxonomy: auth rejection and 5xx are gateway-class, other 4xx are
// bad-request. The upstream body is preserved truncated, never parsed.
func classifyProviderError(err error) error {
	var apiErr *apify.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return resilience.Classify(resilience.ClassUpstreamGateway, err)
		case apiErr.StatusCode >= 500:
			return resilience.Classify(resilience.ClassUpstreamGateway, err)
		default:
			return resilience.Classify(resilience.ClassBadRequest, err)
		}
	}
	return resilience.Classify(resilience.ClassUpstreamGateway, err)
}

// looksLikeUnknownParam heuristically matches the provider's "unknown
// parameter" validation error on a 4xx response body.
func looksLikeUnknownParam(err error) bool {
	var apiErr *apify.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode < 400 || apiErr.StatusCode >= 500 {
		return false
	}
	body := strings.ToLower(apiErr.Body)
	return strings.Contains(body, "unknown parameter") ||
		strings.Contains(body, "unexpected property") ||
		strings.Contains(body, "is not allowed")
}

func stripOptionalParams(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = v
	}
	for _, k := range optionalMapsParams {
		delete(out, k)
	}
	return out
}

// normalizeStatus lower-cases the provider vocabulary and folds it into the
// closed run-status set.
func normalizeStatus(s string) model.RunStatus {
	switch strings.ToLower(s) {
	case "ready", "queued":
		return model.RunStatusReady
	case "running":
		return model.RunStatusRunning
	case "succeeded":
		return model.RunStatusSucceeded
	case "failed", "timed-out", "timing-out", "aborted", "aborting":
		return model.RunStatusFailed
	default:
		return model.RunStatus(strings.ToLower(s))
	}
}
