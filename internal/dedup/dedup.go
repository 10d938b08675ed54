// Package dedup drops incoming leads that already exist for a user, using
// two independent identity keys: normalized website and company+city.
package dedup

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/smc1992/leadgen-ai/internal/model"
)

// ExistingChecker is the slice of the store the engine needs: one query per
// identity dimension over the candidate batch's distinct keys, scoped to the
// owning user.
type ExistingChecker interface {
	// LeadsByWebsites returns the normalized websites among the given set
	// that already exist for the user.
	LeadsByWebsites(ctx context.Context, userID string, websites []string) (map[string]bool, error)
	// LeadsByCompanies returns existing (company, city) pairs for the given
	// companies, keyed by CompanyCityKey.
	LeadsByCompanies(ctx context.Context, userID string, companies []string) (map[string]bool, error)
}

// NormalizeWebsite canonicalizes a website URL for identity comparison:
// lower-case, protocol stripped, trailing slash dropped, host and path kept.
// The function is idempotent.
func NormalizeWebsite(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(s, scheme) {
			s = s[len(scheme):]
			break
		}
	}
	return strings.TrimSuffix(s, "/")
}

// WebsiteKey is the website identity for a lead: the normalized website
// URL, falling back to the source URL when no website was scraped. The
// store persists the same key so the uniqueness constraint and the dedup
// check agree.
func WebsiteKey(website, source string) string {
	return NormalizeWebsite(firstNonEmpty(website, source))
}

// CompanyCityKey builds the company+city identity key. Empty if either part
// is empty: a lead with no company or no city has no identity on this
// dimension.
func CompanyCityKey(company, city string) string {
	c := strings.ToLower(strings.TrimSpace(company))
	t := strings.ToLower(strings.TrimSpace(city))
	if c == "" || t == "" {
		return ""
	}
	return c + "|" + t
}

// Engine filters candidate batches against a user's existing leads.
type Engine struct {
	store ExistingChecker
}

// NewEngine creates a deduplication engine backed by the given store.
func NewEngine(store ExistingChecker) *Engine {
	return &Engine{store: store}
}

// SelfDedup removes duplicates within the batch itself, keeping the first
// occurrence, using the same two identity checks as the existing-records
// pass.
func SelfDedup(batch []model.ScrapedLead) []model.ScrapedLead {
	seenSites := make(map[string]bool)
	seenPairs := make(map[string]bool)
	out := make([]model.ScrapedLead, 0, len(batch))

	for _, lead := range batch {
		site := WebsiteKey(lead.WebsiteURL, lead.SourceURL)
		pair := CompanyCityKey(lead.Company, lead.City)

		if site != "" && seenSites[site] {
			continue
		}
		if pair != "" && seenPairs[pair] {
			continue
		}
		if site != "" {
			seenSites[site] = true
		}
		if pair != "" {
			seenPairs[pair] = true
		}
		out = append(out, lead)
	}
	return out
}

// Filter returns the subset of batch with no match against the user's
// existing leads. A candidate is a duplicate if either identity check
// matches. The batch is self-deduplicated first, then existing leads are
// fetched once per identity dimension.
func (e *Engine) Filter(ctx context.Context, userID string, batch []model.ScrapedLead) ([]model.ScrapedLead, error) {
	batch = SelfDedup(batch)
	if len(batch) == 0 {
		return batch, nil
	}

	var websites, companies []string
	siteSet := make(map[string]bool)
	companySet := make(map[string]bool)
	for _, lead := range batch {
		if site := WebsiteKey(lead.WebsiteURL, lead.SourceURL); site != "" && !siteSet[site] {
			siteSet[site] = true
			websites = append(websites, site)
		}
		if company := strings.ToLower(strings.TrimSpace(lead.Company)); company != "" && !companySet[company] {
			companySet[company] = true
			companies = append(companies, company)
		}
	}

	existingSites := map[string]bool{}
	if len(websites) > 0 {
		var err error
		existingSites, err = e.store.LeadsByWebsites(ctx, userID, websites)
		if err != nil {
			return nil, eris.Wrap(err, "dedup: query existing websites")
		}
	}

	existingPairs := map[string]bool{}
	if len(companies) > 0 {
		var err error
		existingPairs, err = e.store.LeadsByCompanies(ctx, userID, companies)
		if err != nil {
			return nil, eris.Wrap(err, "dedup: query existing companies")
		}
	}

	out := make([]model.ScrapedLead, 0, len(batch))
	dropped := 0
	for _, lead := range batch {
		site := WebsiteKey(lead.WebsiteURL, lead.SourceURL)
		pair := CompanyCityKey(lead.Company, lead.City)

		if site != "" && existingSites[site] {
			dropped++
			continue
		}
		if pair != "" && existingPairs[pair] {
			dropped++
			continue
		}
		out = append(out, lead)
	}

	if dropped > 0 {
		zap.L().Info("dedup: dropped duplicates",
			zap.String("user_id", userID),
			zap.Int("batch", len(batch)),
			zap.Int("dropped", dropped),
		)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
