// Package enrich is the optional best-effort pass that fetches a business's
// website and extracts contact emails, phones, and social links. It only
// fills fields the adapters left empty, and no failure here ever fails the
// batch.
package enrich

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/smc1992/leadgen-ai/internal/config"
	"github.com/smc1992/leadgen-ai/internal/model"
)

// maxBodyBytes bounds how much of a page is read for pattern matching.
const maxBodyBytes = 512 * 1024

// Enricher fetches business homepages under per-request timeouts and a
// shared rate limit.
type Enricher struct {
	cfg     config.EnrichConfig
	http    *http.Client
	limiter *rate.Limiter
}

// New creates an Enricher from config.
func New(cfg config.EnrichConfig) *Enricher {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Enricher{
		cfg:     cfg,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Apply enriches maps-channel records lacking any contact email, bounded to
// a prefix of the batch so one slow site cannot stall the whole ingestion.
// The returned slice is the input with enrichment merged in place.
func (e *Enricher) Apply(ctx context.Context, leads []model.ScrapedLead) []model.ScrapedLead {
	if !e.cfg.Enabled || len(leads) == 0 {
		return leads
	}

	cap := e.cfg.MaxCandidates
	if cap <= 0 {
		cap = 20
	}

	var candidates []int
	for i := range leads {
		if len(candidates) >= cap {
			break
		}
		if isCandidate(leads[i]) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return leads
	}

	maxConcurrent := e.cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for _, idx := range candidates {
		g.Go(func() error {
			e.enrichOne(gCtx, &leads[idx])
			return nil
		})
	}
	_ = g.Wait()

	return leads
}

// isCandidate: maps channel, has a website, has no contact email yet.
func isCandidate(lead model.ScrapedLead) bool {
	return lead.Channel == model.ChannelMaps &&
		lead.WebsiteURL != "" &&
		lead.Email == "" &&
		len(lead.ContactEmails) == 0
}

// enrichOne fetches the homepage and the /contact sub-path with independent
// timeouts, extracts contact data from the combined HTML, and fills only
// empty fields. All failures degrade to no enrichment for this record.
func (e *Enricher) enrichOne(ctx context.Context, lead *model.ScrapedLead) {
	base := ensureScheme(lead.WebsiteURL)

	homepageTimeout := time.Duration(e.cfg.HomepageTimeoutSecs) * time.Second
	if homepageTimeout <= 0 {
		homepageTimeout = 6 * time.Second
	}
	contactTimeout := time.Duration(e.cfg.ContactTimeoutSecs) * time.Second
	if contactTimeout <= 0 {
		contactTimeout = 4 * time.Second
	}

	html := e.fetch(ctx, base, homepageTimeout)
	html += e.fetch(ctx, strings.TrimSuffix(base, "/")+"/contact", contactTimeout)
	if html == "" {
		zap.L().Debug("enrich: no content fetched", zap.String("website", lead.WebsiteURL))
		return
	}

	emails := ExtractEmails(html)
	phones := ExtractPhones(html)
	socials := ExtractSocials(html)

	if lead.Email == "" && len(emails) > 0 {
		lead.Email = emails[0]
	}
	if len(lead.ContactEmails) == 0 {
		lead.ContactEmails = emails
	}
	if lead.Phone == "" && len(phones) > 0 {
		lead.Phone = phones[0]
	}
	if len(lead.ContactPhones) == 0 {
		lead.ContactPhones = phones
	}
	if len(lead.SocialProfiles) == 0 {
		lead.SocialProfiles = socials
	}

	zap.L().Debug("enrich: extracted contact data",
		zap.String("website", lead.WebsiteURL),
		zap.Int("emails", len(emails)),
		zap.Int("phones", len(phones)),
		zap.Int("socials", len(socials)),
	)
}

// fetch retrieves one URL under its own timeout. Any failure returns "".
func (e *Enricher) fetch(ctx context.Context, url string, timeout time.Duration) string {
	if err := e.limiter.Wait(ctx); err != nil {
		return ""
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; leadgen-ai/1.0)")

	resp, err := e.http.Do(req)
	if err != nil {
		zap.L().Debug("enrich: fetch failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ""
	}
	return string(body)
}

func ensureScheme(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "https://" + url
}
