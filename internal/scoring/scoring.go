package scoring

import (
	"strings"

	"github.com/smc1992/leadgen-ai/internal/config"
	"github.com/smc1992/leadgen-ai/internal/model"
)

// Scorer applies the point table. Both Score and IsOutreachReady are pure
// functions of the lead attributes and the configured weights.
type Scorer struct {
	cfg config.ScoringConfig
}

// New creates a Scorer, filling missing weights from the defaults.
func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: Merge(cfg)}
}

// Score maps lead attributes to an integer in [0,100].
//
// Points: title containing a seniority/function keyword, a non-empty
// non-generic email, a non-empty company, and a high-value region each add
// their bonus; a generic mailbox prefix (info@, office@, ...) subtracts the
// penalty instead of earning the email bonus.
func (s *Scorer) Score(lead model.ScrapedLead) int {
	score := 0

	title := strings.ToLower(lead.JobTitle)
	for _, kw := range s.cfg.TitleKeywords {
		if strings.Contains(title, kw) {
			score += s.cfg.TitleKeywordBonus
			break
		}
	}

	email := strings.TrimSpace(lead.Email)
	if email != "" {
		if s.isGeneric(email) {
			score -= s.cfg.GenericEmailPenalty
		} else {
			score += s.cfg.EmailBonus
		}
	}

	if strings.TrimSpace(lead.Company) != "" {
		score += s.cfg.CompanyBonus
	}

	region := strings.ToLower(strings.TrimSpace(lead.Region))
	for _, r := range s.cfg.HighValueRegions {
		if region == r {
			score += s.cfg.RegionBonus
			break
		}
	}

	return clamp(score)
}

// IsOutreachReady is the pure threshold comparison on a score.
func (s *Scorer) IsOutreachReady(score int) bool {
	return score >= s.cfg.ReadinessThreshold
}

// isGeneric reports whether the email's local part is a generic mailbox
// prefix.
func (s *Scorer) isGeneric(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 {
		return false
	}
	local := strings.ToLower(email[:at])
	for _, p := range s.cfg.GenericPrefixes {
		if local == p {
			return true
		}
	}
	return false
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
