// Package scoring implements the deterministic point table that maps lead
// attributes to a 0-100 sales-readiness score.
package scoring

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/smc1992/leadgen-ai/internal/config"
)

// DefaultConfig returns the authoritative point table. Historically two
// independently-maintained tables existed with thresholds of 50 and 75;
// this table with threshold 50 is the single deliberate choice, and every
// weight is named configuration.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		TitleKeywordBonus:   30,
		EmailBonus:          20,
		CompanyBonus:        10,
		RegionBonus:         15,
		GenericEmailPenalty: 10,
		ReadinessThreshold:  50,

		TitleKeywords: []string{
			"ceo", "founder", "owner", "partner", "president",
			"director", "head of", "vp", "vice president",
			"manager", "lead", "chief",
		},
		HighValueRegions: []string{
			"us", "usa", "united states", "uk", "united kingdom",
			"de", "germany", "ch", "switzerland", "at", "austria",
		},
		GenericPrefixes: []string{
			"info", "office", "contact", "admin", "support", "hello",
		},
	}
}

// Merge fills zero-valued fields of cfg from the defaults, so a partial
// config file only overrides what it names.
func Merge(cfg config.ScoringConfig) config.ScoringConfig {
	def := DefaultConfig()
	if cfg.TitleKeywordBonus == 0 {
		cfg.TitleKeywordBonus = def.TitleKeywordBonus
	}
	if cfg.EmailBonus == 0 {
		cfg.EmailBonus = def.EmailBonus
	}
	if cfg.CompanyBonus == 0 {
		cfg.CompanyBonus = def.CompanyBonus
	}
	if cfg.RegionBonus == 0 {
		cfg.RegionBonus = def.RegionBonus
	}
	if cfg.GenericEmailPenalty == 0 {
		cfg.GenericEmailPenalty = def.GenericEmailPenalty
	}
	if cfg.ReadinessThreshold == 0 {
		cfg.ReadinessThreshold = def.ReadinessThreshold
	}
	if len(cfg.TitleKeywords) == 0 {
		cfg.TitleKeywords = def.TitleKeywords
	}
	if len(cfg.HighValueRegions) == 0 {
		cfg.HighValueRegions = def.HighValueRegions
	}
	if len(cfg.GenericPrefixes) == 0 {
		cfg.GenericPrefixes = def.GenericPrefixes
	}
	return cfg
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	bonuses := map[string]int{
		"title_keyword_bonus":   c.TitleKeywordBonus,
		"email_bonus":           c.EmailBonus,
		"company_bonus":         c.CompanyBonus,
		"region_bonus":          c.RegionBonus,
		"generic_email_penalty": c.GenericEmailPenalty,
	}
	for name, v := range bonuses {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if c.ReadinessThreshold < 0 || c.ReadinessThreshold > 100 {
		errs = append(errs, "readiness_threshold must be between 0 and 100")
	}

	max := c.TitleKeywordBonus + c.EmailBonus + c.CompanyBonus + c.RegionBonus
	if max == 0 {
		errs = append(errs, "at least one bonus must be > 0")
	}
	if c.ReadinessThreshold > max {
		errs = append(errs, fmt.Sprintf("readiness_threshold %d is unreachable: bonuses sum to %d", c.ReadinessThreshold, max))
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
