package model

import "time"

// Channel tags the provenance of a lead.
type Channel string

const (
	ChannelLinkedIn  Channel = "linkedin"
	ChannelMaps      Channel = "maps"
	ChannelValidator Channel = "validator"
	ChannelManual    Channel = "manual"
	ChannelUnknown   Channel = "unknown"
)

// EmailStatus is the verification state of a lead's email address.
type EmailStatus string

const (
	EmailStatusValid   EmailStatus = "valid"
	EmailStatusInvalid EmailStatus = "invalid"
	EmailStatusUnknown EmailStatus = "unknown"
)

// Lead is the canonical, persisted lead record. All descriptive fields
// default to the empty string; a lead is never partially written.
type Lead struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	FullName   string  `json:"full_name"`
	JobTitle   string  `json:"job_title"`
	Company    string  `json:"company"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	WebsiteURL string  `json:"website_url"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
	Region     string  `json:"region"`
	Channel    Channel `json:"channel"`
	SourceURL  string  `json:"source_url"`

	// Geo and rating data is channel-specific and may be absent.
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	RatingAvg   *float64 `json:"rating_avg,omitempty"`
	RatingCount *int     `json:"rating_count,omitempty"`
	Categories  []string `json:"categories,omitempty"`

	Score           int         `json:"score"`
	IsOutreachReady bool        `json:"is_outreach_ready"`
	EmailStatus     EmailStatus `json:"email_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LeadUpdate holds the caller-editable subset of a lead. Nil fields are
// left unchanged.
type LeadUpdate struct {
	FullName    *string      `json:"full_name,omitempty"`
	JobTitle    *string      `json:"job_title,omitempty"`
	Company     *string      `json:"company,omitempty"`
	Email       *string      `json:"email,omitempty"`
	Phone       *string      `json:"phone,omitempty"`
	WebsiteURL  *string      `json:"website_url,omitempty"`
	Address     *string      `json:"address,omitempty"`
	City        *string      `json:"city,omitempty"`
	Country     *string      `json:"country,omitempty"`
	PostalCode  *string      `json:"postal_code,omitempty"`
	Region      *string      `json:"region,omitempty"`
	EmailStatus *EmailStatus `json:"email_status,omitempty"`
}

// LeadPage is the pagination envelope returned by lead listing.
type LeadPage struct {
	Leads      []Lead `json:"leads"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
}

// EmptyPage returns a well-formed empty envelope for the given pagination.
// Degraded reads (malformed list filter, transient query failure) return
// this instead of an error.
func EmptyPage(page, limit int) LeadPage {
	return LeadPage{Leads: []Lead{}, Page: page, Limit: limit, Total: 0, TotalPages: 0}
}
