package model

import "time"

// SocialProfile is a typed social media link discovered for a business.
type SocialProfile struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Contact is a secondary person discovered at the same business.
type Contact struct {
	Name       string `json:"name,omitempty"`
	Title      string `json:"title,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// ScrapedLead is the transient, pre-persistence shape produced by the
// source adapters. It carries the descriptive surface of a Lead plus
// provider-specific enrichment bags, and is consumed exactly once by the
// ingestion pipeline.
type ScrapedLead struct {
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

	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	RatingAvg   *float64 `json:"rating_avg,omitempty"`
	RatingCount *int     `json:"rating_count,omitempty"`
	Categories  []string `json:"categories,omitempty"`

	EmailStatus EmailStatus `json:"email_status,omitempty"`

	ContactEmails  []string        `json:"contact_emails,omitempty"`
	ContactPhones  []string        `json:"contact_phones,omitempty"`
	SocialProfiles []SocialProfile `json:"social_profiles,omitempty"`
	Contacts       []Contact       `json:"contacts,omitempty"`
}

// RunStatus is the lower-cased provider vocabulary for a scrape job state.
type RunStatus string

const (
	RunStatusReady     RunStatus = "ready"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status will not change on further polling.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// ScrapeRun records one remote scrape job. The id is provider-assigned.
// Status and result count are updated once, when the job is observed to
// have finished; rows are never deleted by this service.
type ScrapeRun struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Status       RunStatus `json:"status"`
	ResultCount  int       `json:"result_count"`
	TriggeredBy  string    `json:"triggered_by"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
