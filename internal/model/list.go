package model

import "time"

// LeadList is a named collection of leads owned by one user.
type LeadList struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadListItem is pure membership of a lead in a list, unique per pair.
type LeadListItem struct {
	ListID string `json:"list_id"`
	LeadID string `json:"lead_id"`
}
