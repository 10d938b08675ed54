package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc1992/leadgen-ai/internal/model"
)

func TestClassifyByShape(t *testing.T) {
	tests := []struct {
		name     string
		rec      map[string]any
		provider string
		want     model.Channel
	}{
		{
			name: "profile by name parts",
			rec:  map[string]any{"firstName": "Jane", "lastName": "Doe"},
			want: model.ChannelLinkedIn,
		},
		{
			name: "profile by headline",
			rec:  map[string]any{"headline": "CTO at Acme", "name": "Jane Doe"},
			want: model.ChannelLinkedIn,
		},
		{
			name: "place by placeId",
			rec:  map[string]any{"placeId": "abc123", "title": "Acme Bakery"},
			want: model.ChannelMaps,
		},
		{
			name: "place by rating fields",
			rec:  map[string]any{"totalScore": 4.5, "reviewsCount": float64(12), "title": "Acme"},
			want: model.ChannelMaps,
		},
		{
			name: "validator by bare email",
			rec:  map[string]any{"email": "jane@acme.io", "status": "valid"},
			want: model.ChannelValidator,
		},
		{
			name:     "profile wins over email",
			rec:      map[string]any{"email": "jane@acme.io", "jobTitle": "CEO"},
			want:     model.ChannelLinkedIn,
			provider: "validator",
		},
		{
			name:     "shapeless record falls back to provider hint",
			rec:      map[string]any{"foo": "bar"},
			provider: "compass/google-maps-scraper",
			want:     model.ChannelMaps,
		},
		{
			name:     "shapeless record with opaque provider",
			rec:      map[string]any{"foo": "bar"},
			provider: "x7Kp2qR",
			want:     model.ChannelUnknown,
		},
		{
			name: "empty record",
			rec:  map[string]any{},
			want: model.ChannelUnknown,
		},
		{
			name: "nil record",
			rec:  nil,
			want: model.ChannelUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.rec, tt.provider))
		})
	}
}

func TestAdaptIsTotal(t *testing.T) {
	// Wrong-typed and missing fields must never panic; they yield empty
	// fields on a well-formed record.
	records := []map[string]any{
		nil,
		{},
		{"firstName": 42, "lastName": []string{"x"}, "email": map[string]any{}},
		{"placeId": true, "totalScore": "not a number", "reviewsCount": "many"},
		{"email": 3.14, "status": nil},
	}

	for _, rec := range records {
		lead := Adapt(rec, "")
		assert.NotEmpty(t, lead.Channel)
		assert.NotEmpty(t, lead.EmailStatus)
	}
}

func TestAdaptProfile(t *testing.T) {
	lead := Adapt(map[string]any{
		"firstName":  "Jane",
		"lastName":   "Doe",
		"jobTitle":   "Founder & CEO",
		"company":    "Acme GmbH",
		"email":      "jane@acme.io",
		"city":       "Berlin",
		"profileUrl": "https://linkedin.com/in/janedoe",
	}, "linkedin-scraper")

	assert.Equal(t, model.ChannelLinkedIn, lead.Channel)
	assert.Equal(t, "Jane Doe", lead.FullName)
	assert.Equal(t, "Founder & CEO", lead.JobTitle)
	assert.Equal(t, "Acme GmbH", lead.Company)
	assert.Equal(t, "jane@acme.io", lead.Email)
	assert.Equal(t, "https://linkedin.com/in/janedoe", lead.SourceURL)
	assert.Equal(t, model.EmailStatusUnknown, lead.EmailStatus)
}

func TestAdaptProfileNestedBasicProfile(t *testing.T) {
	// Older actor versions nest person fields; flat keys still win.
	lead := Adapt(map[string]any{
		"basicProfile": map[string]any{
			"fullName": "Nested Name",
			"jobTitle": "Nested Title",
			"city":     "Hamburg",
		},
		"jobTitle": "Flat Title",
	}, "")

	assert.Equal(t, "Nested Name", lead.FullName)
	assert.Equal(t, "Flat Title", lead.JobTitle)
	assert.Equal(t, "Hamburg", lead.City)
}

func TestAdaptPlace(t *testing.T) {
	lead := Adapt(map[string]any{
		"title":        "Acme Bakery",
		"placeId":      "pid-1",
		"phone":        "+49 30 1234567",
		"website":      "https://acme-bakery.de",
		"url":          "https://maps.google.com/?cid=42",
		"city":         "Berlin",
		"countryCode":  "DE",
		"totalScore":   4.6,
		"reviewsCount": float64(128),
		"categories":   []any{"Bakery", "Cafe"},
		"location":     map[string]any{"lat": 52.52, "lng": 13.405},
	}, "google-maps")

	assert.Equal(t, model.ChannelMaps, lead.Channel)
	assert.Equal(t, "Acme Bakery", lead.Company)
	assert.Equal(t, "https://acme-bakery.de", lead.WebsiteURL)
	assert.Equal(t, "https://maps.google.com/?cid=42", lead.SourceURL)
	assert.Equal(t, []string{"Bakery", "Cafe"}, lead.Categories)

	require.NotNil(t, lead.Lat)
	require.NotNil(t, lead.Lng)
	assert.InDelta(t, 52.52, *lead.Lat, 0.001)
	assert.InDelta(t, 13.405, *lead.Lng, 0.001)

	require.NotNil(t, lead.RatingAvg)
	require.NotNil(t, lead.RatingCount)
	assert.InDelta(t, 4.6, *lead.RatingAvg, 0.001)
	assert.Equal(t, 128, *lead.RatingCount)
}

func TestAdaptPlaceNeverReusesMapURLAsWebsite(t *testing.T) {
	lead := Adapt(map[string]any{
		"placeId": "pid-2",
		"title":   "No Website Inc",
		"url":     "https://maps.google.com/?cid=7",
	}, "")

	assert.Empty(t, lead.WebsiteURL)
	assert.Equal(t, "https://maps.google.com/?cid=7", lead.SourceURL)
}

func TestAdaptValidator(t *testing.T) {
	tests := []struct {
		verdict string
		want    model.EmailStatus
	}{
		{"valid", model.EmailStatusValid},
		{"Deliverable", model.EmailStatusValid},
		{"invalid", model.EmailStatusInvalid},
		{"BOUNCE", model.EmailStatusInvalid},
		{"catch-all", model.EmailStatusUnknown},
		{"", model.EmailStatusUnknown},
	}

	for _, tt := range tests {
		lead := Adapt(map[string]any{"email": "a@b.co", "status": tt.verdict}, "")
		assert.Equal(t, model.ChannelValidator, lead.Channel)
		assert.Equal(t, tt.want, lead.EmailStatus, "verdict %q", tt.verdict)
	}
}

func TestAdaptAllPreservesOrderAndLength(t *testing.T) {
	items := []map[string]any{
		{"firstName": "A", "lastName": "One"},
		nil,
		{"placeId": "p", "title": "B"},
	}

	leads := AdaptAll(items, "")
	require.Len(t, leads, 3)
	assert.Equal(t, "A One", leads[0].FullName)
	assert.Equal(t, model.ChannelUnknown, leads[1].Channel)
	assert.Equal(t, "B", leads[2].Company)
}
