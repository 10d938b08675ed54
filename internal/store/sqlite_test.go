package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc1992/leadgen-ai/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedLeads(t *testing.T, st *SQLiteStore, userID string, leads ...model.Lead) []model.Lead {
	t.Helper()
	inserted, err := st.InsertLeads(context.Background(), userID, leads)
	require.NoError(t, err)
	return inserted
}

func TestSQLiteInsertAndGet(t *testing.T) {
	st := newTestStore(t)
	lat := 52.52
	count := 12

	inserted := seedLeads(t, st, "u1", model.Lead{
		FullName:        "Jane Doe",
		Company:         "Acme",
		Email:           "jane@acme.de",
		WebsiteURL:      "https://acme.de",
		Channel:         model.ChannelMaps,
		Lat:             &lat,
		RatingCount:     &count,
		Categories:      []string{"Bakery"},
		Score:           75,
		IsOutreachReady: true,
		EmailStatus:     model.EmailStatusValid,
	})
	require.Len(t, inserted, 1)
	require.NotEmpty(t, inserted[0].ID)

	got, err := st.GetLead(context.Background(), "u1", inserted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.FullName)
	assert.Equal(t, model.ChannelMaps, got.Channel)
	assert.Equal(t, 75, got.Score)
	assert.True(t, got.IsOutreachReady)
	assert.Equal(t, []string{"Bakery"}, got.Categories)
	require.NotNil(t, got.Lat)
	assert.InDelta(t, 52.52, *got.Lat, 0.001)
	require.NotNil(t, got.RatingCount)
	assert.Equal(t, 12, *got.RatingCount)
}

func TestSQLiteGetLeadScopedByUser(t *testing.T) {
	st := newTestStore(t)
	inserted := seedLeads(t, st, "u1", model.Lead{Company: "Acme"})

	_, err := st.GetLead(context.Background(), "u2", inserted[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteInsertSkipsWebsiteConflicts(t *testing.T) {
	st := newTestStore(t)
	seedLeads(t, st, "u1", model.Lead{Company: "Acme", WebsiteURL: "https://acme.de/"})

	// Same normalized website for the same user: skipped, not an error.
	second, err := st.InsertLeads(context.Background(), "u1", []model.Lead{
		{Company: "Acme Again", WebsiteURL: "http://acme.de"},
	})
	require.NoError(t, err)
	assert.Empty(t, second)

	// A different user may hold the same website.
	third, err := st.InsertLeads(context.Background(), "u2", []model.Lead{
		{Company: "Acme", WebsiteURL: "https://acme.de"},
	})
	require.NoError(t, err)
	assert.Len(t, third, 1)
}

func TestSQLiteInsertAllowsManyEmptyWebsites(t *testing.T) {
	st := newTestStore(t)
	inserted := seedLeads(t, st, "u1",
		model.Lead{Company: "One"},
		model.Lead{Company: "Two"},
	)
	assert.Len(t, inserted, 2)
}

func TestSQLiteListLeadsFilters(t *testing.T) {
	st := newTestStore(t)
	seedLeads(t, st, "u1",
		model.Lead{FullName: "Jane Doe", Company: "Acme", Region: "de", Score: 80, IsOutreachReady: true, EmailStatus: model.EmailStatusValid, WebsiteURL: "https://acme.de"},
		model.Lead{FullName: "John Roe", Company: "Beta", Region: "us", Score: 30, EmailStatus: model.EmailStatusUnknown, WebsiteURL: "https://beta.io"},
		model.Lead{FullName: "Max Mustermann", Company: "Gamma", Region: "de", Score: 55, IsOutreachReady: true, EmailStatus: model.EmailStatusInvalid, WebsiteURL: "https://gamma.de"},
	)
	seedLeads(t, st, "u2", model.Lead{FullName: "Other Tenant", Company: "Acme"})

	ctx := context.Background()

	page, err := st.ListLeads(ctx, "u1", LeadFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	page, err = st.ListLeads(ctx, "u1", LeadFilter{Region: "de"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = st.ListLeads(ctx, "u1", LeadFilter{Search: "jane"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Jane Doe", page.Leads[0].FullName)

	min := 50
	page, err = st.ListLeads(ctx, "u1", LeadFilter{ScoreMin: &min})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	ready := true
	page, err = st.ListLeads(ctx, "u1", LeadFilter{OutreachReady: &ready})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = st.ListLeads(ctx, "u1", LeadFilter{EmailStatus: model.EmailStatusValid})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestSQLiteListLeadsPagination(t *testing.T) {
	st := newTestStore(t)
	var batch []model.Lead
	for i := 0; i < 7; i++ {
		batch = append(batch, model.Lead{Company: "Co", FullName: "Lead"})
	}
	seedLeads(t, st, "u1", batch...)

	page, err := st.ListLeads(context.Background(), "u1", LeadFilter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Leads, 3)

	page, err = st.ListLeads(context.Background(), "u1", LeadFilter{Page: 3, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Leads, 1)
}

func TestSQLiteListLeadsByList(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	inserted := seedLeads(t, st, "u1",
		model.Lead{Company: "In List", WebsiteURL: "https://a.de"},
		model.Lead{Company: "Not In List", WebsiteURL: "https://b.de"},
	)

	list, err := st.CreateList(ctx, "u1", "Prospects")
	require.NoError(t, err)
	require.NoError(t, st.AddListItems(ctx, list.ID, []string{inserted[0].ID}))

	page, err := st.ListLeads(ctx, "u1", LeadFilter{ListID: list.ID})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "In List", page.Leads[0].Company)
}

func TestSQLiteUpdateLead(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	inserted := seedLeads(t, st, "u1", model.Lead{Company: "Acme", Email: ""})

	email := "new@acme.de"
	status := model.EmailStatusValid
	updated, err := st.UpdateLead(ctx, "u1", inserted[0].ID, model.LeadUpdate{
		Email:       &email,
		EmailStatus: &status,
	})
	require.NoError(t, err)
	assert.Equal(t, "new@acme.de", updated.Email)
	assert.Equal(t, model.EmailStatusValid, updated.EmailStatus)
	// Untouched fields survive.
	assert.Equal(t, "Acme", updated.Company)

	_, err = st.UpdateLead(ctx, "u2", inserted[0].ID, model.LeadUpdate{Email: &email})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteDeleteLead(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	inserted := seedLeads(t, st, "u1", model.Lead{Company: "Acme"})

	assert.ErrorIs(t, st.DeleteLead(ctx, "u2", inserted[0].ID), ErrNotFound)
	require.NoError(t, st.DeleteLead(ctx, "u1", inserted[0].ID))
	assert.ErrorIs(t, st.DeleteLead(ctx, "u1", inserted[0].ID), ErrNotFound)
}

func TestSQLiteDedupQueries(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedLeads(t, st, "u1",
		model.Lead{Company: "Acme GmbH", City: "Berlin", WebsiteURL: "https://acme.de"},
	)

	sites, err := st.LeadsByWebsites(ctx, "u1", []string{"acme.de", "other.io"})
	require.NoError(t, err)
	assert.True(t, sites["acme.de"])
	assert.False(t, sites["other.io"])

	pairs, err := st.LeadsByCompanies(ctx, "u1", []string{"acme gmbh"})
	require.NoError(t, err)
	assert.True(t, pairs["acme gmbh|berlin"])

	// Scoped by user.
	sites, err = st.LeadsByWebsites(ctx, "u2", []string{"acme.de"})
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestSQLiteListMembershipIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	inserted := seedLeads(t, st, "u1", model.Lead{Company: "Acme"})

	list, err := st.CreateList(ctx, "u1", "Prospects")
	require.NoError(t, err)

	require.NoError(t, st.AddListItems(ctx, list.ID, []string{inserted[0].ID}))
	require.NoError(t, st.AddListItems(ctx, list.ID, []string{inserted[0].ID}))

	page, err := st.ListLeads(ctx, "u1", LeadFilter{ListID: list.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestSQLiteScrapeRunLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run := model.ScrapeRun{ID: "run-1", Type: "maps", Status: model.RunStatusReady, TriggeredBy: "u1"}
	require.NoError(t, st.CreateScrapeRun(ctx, run))

	got, err := st.GetScrapeRun(ctx, "u1", "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusReady, got.Status)

	_, err = st.GetScrapeRun(ctx, "u2", "run-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.CompleteScrapeRun(ctx, "run-1", model.RunStatusSucceeded, 42, ""))
	got, err = st.GetScrapeRun(ctx, "u1", "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, got.Status)
	assert.Equal(t, 42, got.ResultCount)

	assert.ErrorIs(t, st.CompleteScrapeRun(ctx, "missing", model.RunStatusFailed, 0, "x"), ErrNotFound)
}
