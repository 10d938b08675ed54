package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smc1992/leadgen-ai/internal/auth"
	"github.com/smc1992/leadgen-ai/internal/config"
	"github.com/smc1992/leadgen-ai/internal/ingest"
	"github.com/smc1992/leadgen-ai/internal/model"
	"github.com/smc1992/leadgen-ai/internal/scoring"
	"github.com/smc1992/leadgen-ai/internal/store"
)

const testSecret = "server-test-secret"

// apiStore is a minimal in-memory Store for handler tests.
type apiStore struct {
	store.Store

	leads    map[string]*model.Lead
	listErr  error
	lists    map[string]*model.LeadList
	addErr   error
	inserted int
}

func newAPIStore() *apiStore {
	return &apiStore{
		leads: map[string]*model.Lead{},
		lists: map[string]*model.LeadList{},
	}
}

func (s *apiStore) InsertLeads(_ context.Context, userID string, leads []model.Lead) ([]model.Lead, error) {
	out := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		l.ID = uuid.NewString()
		l.UserID = userID
		s.leads[l.ID] = &l
		out = append(out, l)
		s.inserted++
	}
	return out, nil
}

func (s *apiStore) ListLeads(_ context.Context, userID string, filter store.LeadFilter) (model.LeadPage, error) {
	if s.listErr != nil {
		return model.LeadPage{}, s.listErr
	}
	filter = filter.Normalize()
	page := model.LeadPage{Leads: []model.Lead{}, Page: filter.Page, Limit: filter.Limit}
	for _, l := range s.leads {
		if l.UserID == userID {
			page.Leads = append(page.Leads, *l)
		}
	}
	page.Total = len(page.Leads)
	if page.Total > 0 {
		page.TotalPages = 1
	}
	return page, nil
}

func (s *apiStore) GetLead(_ context.Context, userID, id string) (*model.Lead, error) {
	l, ok := s.leads[id]
	if !ok || l.UserID != userID {
		return nil, store.ErrNotFound
	}
	return l, nil
}

func (s *apiStore) UpdateLead(_ context.Context, userID, id string, upd model.LeadUpdate) (*model.Lead, error) {
	l, err := s.GetLead(context.Background(), userID, id)
	if err != nil {
		return nil, err
	}
	if upd.Email != nil {
		l.Email = *upd.Email
	}
	if upd.FullName != nil {
		l.FullName = *upd.FullName
	}
	return l, nil
}

func (s *apiStore) DeleteLead(_ context.Context, userID, id string) error {
	if _, err := s.GetLead(context.Background(), userID, id); err != nil {
		return err
	}
	delete(s.leads, id)
	return nil
}

func (s *apiStore) LeadsByWebsites(_ context.Context, _ string, _ []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (s *apiStore) LeadsByCompanies(_ context.Context, _ string, _ []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (s *apiStore) CreateList(_ context.Context, userID, name string) (*model.LeadList, error) {
	list := &model.LeadList{ID: uuid.NewString(), UserID: userID, Name: name}
	s.lists[list.ID] = list
	return list, nil
}

func (s *apiStore) GetList(_ context.Context, userID, listID string) (*model.LeadList, error) {
	list, ok := s.lists[listID]
	if !ok || list.UserID != userID {
		return nil, store.ErrNotFound
	}
	return list, nil
}

func (s *apiStore) AddListItems(_ context.Context, _ string, _ []string) error {
	return s.addErr
}

type testAPI struct {
	srv    *httptest.Server
	store  *apiStore
	token  string
	userID string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	st := newAPIStore()
	verifier := auth.NewVerifier(testSecret)
	pipeline := ingest.New(st, nil, scoring.New(config.ScoringConfig{}))
	server := newServer(st, pipeline, nil, verifier, config.ServerConfig{AllowedOrigins: []string{"*"}}, prometheus.NewRegistry())

	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)

	userID := uuid.NewString()
	token, err := verifier.Sign(userID)
	require.NoError(t, err)

	return &testAPI{srv: srv, store: st, token: token, userID: userID}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func TestHealthIsPublic(t *testing.T) {
	api := newTestAPI(t)
	resp, err := http.Get(api.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRequiresSession(t *testing.T) {
	api := newTestAPI(t)
	resp, err := http.Get(api.srv.URL + "/api/leads")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIngestAndListRoundTrip(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, http.MethodPost, "/api/leads/ingest", ingest.Request{
		Leads: []model.ScrapedLead{
			{FullName: "Jane Doe", JobTitle: "Founder", Company: "Acme", Email: "jane@acme.de", Region: "de"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var result ingest.Result
	require.NoError(t, json.Unmarshal(body, &result))
	require.Len(t, result.Leads, 1)
	assert.Equal(t, 75, result.Leads[0].Score)

	resp, body = api.do(t, http.MethodGet, "/api/leads", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page model.LeadPage
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 1, page.Total)
}

func TestIngestMalformedBodyIs400(t *testing.T) {
	api := newTestAPI(t)
	req, err := http.NewRequest(http.MethodPost, api.srv.URL+"/api/leads/ingest", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+api.token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestAttachFailureIsPartialSuccess(t *testing.T) {
	api := newTestAPI(t)
	api.store.addErr = errors.New("db down")

	resp, body := api.do(t, http.MethodPost, "/api/leads/ingest", ingest.Request{
		Leads:    []model.ScrapedLead{{Company: "Acme"}},
		ListName: "Prospects",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result ingest.Result
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Len(t, result.Leads, 1)
	assert.NotEmpty(t, result.AttachError)
	// The list was created before the attachment failed; its id comes back so
	// the client can retry the attachment on its own.
	require.NotNil(t, result.ListID)
	assert.Contains(t, api.store.lists, *result.ListID)
}

func TestListLeadsMalformedListFilterDegradesToEmptyPage(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/leads/ingest", ingest.Request{
		Leads: []model.ScrapedLead{{Company: "Acme"}},
	})

	resp, body := api.do(t, http.MethodGet, "/api/leads?listId=not-a-uuid&page=2&limit=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page model.LeadPage
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Leads)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.Limit)
}

func TestListLeadsStoreFailureDegradesToEmptyPage(t *testing.T) {
	api := newTestAPI(t)
	api.store.listErr = errors.New("db down")

	resp, body := api.do(t, http.MethodGet, "/api/leads", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page model.LeadPage
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Leads)
}

func TestGetUpdateDeleteLead(t *testing.T) {
	api := newTestAPI(t)
	_, body := api.do(t, http.MethodPost, "/api/leads/ingest", ingest.Request{
		Leads: []model.ScrapedLead{{Company: "Acme"}},
	})
	var result ingest.Result
	require.NoError(t, json.Unmarshal(body, &result))
	id := result.Leads[0].ID

	resp, body := api.do(t, http.MethodGet, fmt.Sprintf("/api/leads/%s", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lead model.Lead
	require.NoError(t, json.Unmarshal(body, &lead))
	assert.Equal(t, "Acme", lead.Company)

	email := "new@acme.de"
	resp, body = api.do(t, http.MethodPatch, fmt.Sprintf("/api/leads/%s", id), model.LeadUpdate{Email: &email})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &lead))
	assert.Equal(t, "new@acme.de", lead.Email)

	resp, _ = api.do(t, http.MethodDelete, fmt.Sprintf("/api/leads/%s", id), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = api.do(t, http.MethodGet, fmt.Sprintf("/api/leads/%s", id), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunEndpointsUnavailableWithoutProvider(t *testing.T) {
	api := newTestAPI(t)

	resp, _ := api.do(t, http.MethodPost, "/api/runs", map[string]any{"type": "maps"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = api.do(t, http.MethodGet, "/api/runs/run-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
