package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/smc1992/leadgen-ai/internal/db"
	"github.com/smc1992/leadgen-ai/internal/dedup"
	"github.com/smc1992/leadgen-ai/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// leadColumns is the full column list in scan order.
const leadColumns = `id, user_id, full_name, job_title, company, email, phone,
	website_url, address, city, country, postal_code, region, channel,
	source_url, lat, lng, rating_avg, rating_count, categories,
	score, is_outreach_ready, email_status, created_at, updated_at`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id           TEXT NOT NULL,
	full_name         TEXT NOT NULL DEFAULT '',
	job_title         TEXT NOT NULL DEFAULT '',
	company           TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	website_url       TEXT NOT NULL DEFAULT '',
	website_norm      TEXT NOT NULL DEFAULT '',
	address           TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	country           TEXT NOT NULL DEFAULT '',
	postal_code       TEXT NOT NULL DEFAULT '',
	region            TEXT NOT NULL DEFAULT '',
	channel           TEXT NOT NULL DEFAULT 'unknown',
	source_url        TEXT NOT NULL DEFAULT '',
	lat               DOUBLE PRECISION,
	lng               DOUBLE PRECISION,
	rating_avg        DOUBLE PRECISION,
	rating_count      INTEGER,
	categories        JSONB,
	score             INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0 AND score <= 100),
	is_outreach_ready BOOLEAN NOT NULL DEFAULT false,
	email_status      TEXT NOT NULL DEFAULT 'unknown',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_user_created ON leads(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_leads_user_company ON leads(user_id, lower(company));

-- Two concurrent ingestion calls can both pass the dedup check for the
-- same external record; the constraint turns that race into a skipped
-- insert instead of a double row.
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_user_website
	ON leads(user_id, website_norm) WHERE website_norm <> '';

CREATE TABLE IF NOT EXISTS lead_lists (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_lead_lists_user ON lead_lists(user_id);

CREATE TABLE IF NOT EXISTS lead_list_items (
	list_id TEXT NOT NULL REFERENCES lead_lists(id),
	lead_id TEXT NOT NULL REFERENCES leads(id),
	PRIMARY KEY (list_id, lead_id)
);

CREATE TABLE IF NOT EXISTS scrape_runs (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'ready',
	result_count  INTEGER NOT NULL DEFAULT 0,
	triggered_by  TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scrape_runs_user ON scrape_runs(triggered_by, created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const insertLeadSQL = `INSERT INTO leads (
	user_id, full_name, job_title, company, email, phone, website_url,
	website_norm, address, city, country, postal_code, region, channel,
	source_url, lat, lng, rating_avg, rating_count, categories,
	score, is_outreach_ready, email_status
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
ON CONFLICT (user_id, website_norm) WHERE website_norm <> '' DO NOTHING
RETURNING ` + leadColumns

// InsertLeads bulk-inserts scored leads for one user and returns the rows
// actually written. Rows skipped by the website uniqueness constraint are
// silently dropped from the result.
func (s *PostgresStore) InsertLeads(ctx context.Context, userID string, leads []model.Lead) ([]model.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, l := range leads {
		var categories []byte
		if len(l.Categories) > 0 {
			categories, _ = json.Marshal(l.Categories)
		}
		batch.Queue(insertLeadSQL,
			userID, l.FullName, l.JobTitle, l.Company, l.Email, l.Phone,
			l.WebsiteURL, dedup.WebsiteKey(l.WebsiteURL, l.SourceURL),
			l.Address, l.City, l.Country, l.PostalCode, l.Region,
			string(l.Channel), l.SourceURL, l.Lat, l.Lng, l.RatingAvg,
			l.RatingCount, categories, l.Score, l.IsOutreachReady,
			string(l.EmailStatus),
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := make([]model.Lead, 0, len(leads))
	for range leads {
		row := results.QueryRow()
		lead, err := scanLead(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Conflict skip: the lead already exists for this user.
				continue
			}
			return nil, eris.Wrap(err, "postgres: insert leads")
		}
		inserted = append(inserted, *lead)
	}
	return inserted, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, userID string, filter LeadFilter) (model.LeadPage, error) {
	filter = filter.Normalize()

	where := []string{"user_id = $1"}
	args := []any{userID}
	argIdx := 2

	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(full_name ILIKE $%d OR company ILIKE $%d OR email ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	if filter.Region != "" {
		where = append(where, fmt.Sprintf("region = $%d", argIdx))
		args = append(args, filter.Region)
		argIdx++
	}
	if filter.EmailStatus != "" {
		where = append(where, fmt.Sprintf("email_status = $%d", argIdx))
		args = append(args, string(filter.EmailStatus))
		argIdx++
	}
	if filter.ScoreMin != nil {
		where = append(where, fmt.Sprintf("score >= $%d", argIdx))
		args = append(args, *filter.ScoreMin)
		argIdx++
	}
	if filter.ScoreMax != nil {
		where = append(where, fmt.Sprintf("score <= $%d", argIdx))
		args = append(args, *filter.ScoreMax)
		argIdx++
	}
	if filter.OutreachReady != nil {
		where = append(where, fmt.Sprintf("is_outreach_ready = $%d", argIdx))
		args = append(args, *filter.OutreachReady)
		argIdx++
	}
	if filter.ListID != "" {
		where = append(where, fmt.Sprintf("id IN (SELECT lead_id FROM lead_list_items WHERE list_id = $%d)", argIdx))
		args = append(args, filter.ListID)
		argIdx++
	}

	whereSQL := strings.Join(where, " AND ")

	var total int
	countSQL := "SELECT count(*) FROM leads WHERE " + whereSQL
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return model.LeadPage{}, eris.Wrap(err, "postgres: count leads")
	}

	pageSQL := fmt.Sprintf(
		"SELECT %s FROM leads WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		leadColumns, whereSQL, argIdx, argIdx+1,
	)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := s.pool.Query(ctx, pageSQL, args...)
	if err != nil {
		return model.LeadPage{}, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	leads := []model.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return model.LeadPage{}, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return model.LeadPage{}, eris.Wrap(err, "postgres: list leads rows")
	}

	return model.LeadPage{
		Leads:      leads,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, userID, id string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM leads WHERE id = $1 AND user_id = $2", leadColumns),
		id, userID,
	)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return lead, nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, userID, id string, upd model.LeadUpdate) (*model.Lead, error) {
	set := []string{"updated_at = now()"}
	args := []any{id, userID}
	argIdx := 3

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if upd.FullName != nil {
		add("full_name", *upd.FullName)
	}
	if upd.JobTitle != nil {
		add("job_title", *upd.JobTitle)
	}
	if upd.Company != nil {
		add("company", *upd.Company)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Phone != nil {
		add("phone", *upd.Phone)
	}
	if upd.WebsiteURL != nil {
		add("website_url", *upd.WebsiteURL)
		add("website_norm", dedup.NormalizeWebsite(*upd.WebsiteURL))
	}
	if upd.Address != nil {
		add("address", *upd.Address)
	}
	if upd.City != nil {
		add("city", *upd.City)
	}
	if upd.Country != nil {
		add("country", *upd.Country)
	}
	if upd.PostalCode != nil {
		add("postal_code", *upd.PostalCode)
	}
	if upd.Region != nil {
		add("region", *upd.Region)
	}
	if upd.EmailStatus != nil {
		add("email_status", string(*upd.EmailStatus))
	}

	sql := fmt.Sprintf(
		"UPDATE leads SET %s WHERE id = $1 AND user_id = $2 RETURNING %s",
		strings.Join(set, ", "), leadColumns,
	)

	lead, err := scanLead(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: update lead %s", id)
	}
	return lead, nil
}

func (s *PostgresStore) DeleteLead(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM leads WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) LeadsByWebsites(ctx context.Context, userID string, websites []string) (map[string]bool, error) {
	if len(websites) == 0 {
		return map[string]bool{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT website_norm FROM leads WHERE user_id = $1 AND website_norm = ANY($2)`,
		userID, websites,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: leads by websites")
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, eris.Wrap(err, "postgres: scan website")
		}
		out[site] = true
	}
	return out, rows.Err()
}

func (s *PostgresStore) LeadsByCompanies(ctx context.Context, userID string, companies []string) (map[string]bool, error) {
	if len(companies) == 0 {
		return map[string]bool{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT company, city FROM leads WHERE user_id = $1 AND lower(company) = ANY($2)`,
		userID, companies,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: leads by companies")
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var company, city string
		if err := rows.Scan(&company, &city); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		if key := dedup.CompanyCityKey(company, city); key != "" {
			out[key] = true
		}
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateList(ctx context.Context, userID, name string) (*model.LeadList, error) {
	var list model.LeadList
	err := s.pool.QueryRow(ctx,
		`INSERT INTO lead_lists (user_id, name) VALUES ($1, $2)
		 RETURNING id, user_id, name, created_at`,
		userID, name,
	).Scan(&list.ID, &list.UserID, &list.Name, &list.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create list")
	}
	return &list, nil
}

func (s *PostgresStore) GetList(ctx context.Context, userID, listID string) (*model.LeadList, error) {
	var list model.LeadList
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, created_at FROM lead_lists WHERE id = $1 AND user_id = $2`,
		listID, userID,
	).Scan(&list.ID, &list.UserID, &list.Name, &list.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get list %s", listID)
	}
	return &list, nil
}

// AddListItems writes membership rows. Pairs that already exist are left
// alone, so a retried attachment after a partial failure converges.
func (s *PostgresStore) AddListItems(ctx context.Context, listID string, leadIDs []string) error {
	if len(leadIDs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, leadID := range leadIDs {
		batch.Queue(
			`INSERT INTO lead_list_items (list_id, lead_id) VALUES ($1, $2)
			 ON CONFLICT (list_id, lead_id) DO NOTHING`,
			listID, leadID,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range leadIDs {
		if _, err := results.Exec(); err != nil {
			return eris.Wrap(err, "postgres: add list items")
		}
	}
	return nil
}

func (s *PostgresStore) CreateScrapeRun(ctx context.Context, run model.ScrapeRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scrape_runs (id, type, status, result_count, triggered_by, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Type, string(run.Status), run.ResultCount, run.TriggeredBy, run.ErrorMessage,
	)
	return eris.Wrap(err, "postgres: insert scrape run")
}

func (s *PostgresStore) CompleteScrapeRun(ctx context.Context, id string, status model.RunStatus, resultCount int, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scrape_runs SET status = $1, result_count = $2, error_message = $3 WHERE id = $4`,
		string(status), resultCount, errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete scrape run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetScrapeRun(ctx context.Context, userID, id string) (*model.ScrapeRun, error) {
	var run model.ScrapeRun
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, type, status, result_count, triggered_by, error_message, created_at
		 FROM scrape_runs WHERE id = $1 AND triggered_by = $2`,
		id, userID,
	).Scan(&run.ID, &run.Type, &status, &run.ResultCount, &run.TriggeredBy, &run.ErrorMessage, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get scrape run %s", id)
	}
	run.Status = model.RunStatus(status)
	return &run, nil
}

// scanLead reads one lead row in leadColumns order.
func scanLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var channel, emailStatus string
	var categories []byte

	err := row.Scan(
		&l.ID, &l.UserID, &l.FullName, &l.JobTitle, &l.Company, &l.Email,
		&l.Phone, &l.WebsiteURL, &l.Address, &l.City, &l.Country,
		&l.PostalCode, &l.Region, &channel, &l.SourceURL, &l.Lat, &l.Lng,
		&l.RatingAvg, &l.RatingCount, &categories, &l.Score,
		&l.IsOutreachReady, &emailStatus, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Channel = model.Channel(channel)
	l.EmailStatus = model.EmailStatus(emailStatus)
	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &l.Categories); err != nil {
			return nil, eris.Wrap(err, "unmarshal categories")
		}
	}
	return &l, nil
}
