package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/smc1992/leadgen-ai/internal/dedup"
	"github.com/smc1992/leadgen-ai/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local and dev
// deployments without a postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                TEXT PRIMARY KEY,
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
	lat               REAL,
	lng               REAL,
	rating_avg        REAL,
	rating_count      INTEGER,
	categories        TEXT,
	score             INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0 AND score <= 100),
	is_outreach_ready INTEGER NOT NULL DEFAULT 0,
	email_status      TEXT NOT NULL DEFAULT 'unknown',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_user_created ON leads(user_id, created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_user_website
	ON leads(user_id, website_norm) WHERE website_norm <> '';

CREATE TABLE IF NOT EXISTS lead_lists (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

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
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteLeadColumns = `id, user_id, full_name, job_title, company, email, phone,
	website_url, address, city, country, postal_code, region, channel,
	source_url, lat, lng, rating_avg, rating_count, categories,
	score, is_outreach_ready, email_status, created_at, updated_at`

func (s *SQLiteStore) InsertLeads(ctx context.Context, userID string, leads []model.Lead) ([]model.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin insert")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	inserted := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		var categories any
		if len(l.Categories) > 0 {
			data, _ := json.Marshal(l.Categories)
			categories = string(data)
		}

		l.ID = uuid.New().String()
		l.UserID = userID
		l.CreatedAt = now
		l.UpdatedAt = now

		res, err := tx.ExecContext(ctx,
			`INSERT INTO leads (
				id, user_id, full_name, job_title, company, email, phone,
				website_url, website_norm, address, city, country, postal_code,
				region, channel, source_url, lat, lng, rating_avg, rating_count,
				categories, score, is_outreach_ready, email_status, created_at, updated_at
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT (user_id, website_norm) WHERE website_norm <> '' DO NOTHING`,
			l.ID, userID, l.FullName, l.JobTitle, l.Company, l.Email, l.Phone,
			l.WebsiteURL, dedup.WebsiteKey(l.WebsiteURL, l.SourceURL),
			l.Address, l.City, l.Country, l.PostalCode, l.Region,
			string(l.Channel), l.SourceURL, l.Lat, l.Lng, l.RatingAvg,
			l.RatingCount, categories, l.Score, boolToInt(l.IsOutreachReady),
			string(l.EmailStatus), now, now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: insert lead")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// Conflict skip: the lead already exists for this user.
			continue
		}
		inserted = append(inserted, l)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit insert")
	}
	return inserted, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, userID string, filter LeadFilter) (model.LeadPage, error) {
	filter = filter.Normalize()

	where := []string{"user_id = ?"}
	args := []any{userID}

	if filter.Search != "" {
		where = append(where, "(full_name LIKE ? OR company LIKE ? OR email LIKE ?)")
		term := "%" + filter.Search + "%"
		args = append(args, term, term, term)
	}
	if filter.Region != "" {
		where = append(where, "region = ?")
		args = append(args, filter.Region)
	}
	if filter.EmailStatus != "" {
		where = append(where, "email_status = ?")
		args = append(args, string(filter.EmailStatus))
	}
	if filter.ScoreMin != nil {
		where = append(where, "score >= ?")
		args = append(args, *filter.ScoreMin)
	}
	if filter.ScoreMax != nil {
		where = append(where, "score <= ?")
		args = append(args, *filter.ScoreMax)
	}
	if filter.OutreachReady != nil {
		where = append(where, "is_outreach_ready = ?")
		args = append(args, boolToInt(*filter.OutreachReady))
	}
	if filter.ListID != "" {
		where = append(where, "id IN (SELECT lead_id FROM lead_list_items WHERE list_id = ?)")
		args = append(args, filter.ListID)
	}

	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM leads WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return model.LeadPage{}, eris.Wrap(err, "sqlite: count leads")
	}

	pageSQL := fmt.Sprintf(
		"SELECT %s FROM leads WHERE %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		sqliteLeadColumns, whereSQL,
	)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := s.db.QueryContext(ctx, pageSQL, args...)
	if err != nil {
		return model.LeadPage{}, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	leads := []model.Lead{}
	for rows.Next() {
		lead, err := scanSQLiteLead(rows)
		if err != nil {
			return model.LeadPage{}, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return model.LeadPage{}, eris.Wrap(err, "sqlite: list leads rows")
	}

	return model.LeadPage{
		Leads:      leads,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, userID, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM leads WHERE id = ? AND user_id = ?", sqliteLeadColumns),
		id, userID,
	)
	lead, err := scanSQLiteLead(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get lead %s", id)
	}
	return lead, nil
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, userID, id string, upd model.LeadUpdate) (*model.Lead, error) {
	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	add := func(col string, val any) {
		set = append(set, col+" = ?")
		args = append(args, val)
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

	args = append(args, id, userID)
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE leads SET %s WHERE id = ? AND user_id = ?", strings.Join(set, ", ")),
		args...,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update lead %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetLead(ctx, userID, id)
}

func (s *SQLiteStore) DeleteLead(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM leads WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete lead %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) LeadsByWebsites(ctx context.Context, userID string, websites []string) (map[string]bool, error) {
	if len(websites) == 0 {
		return map[string]bool{}, nil
	}
	query := fmt.Sprintf(
		"SELECT website_norm FROM leads WHERE user_id = ? AND website_norm IN (%s)",
		placeholders(len(websites)),
	)
	args := []any{userID}
	for _, w := range websites {
		args = append(args, w)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: leads by websites")
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan website")
		}
		out[site] = true
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LeadsByCompanies(ctx context.Context, userID string, companies []string) (map[string]bool, error) {
	if len(companies) == 0 {
		return map[string]bool{}, nil
	}
	query := fmt.Sprintf(
		"SELECT company, city FROM leads WHERE user_id = ? AND lower(company) IN (%s)",
		placeholders(len(companies)),
	)
	args := []any{userID}
	for _, c := range companies {
		args = append(args, c)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: leads by companies")
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var company, city string
		if err := rows.Scan(&company, &city); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		if key := dedup.CompanyCityKey(company, city); key != "" {
			out[key] = true
		}
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateList(ctx context.Context, userID, name string) (*model.LeadList, error) {
	list := model.LeadList{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lead_lists (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		list.ID, list.UserID, list.Name, list.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create list")
	}
	return &list, nil
}

func (s *SQLiteStore) GetList(ctx context.Context, userID, listID string) (*model.LeadList, error) {
	var list model.LeadList
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM lead_lists WHERE id = ? AND user_id = ?`,
		listID, userID,
	).Scan(&list.ID, &list.UserID, &list.Name, &list.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get list %s", listID)
	}
	return &list, nil
}

func (s *SQLiteStore) AddListItems(ctx context.Context, listID string, leadIDs []string) error {
	if len(leadIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin list items")
	}
	defer tx.Rollback()

	for _, leadID := range leadIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO lead_list_items (list_id, lead_id) VALUES (?, ?)`,
			listID, leadID,
		); err != nil {
			return eris.Wrap(err, "sqlite: add list item")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit list items")
}

func (s *SQLiteStore) CreateScrapeRun(ctx context.Context, run model.ScrapeRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_runs (id, type, status, result_count, triggered_by, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Type, string(run.Status), run.ResultCount, run.TriggeredBy,
		run.ErrorMessage, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: insert scrape run")
}

func (s *SQLiteStore) CompleteScrapeRun(ctx context.Context, id string, status model.RunStatus, resultCount int, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scrape_runs SET status = ?, result_count = ?, error_message = ? WHERE id = ?`,
		string(status), resultCount, errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete scrape run %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetScrapeRun(ctx context.Context, userID, id string) (*model.ScrapeRun, error) {
	var run model.ScrapeRun
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, type, status, result_count, triggered_by, error_message, created_at
		 FROM scrape_runs WHERE id = ? AND triggered_by = ?`,
		id, userID,
	).Scan(&run.ID, &run.Type, &status, &run.ResultCount, &run.TriggeredBy, &run.ErrorMessage, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get scrape run %s", id)
	}
	run.Status = model.RunStatus(status)
	return &run, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteLead(row scanner) (*model.Lead, error) {
	var l model.Lead
	var channel, emailStatus string
	var categories sql.NullString
	var ready int

	err := row.Scan(
		&l.ID, &l.UserID, &l.FullName, &l.JobTitle, &l.Company, &l.Email,
		&l.Phone, &l.WebsiteURL, &l.Address, &l.City, &l.Country,
		&l.PostalCode, &l.Region, &channel, &l.SourceURL, &l.Lat, &l.Lng,
		&l.RatingAvg, &l.RatingCount, &categories, &l.Score,
		&ready, &emailStatus, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Channel = model.Channel(channel)
	l.EmailStatus = model.EmailStatus(emailStatus)
	l.IsOutreachReady = ready != 0
	if categories.Valid && categories.String != "" {
		if err := json.Unmarshal([]byte(categories.String), &l.Categories); err != nil {
			return nil, eris.Wrap(err, "unmarshal categories")
		}
	}
	return &l, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
