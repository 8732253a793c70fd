// Package sqlite is the single-file durable backend: same ports as the
// Firestore store, no external service.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeweledassist/backend/internal/domain"
)

type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		customer TEXT PRIMARY KEY,
		step TEXT NOT NULL,
		mode TEXT NOT NULL,
		metal TEXT,
		item_type TEXT,
		grams REAL,
		budget TEXT,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS customers (
		customer TEXT PRIMARY KEY,
		last_query TEXT,
		last_contact INTEGER,
		intent TEXT,
		metal TEXT,
		grams REAL,
		budget TEXT,
		quoted_price INTEGER,
		price_source TEXT,
		requires_owner_action INTEGER NOT NULL DEFAULT 0,
		bot_enabled INTEGER NOT NULL DEFAULT 1,
		handoff_at INTEGER,
		handoff_reason TEXT,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_customers_last_contact ON customers(last_contact);
	CREATE TABLE IF NOT EXISTS approvals (
		id TEXT PRIMARY KEY,
		customer TEXT NOT NULL,
		type TEXT NOT NULL,
		metal TEXT,
		grams REAL,
		budget TEXT,
		estimated_cost INTEGER,
		status TEXT NOT NULL,
		final_price INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_approvals_status ON approvals(status, created_at);
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		text TEXT NOT NULL,
		ts INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
	CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient);
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		store_location TEXT,
		map_link TEXT,
		owner_number TEXT,
		welcome_media_url TEXT,
		approval_threshold INTEGER,
		manual_gold REAL,
		manual_silver REAL,
		manual_platinum REAL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────
// SessionStore
// ─────────────────────────────────────────

func (s *Store) GetSession(ctx context.Context, id domain.CustomerID) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT step, mode, metal, item_type, grams, budget, updated_at
		FROM sessions WHERE customer = ?`, string(id))

	var sess domain.Session
	var metal, itemType, budget sql.NullString
	var grams sql.NullFloat64
	var updatedAt int64

	err := row.Scan(&sess.Step, &sess.Mode, &metal, &itemType, &grams, &budget, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.Customer = id
	sess.BuyFlow = domain.BuyFlow{
		Metal:    domain.Metal(metal.String),
		ItemType: itemType.String,
		Grams:    grams.Float64,
		Budget:   budget.String,
	}
	sess.UpdatedAt = time.Unix(updatedAt, 0)
	return &sess, nil
}

func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (customer, step, mode, metal, item_type, grams, budget, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer) DO UPDATE SET
			step = excluded.step,
			mode = excluded.mode,
			metal = excluded.metal,
			item_type = excluded.item_type,
			grams = excluded.grams,
			budget = excluded.budget,
			updated_at = excluded.updated_at`,
		string(session.Customer), string(session.Step), string(session.Mode),
		string(session.BuyFlow.Metal), session.BuyFlow.ItemType,
		session.BuyFlow.Grams, session.BuyFlow.Budget,
		session.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// CustomerStore
// ─────────────────────────────────────────

func (s *Store) GetCustomer(ctx context.Context, id domain.CustomerID) (*domain.CustomerRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_query, last_contact, intent, metal, grams, budget,
		       quoted_price, price_source, requires_owner_action, bot_enabled,
		       handoff_at, handoff_reason, updated_at
		FROM customers WHERE customer = ?`, string(id))

	rec, err := scanCustomer(row, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan customer row: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner, id domain.CustomerID) (*domain.CustomerRecord, error) {
	var rec domain.CustomerRecord
	var lastQuery, intent, metal, budget, priceSource, handoffReason sql.NullString
	var grams sql.NullFloat64
	var lastContact, handoffAt sql.NullInt64
	var quotedPrice sql.NullInt64
	var updatedAt int64

	err := row.Scan(&lastQuery, &lastContact, &intent, &metal, &grams, &budget,
		&quotedPrice, &priceSource, &rec.RequiresOwnerAction, &rec.BotEnabled,
		&handoffAt, &handoffReason, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.Customer = id
	rec.LastQuery = lastQuery.String
	if lastContact.Valid {
		rec.LastContact = time.Unix(lastContact.Int64, 0)
	}
	rec.Intent = intent.String
	rec.Metal = domain.Metal(metal.String)
	rec.Grams = grams.Float64
	rec.Budget = budget.String
	rec.QuotedPrice = quotedPrice.Int64
	rec.PriceSource = domain.RateOrigin(priceSource.String)
	if handoffAt.Valid {
		t := time.Unix(handoffAt.Int64, 0)
		rec.HandoffAt = &t
	}
	rec.HandoffReason = handoffReason.String
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

func (s *Store) UpsertCustomer(ctx context.Context, rec *domain.CustomerRecord) error {
	var handoffAt any
	if rec.HandoffAt != nil {
		handoffAt = rec.HandoffAt.Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (customer, last_query, last_contact, intent, metal,
			grams, budget, quoted_price, price_source, requires_owner_action,
			bot_enabled, handoff_at, handoff_reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer) DO UPDATE SET
			last_query = excluded.last_query,
			last_contact = excluded.last_contact,
			intent = excluded.intent,
			metal = excluded.metal,
			grams = excluded.grams,
			budget = excluded.budget,
			quoted_price = excluded.quoted_price,
			price_source = excluded.price_source,
			requires_owner_action = excluded.requires_owner_action,
			bot_enabled = excluded.bot_enabled,
			handoff_at = excluded.handoff_at,
			handoff_reason = excluded.handoff_reason,
			updated_at = excluded.updated_at`,
		string(rec.Customer), rec.LastQuery, rec.LastContact.Unix(), rec.Intent,
		string(rec.Metal), rec.Grams, rec.Budget, rec.QuotedPrice,
		string(rec.PriceSource), rec.RequiresOwnerAction, rec.BotEnabled,
		handoffAt, rec.HandoffReason, rec.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

func (s *Store) ListRecentCustomers(ctx context.Context, limit int) ([]*domain.CustomerRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer, last_query, last_contact, intent, metal, grams, budget,
		       quoted_price, price_source, requires_owner_action, bot_enabled,
		       handoff_at, handoff_reason, updated_at
		FROM customers ORDER BY last_contact DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []*domain.CustomerRecord
	for rows.Next() {
		var id string
		rec, err := scanCustomerWithID(rows, &id)
		if err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		rec.Customer = domain.CustomerID(id)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanCustomerWithID(rows *sql.Rows, id *string) (*domain.CustomerRecord, error) {
	var rec domain.CustomerRecord
	var lastQuery, intent, metal, budget, priceSource, handoffReason sql.NullString
	var grams sql.NullFloat64
	var lastContact, handoffAt sql.NullInt64
	var quotedPrice sql.NullInt64
	var updatedAt int64

	err := rows.Scan(id, &lastQuery, &lastContact, &intent, &metal, &grams, &budget,
		&quotedPrice, &priceSource, &rec.RequiresOwnerAction, &rec.BotEnabled,
		&handoffAt, &handoffReason, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.LastQuery = lastQuery.String
	if lastContact.Valid {
		rec.LastContact = time.Unix(lastContact.Int64, 0)
	}
	rec.Intent = intent.String
	rec.Metal = domain.Metal(metal.String)
	rec.Grams = grams.Float64
	rec.Budget = budget.String
	rec.QuotedPrice = quotedPrice.Int64
	rec.PriceSource = domain.RateOrigin(priceSource.String)
	if handoffAt.Valid {
		t := time.Unix(handoffAt.Int64, 0)
		rec.HandoffAt = &t
	}
	rec.HandoffReason = handoffReason.String
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

// ─────────────────────────────────────────
// ApprovalStore
// ─────────────────────────────────────────

func (s *Store) CreateApproval(ctx context.Context, req *domain.ApprovalRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approvals (id, customer, type, metal, grams, budget,
			estimated_cost, status, final_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(req.ID), string(req.Customer), string(req.Type),
		string(req.Metal), req.Grams, req.Budget, req.EstimatedCost,
		string(req.Status), req.FinalPrice,
		req.CreatedAt.Unix(), req.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("create approval: %w", err)
	}
	return nil
}

func (s *Store) GetApproval(ctx context.Context, id domain.RequestID) (*domain.ApprovalRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT customer, type, metal, grams, budget, estimated_cost, status,
		       final_price, created_at, updated_at
		FROM approvals WHERE id = ?`, string(id))

	var req domain.ApprovalRequest
	var metal, budget sql.NullString
	var grams sql.NullFloat64
	var estimatedCost, finalPrice sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&req.Customer, &req.Type, &metal, &grams, &budget,
		&estimatedCost, &req.Status, &finalPrice, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan approval row: %w", err)
	}

	req.ID = id
	req.Metal = domain.Metal(metal.String)
	req.Grams = grams.Float64
	req.Budget = budget.String
	req.EstimatedCost = estimatedCost.Int64
	req.FinalPrice = finalPrice.Int64
	req.CreatedAt = time.Unix(createdAt, 0)
	req.UpdatedAt = time.Unix(updatedAt, 0)
	return &req, nil
}

func (s *Store) SetApproved(ctx context.Context, id domain.RequestID, finalPrice int64, at domain.Timestamp) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE approvals SET status = ?, final_price = ?, updated_at = ?
		WHERE id = ?`,
		string(domain.StatusApproved), finalPrice, at.Unix(), string(id))
	if err != nil {
		return fmt.Errorf("approve request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve request: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("approval request not found: %s", id)
	}
	return nil
}

func (s *Store) ListByStatus(ctx context.Context, status domain.ApprovalStatus, limit int) ([]*domain.ApprovalRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer, type, metal, grams, budget, estimated_cost,
		       status, final_price, created_at, updated_at
		FROM approvals WHERE status = ?
		ORDER BY created_at DESC LIMIT ?`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []*domain.ApprovalRequest
	for rows.Next() {
		var req domain.ApprovalRequest
		var metal, budget sql.NullString
		var grams sql.NullFloat64
		var estimatedCost, finalPrice sql.NullInt64
		var createdAt, updatedAt int64

		err := rows.Scan(&req.ID, &req.Customer, &req.Type, &metal, &grams,
			&budget, &estimatedCost, &req.Status, &finalPrice, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan approval row: %w", err)
		}
		req.Metal = domain.Metal(metal.String)
		req.Grams = grams.Float64
		req.Budget = budget.String
		req.EstimatedCost = estimatedCost.Int64
		req.FinalPrice = finalPrice.Int64
		req.CreatedAt = time.Unix(createdAt, 0)
		req.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, &req)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────
// MessageStore
// ─────────────────────────────────────────

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (sender, recipient, text, ts) VALUES (?, ?, ?, ?)`,
		msg.From, msg.To, msg.Text, msg.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *Store) HistoryFor(ctx context.Context, id domain.CustomerID, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sender, recipient, text, ts FROM messages
		WHERE sender = ? OR recipient = ?
		ORDER BY ts ASC, id ASC LIMIT ?`, string(id), string(id), limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var msg domain.Message
		var ts int64
		if err := rows.Scan(&msg.From, &msg.To, &msg.Text, &ts); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Timestamp = time.Unix(ts, 0)
		out = append(out, &msg)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────
// SettingsStore
// ─────────────────────────────────────────

func (s *Store) GetSettings(ctx context.Context) (*domain.StoreSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT store_location, map_link, owner_number, welcome_media_url,
		       approval_threshold, manual_gold, manual_silver, manual_platinum,
		       updated_at
		FROM settings WHERE id = 1`)

	var cfg domain.StoreSettings
	var location, mapLink, owner, mediaURL sql.NullString
	var threshold sql.NullInt64
	var gold, silver, platinum sql.NullFloat64
	var updatedAt int64

	err := row.Scan(&location, &mapLink, &owner, &mediaURL, &threshold,
		&gold, &silver, &platinum, &updatedAt)
	if err == sql.ErrNoRows {
		return &domain.StoreSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan settings row: %w", err)
	}

	cfg.StoreLocation = location.String
	cfg.MapLink = mapLink.String
	cfg.OwnerNumber = owner.String
	cfg.WelcomeMediaURL = mediaURL.String
	cfg.ApprovalThreshold = threshold.Int64
	cfg.ManualRates = domain.ManualRates{
		Gold: gold.Float64, Silver: silver.Float64, Platinum: platinum.Float64,
	}
	cfg.UpdatedAt = time.Unix(updatedAt, 0)
	return &cfg, nil
}

func (s *Store) UpdateSettings(ctx context.Context, cfg *domain.StoreSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, store_location, map_link, owner_number,
			welcome_media_url, approval_threshold, manual_gold, manual_silver,
			manual_platinum, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			store_location = excluded.store_location,
			map_link = excluded.map_link,
			owner_number = excluded.owner_number,
			welcome_media_url = excluded.welcome_media_url,
			approval_threshold = excluded.approval_threshold,
			manual_gold = excluded.manual_gold,
			manual_silver = excluded.manual_silver,
			manual_platinum = excluded.manual_platinum,
			updated_at = excluded.updated_at`,
		cfg.StoreLocation, cfg.MapLink, cfg.OwnerNumber, cfg.WelcomeMediaURL,
		cfg.ApprovalThreshold, cfg.ManualRates.Gold, cfg.ManualRates.Silver,
		cfg.ManualRates.Platinum, cfg.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}
