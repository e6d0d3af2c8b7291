// Package history keeps the most recent bundles so a transaction can be
// reopened later.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
)

// MaxItems is the number of bundles kept; older ones are dropped on save
const MaxItems = 50

// ErrNotFound is returned for unknown item ids
var ErrNotFound = errors.New("history item not found")

// Summary is the at-a-glance description shown in history listings
type Summary struct {
	SellerName   string `json:"vendedorNombre,omitempty"`
	SellerNIF    string `json:"vendedorNif,omitempty"`
	BuyerName    string `json:"compradorNombre,omitempty"`
	BuyerNIF     string `json:"compradorNif,omitempty"`
	VehicleMake  string `json:"vehiculoMarca,omitempty"`
	VehicleModel string `json:"vehiculoModelo,omitempty"`
	VehiclePlate string `json:"vehiculoMatricula,omitempty"`
}

// Item is one saved bundle
type Item struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"`
	Date      string         `json:"date"`
	Data      records.Bundle `json:"data"`
	Summary   Summary        `json:"summary"`
}

// Summarize builds the summary of a bundle
func Summarize(b records.Bundle) Summary {
	return Summary{
		SellerName:   b.Seller.FullName,
		SellerNIF:    b.Seller.NationalID,
		BuyerName:    b.Buyer.FullName,
		BuyerNIF:     b.Buyer.NationalID,
		VehicleMake:  b.Vehicle.Make,
		VehicleModel: b.Vehicle.Model,
		VehiclePlate: b.Vehicle.Plate,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS history (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL, -- unix milliseconds
	data TEXT NOT NULL,          -- bundle JSON
	seller_name TEXT NOT NULL DEFAULT '',
	seller_nif TEXT NOT NULL DEFAULT '',
	buyer_name TEXT NOT NULL DEFAULT '',
	buyer_nif TEXT NOT NULL DEFAULT '',
	vehicle_make TEXT NOT NULL DEFAULT '',
	vehicle_model TEXT NOT NULL DEFAULT '',
	vehicle_plate TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
`

// Store persists history items in SQLite
type Store struct {
	db    *sql.DB
	now   func() time.Time
	limit int
}

// Open creates or opens the history database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// one writer keeps save-and-prune serialized
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	st, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

// New wraps an open database, creating the schema when needed
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &Store{db: db, now: time.Now, limit: MaxItems}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores b as the newest item and drops items beyond MaxItems
func (s *Store) Save(ctx context.Context, b records.Bundle) (Item, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return Item{}, fmt.Errorf("failed to encode bundle: %w", err)
	}

	now := s.now()
	item := Item{
		ID:        uuid.NewString(),
		Timestamp: now.UnixMilli(),
		Date:      formatDate(now),
		Data:      b,
		Summary:   Summarize(b),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Item{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sum := item.Summary
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history (id, created_at, data, seller_name, seller_nif, buyer_name, buyer_nif,
			vehicle_make, vehicle_model, vehicle_plate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Timestamp, string(data), sum.SellerName, sum.SellerNIF, sum.BuyerName, sum.BuyerNIF,
		sum.VehicleMake, sum.VehicleModel, sum.VehiclePlate,
	); err != nil {
		return Item{}, fmt.Errorf("failed to insert history item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM history
		WHERE seq NOT IN (SELECT seq FROM history ORDER BY seq DESC LIMIT ?)`, s.limit,
	); err != nil {
		return Item{}, fmt.Errorf("failed to prune history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Item{}, fmt.Errorf("failed to commit history item: %w", err)
	}
	return item, nil
}

// List returns the saved items, newest first
func (s *Store) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, data FROM history ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return items, nil
}

// Get returns the item with id
func (s *Store) Get(ctx context.Context, id string) (Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, created_at, data FROM history WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return item, err
}

// Delete removes the item with id
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete history item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every item
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (Item, error) {
	var (
		item Item
		data string
	)
	if err := row.Scan(&item.ID, &item.Timestamp, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, err
		}
		return Item{}, fmt.Errorf("failed to scan history item: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &item.Data); err != nil {
		return Item{}, fmt.Errorf("failed to decode history item %s: %w", item.ID, err)
	}
	item.Date = formatDate(time.UnixMilli(item.Timestamp))
	item.Summary = Summarize(item.Data)
	return item, nil
}

// formatDate renders t the way Spanish locales print a date and time
func formatDate(t time.Time) string {
	return t.Format("2/1/2006, 15:04:05")
}
