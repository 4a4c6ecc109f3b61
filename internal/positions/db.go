package positions

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"polydelta/internal/fees"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a position id does not exist.
var ErrNotFound = errors.New("position not found")

// Position is a tracked Polymarket buy.
type Position struct {
	ID         string         `json:"id"`
	Sport      string         `json:"sport"`
	EventID    string         `json:"event_id"`
	Outcome    string         `json:"outcome"` // team name or match side
	TokenID    string         `json:"token_id,omitempty"`
	EntryPrice float64        `json:"entry_price"`
	Investment float64        `json:"investment"`
	OrderType  fees.OrderType `json:"order_type"`
	Gas        float64        `json:"gas"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Fee returns the cost model the position was opened under.
func (p Position) Fee(r fees.Rates) fees.Model {
	return r.ForOrder(p.OrderType, p.Gas)
}

// Validate checks the fields needed to value the position.
func (p Position) Validate() error {
	if p.EventID == "" || p.Outcome == "" {
		return errors.New("event_id and outcome are required")
	}
	if !(p.EntryPrice > 0) || p.EntryPrice > 1 {
		return fmt.Errorf("entry_price must be in (0, 1], got %v", p.EntryPrice)
	}
	if !(p.Investment > p.Gas) {
		return fmt.Errorf("investment must exceed gas (%v), got %v", p.Gas, p.Investment)
	}
	return nil
}

// DB handles position storage
type DB struct {
	db *sql.DB
}

// NewDB creates a new position database
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// in-memory databases are per connection
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		sport TEXT NOT NULL,
		event_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		token_id TEXT NOT NULL DEFAULT '',
		entry_price REAL NOT NULL,
		investment REAL NOT NULL,
		order_type TEXT NOT NULL,
		gas REAL NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_positions_event ON positions(event_id);
	CREATE INDEX IF NOT EXISTS idx_positions_sport ON positions(sport);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// AddPosition stores pos under a new id and returns the stored copy.
func (d *DB) AddPosition(pos Position) (Position, error) {
	pos.ID = uuid.NewString()
	if pos.CreatedAt.IsZero() {
		pos.CreatedAt = time.Now()
	}
	pos.CreatedAt = pos.CreatedAt.UTC()
	if pos.OrderType == "" {
		pos.OrderType = fees.OrderTaker
	}

	_, err := d.db.Exec(`
		INSERT INTO positions (id, sport, event_id, outcome, token_id, entry_price, investment, order_type, gas, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pos.ID, pos.Sport, pos.EventID, pos.Outcome, pos.TokenID, pos.EntryPrice, pos.Investment,
		string(pos.OrderType), pos.Gas, pos.CreatedAt)
	if err != nil {
		return Position{}, fmt.Errorf("inserting position: %w", err)
	}

	return pos, nil
}

const selectPositions = `
	SELECT id, sport, event_id, outcome, token_id, entry_price, investment, order_type, gas, created_at
	FROM positions`

type scanner interface {
	Scan(dest ...any) error
}

func scanPosition(s scanner) (Position, error) {
	var pos Position
	var orderType string
	err := s.Scan(&pos.ID, &pos.Sport, &pos.EventID, &pos.Outcome, &pos.TokenID,
		&pos.EntryPrice, &pos.Investment, &orderType, &pos.Gas, &pos.CreatedAt)
	pos.OrderType = fees.OrderType(orderType)
	return pos, err
}

// GetPosition retrieves a position by ID
func (d *DB) GetPosition(id string) (*Position, error) {
	row := d.db.QueryRow(selectPositions+" WHERE id = ?", id)

	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning position: %w", err)
	}

	return &pos, nil
}

// GetAllPositions retrieves all positions, newest first
func (d *DB) GetAllPositions() ([]Position, error) {
	return d.query(selectPositions + " ORDER BY created_at DESC")
}

// GetPositionsBySport retrieves positions for one sport
func (d *DB) GetPositionsBySport(sport string) ([]Position, error) {
	return d.query(selectPositions+" WHERE sport = ? ORDER BY created_at DESC", sport)
}

func (d *DB) query(q string, args ...any) ([]Position, error) {
	rows, err := d.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning position row: %w", err)
		}
		positions = append(positions, pos)
	}

	return positions, rows.Err()
}

// DeletePosition removes a position
func (d *DB) DeletePosition(id string) error {
	res, err := d.db.Exec("DELETE FROM positions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting position: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
