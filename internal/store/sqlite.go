// Package store persists the wallet between sessions. Only the balance and
// the player's last table settings survive a restart; rounds themselves are
// never recorded.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Wallet is the single persisted record.
type Wallet struct {
	Balance     decimal.Decimal
	Stake       decimal.Decimal
	HazardCount int
	UpdatedAt   time.Time
}

// SQLiteDB stores the wallet in a local SQLite file.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (or creates) the wallet database at path.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteDB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS wallet (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			balance TEXT NOT NULL DEFAULT '0',
			stake TEXT NOT NULL DEFAULT '0',
			hazard_count INTEGER NOT NULL DEFAULT 3,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`INSERT OR IGNORE INTO wallet (id) VALUES (1)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Load reads the wallet. A freshly migrated database yields the zero wallet.
func (s *SQLiteDB) Load() (Wallet, error) {
	var (
		w       Wallet
		balance string
		stake   string
	)
	row := s.db.QueryRow(`SELECT balance, stake, hazard_count, updated_at FROM wallet WHERE id = 1`)
	if err := row.Scan(&balance, &stake, &w.HazardCount, &w.UpdatedAt); err != nil {
		return Wallet{}, fmt.Errorf("failed to load wallet: %w", err)
	}

	var err error
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return Wallet{}, fmt.Errorf("corrupt balance %q: %w", balance, err)
	}
	if w.Stake, err = decimal.NewFromString(stake); err != nil {
		return Wallet{}, fmt.Errorf("corrupt stake %q: %w", stake, err)
	}
	return w, nil
}

// Save writes the wallet. Amounts are stored as decimal strings so no
// precision is lost round-tripping.
func (s *SQLiteDB) Save(w Wallet) error {
	_, err := s.db.Exec(
		`UPDATE wallet SET balance = ?, stake = ?, hazard_count = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`,
		w.Balance.String(), w.Stake.String(), w.HazardCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}
