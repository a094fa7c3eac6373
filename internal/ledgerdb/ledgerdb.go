// Package ledgerdb keeps a local DuckDB archive of fetched ledger entries so
// the history panel can render before the first chain round-trip completes.
// The chain remains the source of truth; the archive is upsert-only.
package ledgerdb

import (
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/chitpool/chitpool/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	tx_hash   VARCHAR NOT NULL,
	log_index UINTEGER NOT NULL,
	kind      VARCHAR NOT NULL,
	actor     VARCHAR,
	amount    VARCHAR,
	detail    VARCHAR,
	block     UBIGINT NOT NULL,
	PRIMARY KEY (tx_hash, log_index)
)`

// Archive is a DuckDB-backed event archive.
type Archive struct {
	db *sql.DB
}

// Open creates or opens the archive file, creating parent directories as
// needed.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	// DuckDB works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Upsert stores entries, replacing any already archived under the same
// transaction hash and log index.
func (a *Archive) Upsert(entries []models.LedgerEntry) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO ledger_entries
		(tx_hash, log_index, kind, actor, amount, detail, block)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var amount sql.NullString
		if e.Amount != nil {
			amount = sql.NullString{String: e.Amount.String(), Valid: true}
		}
		if _, err := stmt.Exec(e.TxHash, e.LogIndex, string(e.Kind), e.Actor, amount, e.Detail, e.Block); err != nil {
			return fmt.Errorf("upsert %s: %w", e.TxHash, err)
		}
	}
	return tx.Commit()
}

// List returns all archived entries, most recent first.
func (a *Archive) List() ([]models.LedgerEntry, error) {
	rows, err := a.db.Query(`SELECT tx_hash, log_index, kind, actor, amount, detail, block
		FROM ledger_entries ORDER BY block DESC, log_index DESC`)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var kind string
		var actor, amount, detail sql.NullString
		if err := rows.Scan(&e.TxHash, &e.LogIndex, &kind, &actor, &amount, &detail, &e.Block); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		e.Kind = models.EventKind(kind)
		e.Actor = actor.String
		e.Detail = detail.String
		if amount.Valid {
			if v, ok := new(big.Int).SetString(amount.String, 10); ok {
				e.Amount = v
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
