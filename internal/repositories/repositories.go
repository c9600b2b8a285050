package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// NextSequence increments and returns the counter in table's sequence table.
func NextSequence(db *sql.DB, table string) (int, error) {
	var sequence int
	err := withTx(db, func(tx *sql.Tx) error {
		row := tx.QueryRow(fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table))
		if err := row.Scan(&sequence); err != nil {
			return fmt.Errorf("failed to advance %s sequence: %w", table, err)
		}
		return nil
	})
	return sequence, err
}

func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// softDelete stamps deleted_at on a live row, returning notFound when there is none.
func softDelete(db *sql.DB, table, id string, notFound error) error {
	res, err := db.Exec(fmt.Sprintf("UPDATE %s SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", table), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}
