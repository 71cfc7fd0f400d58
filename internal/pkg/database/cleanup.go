package database

import (
	"context"
	"time"
)

const retention = 8 * 24 * time.Hour

// Cleanup removes history rows older than the retention period.
func (db *Database) Cleanup(ctx context.Context) error {
	cutoff := time.Now().Add(-retention)
	if _, err := db.pool.Exec(ctx, "DELETE FROM variable_history WHERE time_stamp < $1", cutoff); err != nil {
		return err
	}
	if _, err := db.pool.Exec(ctx, "DELETE FROM status_history WHERE time_stamp < $1", cutoff); err != nil {
		return err
	}
	return nil
}
