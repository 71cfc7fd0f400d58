package database

import (
	"context"
	"time"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

// Write stores every variable of the batch in one transaction.
func (db *Database) Write(ctx context.Context, batch model.VariableBatch) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, v := range batch.Variables {
		ts := v.UpdatedAt
		if ts.IsZero() {
			ts = batch.Timestamp
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO variable_history (time_stamp, device_id, name, value, unit)
			VALUES ($1, $2, $3, $4, $5)
		`, ts, batch.DeviceID, v.Name, v.Value, v.Unit); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (db *Database) RegisterDevice(ctx context.Context, device *model.Device) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO thermostat (id, name, manufacturer, software_version)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			manufacturer = EXCLUDED.manufacturer,
			software_version = EXCLUDED.software_version,
			updated_at = now();`, device.ID, device.Name, device.Manufacturer, device.SoftwareVersion)
	return err
}

func (db *Database) ReportStatus(ctx context.Context, status model.PluginStatus) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO status_history (time_stamp, state, message)
		VALUES ($1, $2, $3)`, time.Now(), status.State.String(), status.Message)
	return err
}
