package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

// GetHistory returns the samples of one variable between from and to, newest
// first. Without a range the last two days are returned.
func (db *Database) GetHistory(ctx context.Context, deviceID, name string, from, to *time.Time) (model.Properties, error) {
	if from == nil || to == nil {
		now := time.Now()
		start := now.AddDate(0, 0, -2)
		from, to = &start, &now
	}
	const query = `
	SELECT id, time_stamp, device_id, name, value, unit
	FROM variable_history
	WHERE device_id = $1 AND name = $2 AND time_stamp BETWEEN $3 AND $4
	ORDER BY time_stamp DESC;
	`

	rows, err := db.pool.Query(ctx, query, deviceID, name, *from, *to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProperties(rows)
}

// GetLatest returns the newest sample of every variable of a device.
func (db *Database) GetLatest(ctx context.Context, deviceID string) (model.Properties, error) {
	const query = `
	SELECT DISTINCT ON (name) id, time_stamp, device_id, name, value, unit
	FROM variable_history
	WHERE device_id = $1
	ORDER BY name, time_stamp DESC;
	`

	rows, err := db.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProperties(rows)
}

func scanProperties(rows pgx.Rows) (model.Properties, error) {
	var properties model.Properties
	for rows.Next() {
		var property model.Property
		if err := rows.Scan(&property.Id, &property.TimeStamp, &property.DeviceID, &property.Name, &property.Value, &property.Unit); err != nil {
			return nil, err
		}
		properties = append(properties, property)
	}

	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return properties, nil
		}
		return nil, err
	}

	return properties, nil
}
