// Package store implements the append-only local event store of
// spec.md §4.7/§6: sensor readings, irrigation events, and alerts,
// backed by modernc.org/sqlite (pure Go, no cgo — the right fit for a
// small-computer controller, adopted from
// aristath-portfolioManager/internal/database/db.go's embedded-schema
// pattern and scaled to this core's three tables).
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/irriga/controller/internal/model"
)

//go:embed schema/schema.sql
var schemaFS embed.FS

// Store wraps a *sql.DB with the short exclusive-write/shared-read
// lock discipline spec.md §4.7 asks for, layered on top of SQLite's
// own single-writer serialization.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open creates or opens the SQLite database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway; avoid SQLITE_BUSY churn

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens a throwaway in-memory database, for tests.
func OpenInMemory() (*Store, error) {
	return Open("file::memory:?cache=shared")
}

func (s *Store) migrate() error {
	schema, err := schemaFS.ReadFile("schema/schema.sql")
	if err != nil {
		return fmt.Errorf("read embedded schema: %w", err)
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SensorReadingRow is one combined sample row: the controller persists
// one row per tick carrying whichever sensor fields were read, per
// spec.md §4.7's SensorReadings stream.
type SensorReadingRow struct {
	Timestamp       time.Time
	TemperatureC    *float64
	AirHumidityPct  *float64
	SoilMoisturePct *float64
	SoilIsDry       *bool
	WaterLevelPct   *float64
	WaterDetected   *bool
	RainDetected    *bool
	DeviceID        string
}

// AppendSensorReadings writes one combined sample row.
func (s *Store) AppendSensorReadings(ctx context.Context, row SensorReadingRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deviceID := row.DeviceID
	if deviceID == "" {
		deviceID = "default"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sensor_readings
			(timestamp, temperature, air_humidity, soil_moisture, soil_is_dry, water_level, water_detected, rain_detected, device_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Timestamp, row.TemperatureC, row.AirHumidityPct, row.SoilMoisturePct, row.SoilIsDry,
		row.WaterLevelPct, row.WaterDetected, row.RainDetected, deviceID,
	)
	if err != nil {
		return fmt.Errorf("append sensor readings: %w", err)
	}
	return nil
}

// AppendIrrigationEvent writes one irrigation event row. If ev.ID is
// empty a uuid is generated.
func (s *Store) AppendIrrigationEvent(ctx context.Context, ev model.IrrigationEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO irrigation_events (event_id, timestamp, duration, reason_code, triggered_by, success)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp, ev.DurationSec, string(ev.Reason), string(ev.Trigger), ev.Outcome == model.OutcomeSuccess,
	)
	if err != nil {
		return fmt.Errorf("append irrigation event: %w", err)
	}
	return nil
}

// AppendAlert writes one alert row. If a.ID is empty a uuid is
// generated.
func (s *Store) AppendAlert(ctx context.Context, a model.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var source sql.NullString
	if a.Source != "" {
		source = sql.NullString{String: a.Source, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (alert_id, timestamp, alert_type, message, sensor_name, resolved)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Timestamp, string(a.Kind), a.Message, source, a.Resolved,
	)
	if err != nil {
		return fmt.Errorf("append alert: %w", err)
	}
	return nil
}

// TodayIrrigationSeconds sums the duration of every successful
// irrigation event on the calendar day containing now, in now's
// location.
func (s *Store) TodayIrrigationSeconds(ctx context.Context, now time.Time) (int, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(24 * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(duration) FROM irrigation_events
		WHERE success = 1 AND timestamp >= ? AND timestamp < ?`,
		start, end,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum today's irrigation seconds: %w", err)
	}
	return int(total.Int64), nil
}

// LastIrrigation returns the most recent irrigation event, if any.
func (s *Store) LastIrrigation(ctx context.Context) (*model.IrrigationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT event_id, timestamp, duration, reason_code, triggered_by, success
		FROM irrigation_events ORDER BY timestamp DESC LIMIT 1`)

	var ev model.IrrigationEvent
	var triggeredBy string
	var success bool
	var reason string
	if err := row.Scan(&ev.ID, &ev.Timestamp, &ev.DurationSec, &reason, &triggeredBy, &success); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("last irrigation: %w", err)
	}
	ev.Reason = model.ReasonCode(reason)
	ev.Trigger = model.Trigger(triggeredBy)
	if success {
		ev.Outcome = model.OutcomeSuccess
	} else {
		ev.Outcome = model.OutcomeFailure
	}
	return &ev, nil
}

// RecentSensorReadings returns up to limit rows, newest first.
func (s *Store) RecentSensorReadings(ctx context.Context, limit int) ([]SensorReadingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, temperature, air_humidity, soil_moisture, soil_is_dry, water_level, water_detected, rain_detected, device_id
		FROM sensor_readings ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sensor readings: %w", err)
	}
	defer rows.Close()

	var out []SensorReadingRow
	for rows.Next() {
		var r SensorReadingRow
		if err := rows.Scan(&r.Timestamp, &r.TemperatureC, &r.AirHumidityPct, &r.SoilMoisturePct,
			&r.SoilIsDry, &r.WaterLevelPct, &r.WaterDetected, &r.RainDetected, &r.DeviceID); err != nil {
			return nil, fmt.Errorf("scan sensor reading: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune deletes sensor_readings and irrigation_events rows older than
// retainDays, and marks older alerts resolved rather than deleting
// them, per spec.md §4.7.
func (s *Store) Prune(ctx context.Context, retainDays int, now time.Time) error {
	cutoff := now.AddDate(0, 0, -retainDays)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sensor_readings WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("prune sensor readings: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM irrigation_events WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("prune irrigation events: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE alerts SET resolved = 1 WHERE timestamp < ? AND resolved = 0`, cutoff); err != nil {
		return fmt.Errorf("resolve old alerts: %w", err)
	}
	return nil
}
