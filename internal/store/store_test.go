package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irriga/controller/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AppendAndRecentSensorReadings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	temp := 21.5
	require.NoError(t, s.AppendSensorReadings(ctx, SensorReadingRow{Timestamp: now, TemperatureC: &temp}))

	rows, err := s.RecentSensorReadings(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, temp, *rows[0].TemperatureC)
	assert.Equal(t, "default", rows[0].DeviceID)
}

func TestStore_TodayIrrigationSecondsSumsOnlySuccessfulToday(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.AppendIrrigationEvent(ctx, model.IrrigationEvent{
		Timestamp: now, DurationSec: 30, Reason: model.ReasonSoilTooDry, Trigger: model.TriggerAuto, Outcome: model.OutcomeSuccess,
	}))
	require.NoError(t, s.AppendIrrigationEvent(ctx, model.IrrigationEvent{
		Timestamp: now, DurationSec: 45, Reason: model.ReasonManual, Trigger: model.TriggerManual, Outcome: model.OutcomeFailure,
	}))
	require.NoError(t, s.AppendIrrigationEvent(ctx, model.IrrigationEvent{
		Timestamp: now.AddDate(0, 0, -1), DurationSec: 60, Reason: model.ReasonSoilTooDry, Trigger: model.TriggerAuto, Outcome: model.OutcomeSuccess,
	}))

	total, err := s.TodayIrrigationSeconds(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 30, total)
}

func TestStore_LastIrrigationReturnsMostRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.AppendIrrigationEvent(ctx, model.IrrigationEvent{
		Timestamp: now.Add(-time.Hour), DurationSec: 10, Reason: model.ReasonSoilTooDry, Trigger: model.TriggerAuto, Outcome: model.OutcomeSuccess,
	}))
	require.NoError(t, s.AppendIrrigationEvent(ctx, model.IrrigationEvent{
		Timestamp: now, DurationSec: 20, Reason: model.ReasonManual, Trigger: model.TriggerManual, Outcome: model.OutcomeSuccess,
	}))

	last, err := s.LastIrrigation(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 20, last.DurationSec)
	assert.Equal(t, model.ReasonManual, last.Reason)
}

func TestStore_LastIrrigationNilWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	last, err := s.LastIrrigation(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestStore_PruneDeletesOldRowsAndResolvesOldAlerts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	old := now.AddDate(0, 0, -30)

	temp := 10.0
	require.NoError(t, s.AppendSensorReadings(ctx, SensorReadingRow{Timestamp: old, TemperatureC: &temp}))
	require.NoError(t, s.AppendSensorReadings(ctx, SensorReadingRow{Timestamp: now, TemperatureC: &temp}))
	require.NoError(t, s.AppendAlert(ctx, model.Alert{Timestamp: old, Kind: model.AlertSensorError, Message: "old"}))

	require.NoError(t, s.Prune(ctx, 7, now))

	rows, err := s.RecentSensorReadings(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, now.Unix(), rows[0].Timestamp.Unix())

	var resolved bool
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT resolved FROM alerts WHERE message = 'old'`).Scan(&resolved))
	assert.True(t, resolved)
}
