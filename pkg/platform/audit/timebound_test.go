package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hrdms/pkg/domain-errors"
)

func TestTimeBoundResolve(t *testing.T) {
	tests := []struct {
		name     string
		bound    TimeBound
		endOfDay bool
		want     time.Time
	}{
		{name: "rfc3339 with offset", bound: ISO("2025-03-01T10:00:00+02:00"), want: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)},
		{name: "fractional seconds", bound: ISO("2025-03-01T10:00:00.250Z"), want: time.Date(2025, 3, 1, 10, 0, 0, 250000000, time.UTC)},
		{name: "no zone is utc", bound: ISO("2025-03-01T10:00:00"), want: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "date only lower bound", bound: ISO("2025-03-01"), want: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "date only upper bound", bound: ISO("2025-03-01"), endOfDay: true, want: time.Date(2025, 3, 1, 23, 59, 59, 999999999, time.UTC)},
		{name: "timestamp", bound: At(time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("X", -3600))), want: time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.bound.Resolve("from", tt.endOfDay)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func TestTimeBoundResolve_OpenAndInvalid(t *testing.T) {
	got, err := TimeBound{}.Resolve("to", true)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, ISO("  ").IsZero())

	_, err = ISO("yesterday").Resolve("to", false)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, err.Error(), "to")
}

func TestTimeBoundUnmarshalJSON(t *testing.T) {
	var body struct {
		From TimeBound `json:"from"`
		To   TimeBound `json:"to"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"from":"2025-01-01","to":null}`), &body))
	assert.False(t, body.From.IsZero())
	assert.True(t, body.To.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"from":42}`), &body))
}
