package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	got, err := ParseTimestamp("2025-11-07 00:30:00")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.November, 7, 5, 30, 0, 0, time.UTC), got.UTC())
	assert.Equal(t, "2025-11-07 00:30:00", FormatTimestamp(got))
}

func TestParseTimestamp_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ParseTimestamp("2025/11/07")
	assert.Error(t, err)
}

func TestFormatTimestamp_ConvertsToExchange(t *testing.T) {
	t.Parallel()

	utc := time.Date(2025, time.July, 1, 14, 0, 0, 0, time.UTC)

	assert.Equal(t, "2025-07-01 10:00:00", FormatTimestamp(utc))
}

func TestDefaultWatermark(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1900-01-01 00:00:00", FormatTimestamp(DefaultWatermark))
	assert.Equal(t, "IBM_cdc", WatermarkKey("IBM"))
}

func TestResultKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", ResultSuccess.String())
	assert.Equal(t, "empty", ResultEmpty.String())
	assert.Equal(t, "rate_limited", ResultRateLimited.String())
	assert.Equal(t, "unknown", ResultKind(42).String())
}
