package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWithFieldsFlowThroughContext(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithLicenseKey(ctx, "MBPRO-AAAA-AAAA-AAAA-AAAA")
	logg.Info(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "req-1", entry["request_id"])
	require.Equal(t, "MBPRO-AAAA-AAAA-AAAA-AAAA", entry["license_key"])
	require.Equal(t, "test", entry["service"])
	require.Equal(t, "hello", entry["message"])
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	require.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	logg.Error(context.Background(), "boom", context.Canceled)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.NotEmpty(t, entry["stack"])
	require.Equal(t, "context canceled", entry["error"])
}
