package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vctrack/internal/domain/report"
	"github.com/osa030/vctrack/internal/domain/reward"
	"github.com/osa030/vctrack/internal/infra/config"
)

func sampleReport() *report.Report {
	return &report.Report{
		GeneratedAt:  time.Date(2025, 1, 10, 22, 0, 0, 0, time.UTC),
		TotalElapsed: 30*time.Minute + 1500*time.Millisecond,
		TotalCoins:   100,
		Lines: []report.Line{
			{UserID: "u1", Tag: "alice", Elapsed: 20 * time.Minute, Reward: reward.Result{Base: 50, BoostPercent: 50, Coins: 75}},
			{UserID: "u2", Tag: "bob", Elapsed: 10*time.Minute + 1500*time.Millisecond, Reward: reward.Result{Base: 25, Coins: 25}},
		},
	}
}

func TestEncode(t *testing.T) {
	payload, err := Encode("session-1", sampleReport())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &got))

	assert.Equal(t, "session-1", got["session_id"])
	assert.Equal(t, "2025-01-10T22:00:00Z", got["generated_at"])
	assert.Equal(t, float64(1801), got["total_elapsed_seconds"])
	assert.Equal(t, float64(100), got["total_coins"])

	users, ok := got["users"].([]any)
	require.True(t, ok)
	require.Len(t, users, 2)
	first := users[0].(map[string]any)
	assert.Equal(t, "u1", first["user_id"])
	assert.Equal(t, float64(1200), first["elapsed_seconds"])
	assert.Equal(t, float64(50), first["boost_percent"])
	assert.Equal(t, float64(75), first["coins"])
	second := users[1].(map[string]any)
	assert.Equal(t, float64(601), second["elapsed_seconds"])
}

func TestEncode_EmptyReport(t *testing.T) {
	payload, err := Encode("s", &report.Report{})
	require.NoError(t, err)
	assert.Contains(t, payload, `"users":[]`)
}

func TestReportSink_PublishAfterClose(t *testing.T) {
	sink := NewReportSink(config.RedisConfig{Addr: "127.0.0.1:0", Channel: "c", ListKey: "k", ListMax: 5})
	require.NoError(t, sink.Close())

	err := sink.Publish(context.Background(), "session-1", sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_id=session-1")
}
