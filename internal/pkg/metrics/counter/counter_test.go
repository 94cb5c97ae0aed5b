package counter

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) (*Recorder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRecorderWithClient(client), mr
}

func TestRecordDeliveryAndSnapshot(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx := context.Background()

	rec.RecordDelivery(ctx, "SubscriptionRenewed", "success")
	rec.RecordDelivery(ctx, "SubscriptionRenewed", "success")
	rec.RecordDelivery(ctx, "SubscriptionCreated", "duplicate")
	rec.RecordDelivery(ctx, "", "error")

	got, err := rec.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []DeliveryCount{
		{EventType: "SubscriptionCreated", Outcome: "duplicate", Count: 1},
		{EventType: "SubscriptionRenewed", Outcome: "success", Count: 2},
		{EventType: "unknown", Outcome: "error", Count: 1},
	}, got)
}

func TestRecordDeliverySeparatorInEventType(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx := context.Background()

	rec.RecordDelivery(ctx, "Sub|scription", "warning")

	got, err := rec.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []DeliveryCount{
		{EventType: "Sub_scription", Outcome: "warning", Count: 1},
	}, got)
}

func TestDrainResetsCounters(t *testing.T) {
	rec, mr := newTestRecorder(t)
	ctx := context.Background()

	empty, err := rec.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	rec.RecordDelivery(ctx, "SubscriptionFailed", "warning")

	drained, err := rec.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, drained, 1)
	assert.Equal(t, int64(1), drained[0].Count)

	after, err := rec.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, after)
	assert.Empty(t, mr.Keys())
}

func TestRecordDeliveryNilRecorder(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.RecordDelivery(context.Background(), "SubscriptionCreated", "success")
	})
}

func TestParseCountsSkipsGarbage(t *testing.T) {
	got := parseCounts(map[string]string{
		"nofield":                     "3",
		"SubscriptionExpired|":        "x",
		"SubscriptionExpired|success": "0",
	})
	assert.Empty(t, got)
}
