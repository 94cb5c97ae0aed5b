package counter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/titanfed/titan/internal/pkg/cache"
)

const (
	webhookDeliveriesKey = "webhook:counters:deliveries"
	fieldSeparator       = "|"
)

// DeliveryCount is the number of deliveries seen for one event type and outcome.
type DeliveryCount struct {
	EventType string `json:"event_type"`
	Outcome   string `json:"outcome"`
	Count     int64  `json:"count"`
}

// Recorder keeps webhook delivery counters in a Redis hash.
type Recorder struct {
	client *redis.Client
}

// NewRecorder returns a recorder on the shared cache client.
func NewRecorder() *Recorder {
	return &Recorder{client: cache.GetClient()}
}

// NewRecorderWithClient returns a recorder on an explicit Redis client.
func NewRecorderWithClient(client *redis.Client) *Recorder {
	return &Recorder{client: client}
}

// RecordDelivery increments the counter for eventType and outcome. Counter
// failures are logged only; they never affect webhook processing.
func (r *Recorder) RecordDelivery(ctx context.Context, eventType, outcome string) {
	if r == nil || r.client == nil {
		return
	}
	if err := r.client.HIncrBy(ctx, webhookDeliveriesKey, deliveryField(eventType, outcome), 1).Err(); err != nil {
		log.Warnf("[Metrics] Failed to count %s/%s delivery: %v", eventType, outcome, err)
	}
}

// Snapshot returns the current counters sorted by event type and outcome.
func (r *Recorder) Snapshot(ctx context.Context) ([]DeliveryCount, error) {
	data, err := r.client.HGetAll(ctx, webhookDeliveriesKey).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(data), nil
}

// Drain returns the counters and resets them. The hash is renamed to a
// temporary key first so increments arriving meanwhile are not lost.
func (r *Recorder) Drain(ctx context.Context) ([]DeliveryCount, error) {
	tmpKey := fmt.Sprintf("%s:tmp:%d", webhookDeliveriesKey, time.Now().UnixNano())
	if err := r.client.Rename(ctx, webhookDeliveriesKey, tmpKey).Err(); err != nil {
		// Nothing counted yet
		if errors.Is(err, redis.Nil) || strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return []DeliveryCount{}, nil
		}
		return nil, err
	}
	defer r.client.Del(ctx, tmpKey)

	data, err := r.client.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(data), nil
}

func deliveryField(eventType, outcome string) string {
	if eventType == "" {
		eventType = "unknown"
	}
	eventType = strings.ReplaceAll(eventType, fieldSeparator, "_")
	return eventType + fieldSeparator + outcome
}

func parseCounts(data map[string]string) []DeliveryCount {
	out := make([]DeliveryCount, 0, len(data))
	for field, raw := range data {
		eventType, outcome, ok := strings.Cut(field, fieldSeparator)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n == 0 {
			continue
		}
		out = append(out, DeliveryCount{EventType: eventType, Outcome: outcome, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventType != out[j].EventType {
			return out[i].EventType < out[j].EventType
		}
		return out[i].Outcome < out[j].Outcome
	})
	return out
}
