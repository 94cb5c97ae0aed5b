package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/titanfed/titan/internal/pkg/mail"
)

// newTestRedis starts an in-process Redis and returns a client bound to it.
func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return mr, client
}

// recordingSender captures sent messages and optionally fails.
type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail.Message(nil), s.sent...)
}

var errSMTPDown = errors.New("smtp down")

func newTestQueue(t *testing.T, sender mail.Sender) (*Queue, *redis.Client) {
	t.Helper()
	_, client := newTestRedis(t)
	q := NewQueueWithClient(client, 1, sender)
	q.retryDelay = 10 * time.Millisecond
	return q, client
}
