package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/titanfed/titan/app/models"
	"github.com/titanfed/titan/app/repository"
	"github.com/titanfed/titan/internal/pkg/jobqueue"
	"github.com/titanfed/titan/internal/testutil"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// time1s absorbs timestamp precision lost in the database round trip.
const time1s = time.Second

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []string
	renewed   []string
}

func (n *recordingNotifier) SubscriptionConfirmed(_ context.Context, _ *ResolvedEntity, sub *models.Subscription, _ *WebhookEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, sub.ProviderSubscriptionID)
}

func (n *recordingNotifier) SubscriptionRenewed(_ context.Context, sub *models.Subscription, _ *WebhookEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.renewed = append(n.renewed, sub.ProviderSubscriptionID)
}

type recordingDeliveries struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recordingDeliveries) RecordDelivery(_ context.Context, eventType, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[eventType+"/"+outcome]++
}

type recordingJobs struct {
	mu   sync.Mutex
	jobs []jobqueue.Job
}

func (r *recordingJobs) EnqueueJob(jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := jobqueue.Job{ID: "job-test", Type: jobType, Payload: payload, Status: jobqueue.JobStatusPending}
	r.jobs = append(r.jobs, job)
	return &job, nil
}

// cancellingStore cancels the request context the moment a transition is
// attempted, as a client hanging up mid-delivery would.
type cancellingStore struct {
	ProjectionStore
	cancel context.CancelFunc
}

func (s *cancellingStore) ApplyTransition(ctx context.Context, providerSubscriptionID string, t Transition, event *models.SubscriptionEvent) (*TransitionResult, error) {
	s.cancel()
	return nil, ctx.Err()
}

// routerFixture wires a Router to a fresh SQLite database.
type routerFixture struct {
	db         *gorm.DB
	repos      *repository.Repositories
	ledger     *Ledger
	store      ProjectionStore
	notifier   *recordingNotifier
	deliveries *recordingDeliveries
	router     *Router
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	f := &routerFixture{
		db:         db,
		repos:      repository.NewRepositories(db),
		ledger:     NewLedger(db),
		store:      NewProjectionStore(db),
		notifier:   &recordingNotifier{},
		deliveries: &recordingDeliveries{},
	}
	f.router = NewRouter(f.ledger, f.store, NewAthleteResolver(f.repos.Athlete), f.notifier,
		WithDeliveryRecorder(f.deliveries),
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func (f *routerFixture) dispatch(t *testing.T, payload map[string]interface{}) (*DispatchResult, error) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return f.router.Dispatch(context.Background(), raw, false)
}

func (f *routerFixture) logs(t *testing.T) []models.WebhookLog {
	t.Helper()
	var logs []models.WebhookLog
	require.NoError(t, f.db.Order("id ASC").Find(&logs).Error)
	return logs
}

func (f *routerFixture) subscription(t *testing.T, providerID string) *models.Subscription {
	t.Helper()
	sub, err := f.store.FindSubscription(context.Background(), providerID)
	require.NoError(t, err)
	return sub
}

func (f *routerFixture) events(t *testing.T, sub *models.Subscription) []models.SubscriptionEvent {
	t.Helper()
	events, err := f.store.ListEvents(context.Background(), sub.ID)
	require.NoError(t, err)
	return events
}

func createdPayload(subID, txID, email string) map[string]interface{} {
	return map[string]interface{}{
		"EventType":         "SubscriptionCreated",
		"IdSubscription":    subID,
		"IdTransaction":     txID,
		"TransactionStatus": map[string]interface{}{"Id": 3},
		"Amount":            "49.90",
		"PaymentMethod":     "6",
		"Customer":          map[string]interface{}{"Email": email, "Name": "Ana Souza"},
	}
}

func lifecyclePayload(kind, subID, txID string) map[string]interface{} {
	return map[string]interface{}{
		"EventType":      kind,
		"IdSubscription": subID,
		"IdTransaction":  txID,
		"Status":         3,
	}
}

func dedupeKeyOf(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
