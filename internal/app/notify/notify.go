// Package notify records in-app notifications for creators.
// Delivery (push, email) happens elsewhere; this package only persists.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/infra/observability"
)

// DefaultWindow collapses repeats of the same notification.
const DefaultWindow = 5 * time.Minute

// Config controls the notifier.
type Config struct {
	Window  time.Duration // debounce window (default: 5m)
	Buffer  int           // queued notifications before dropping (default: 256)
	Workers int           // concurrent writers (default: 1)
	Timeout time.Duration // per-notification deadline (default: 5s)
}

// DefaultConfig returns notifier defaults.
func DefaultConfig() Config {
	return Config{
		Window:  DefaultWindow,
		Buffer:  256,
		Workers: 1,
		Timeout: 5 * time.Second,
	}
}

// Notifier persists debounced notifications. Enqueue hands work to the
// background writers started by Run; Notify writes synchronously.
type Notifier struct {
	config    Config
	store     domain.NotificationStore
	debouncer Debouncer
	logger    *zap.Logger
	now       func() time.Time
	queue     chan domain.Notification
}

// New creates a notifier. A nil debouncer falls back to in-memory state.
func New(cfg Config, store domain.NotificationStore, debouncer Debouncer, logger *zap.Logger) *Notifier {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if debouncer == nil {
		debouncer = NewMemoryDebouncer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		config:    cfg,
		store:     store,
		debouncer: debouncer,
		logger:    logger.Named("notify"),
		now:       time.Now,
		queue:     make(chan domain.Notification, cfg.Buffer),
	}
}

// Enqueue schedules n for a background write. Never blocks; returns false
// when the buffer is full and n was dropped.
func (s *Notifier) Enqueue(n domain.Notification) bool {
	select {
	case s.queue <- n:
		return true
	default:
		observability.NotificationsTotal.WithLabelValues("dropped").Inc()
		s.logger.Warn("notification queue full, dropping",
			zap.String("recipient_id", n.RecipientID),
			zap.String("type", string(n.Type)))
		return false
	}
}

// Pending is the number of notifications waiting for a writer.
func (s *Notifier) Pending() int {
	return len(s.queue)
}

// Run starts the writers and blocks until ctx is cancelled. Notifications
// still buffered are abandoned.
func (s *Notifier) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case n := <-s.queue:
					s.deliver(ctx, n)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

func (s *Notifier) deliver(ctx context.Context, n domain.Notification) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var err error
	if r := panics.Try(func() {
		_, err = s.Notify(ctx, n)
	}); r != nil {
		err = fmt.Errorf("notify panicked: %w", r.AsError())
	}
	if err != nil {
		s.logger.Warn("notification failed",
			zap.String("recipient_id", n.RecipientID),
			zap.String("object_id", n.ObjectID),
			zap.Error(err))
	}
}

// Notify persists n unless the actor is the recipient, the recipient turned
// the type off, or an identical notification was recorded inside the window.
// Reports whether it was stored.
func (s *Notifier) Notify(ctx context.Context, n domain.Notification) (bool, error) {
	if n.SelfInflicted() {
		observability.NotificationsTotal.WithLabelValues("self").Inc()
		return false, nil
	}

	prefs, err := s.store.GetNotificationPreferences(ctx, n.RecipientID)
	if err != nil {
		observability.NotificationsTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("load preferences: %w", err)
	}
	if !prefs.Enabled(n.Type) {
		observability.NotificationsTotal.WithLabelValues("disabled").Inc()
		return false, nil
	}

	ok, err := s.debouncer.Allow(ctx, n.DedupKey(), s.config.Window)
	if err != nil {
		observability.NotificationsTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("debounce: %w", err)
	}
	if !ok {
		observability.NotificationsTotal.WithLabelValues("debounced").Inc()
		return false, nil
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		observability.NotificationsTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("insert notification: %w", err)
	}

	observability.NotificationsTotal.WithLabelValues("sent").Inc()
	s.logger.Debug("notification recorded",
		zap.String("recipient_id", n.RecipientID),
		zap.String("type", string(n.Type)),
		zap.String("object_id", n.ObjectID))
	return true, nil
}

// Rating builds the notification a creator receives when a post is voted on.
func Rating(voterID, ownerID, postID string, value domain.VoteValue) domain.Notification {
	return domain.Notification{
		RecipientID: ownerID,
		ActorID:     voterID,
		Type:        domain.NotifyRating,
		ObjectID:    postID,
		Extra:       map[string]string{"value": strconv.Itoa(int(value))},
	}
}
