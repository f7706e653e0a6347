package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"boss_alert_bot/internal/domain/chat"

	"github.com/sirupsen/logrus"
)

const defaultDeleteTimeout = 10 * time.Second

type expiryEntry struct {
	publisher chat.Publisher
	channelID string
	messageID string
	timer     *time.Timer
}

// ExpiryRegistry deletes sent alerts after a delay. Every pending deletion is
// tracked so it can be cancelled, or flushed early on shutdown.
type ExpiryRegistry struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*expiryEntry
	closed  bool

	deleteTimeout time.Duration
	logger        *logrus.Entry
}

func NewExpiryRegistry(logger *logrus.Entry) *ExpiryRegistry {
	return &ExpiryRegistry{
		pending:       make(map[uint64]*expiryEntry),
		deleteTimeout: defaultDeleteTimeout,
		logger:        logger,
	}
}

// Schedule arranges for messageID to be deleted after the given delay and
// returns a handle for Cancel. It never blocks on the deletion itself.
// After Flush it returns 0 and schedules nothing.
func (r *ExpiryRegistry) Schedule(p chat.Publisher, channelID, messageID string, after time.Duration) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.logger.WithField("message_id", messageID).Warn("Registry closed, alert will not be deleted")
		return 0
	}

	r.nextID++
	id := r.nextID
	e := &expiryEntry{publisher: p, channelID: channelID, messageID: messageID}
	e.timer = time.AfterFunc(after, func() { r.fire(id) })
	r.pending[id] = e
	return id
}

// Cancel drops a pending deletion. It reports false if the deletion already ran.
func (r *ExpiryRegistry) Cancel(id uint64) bool {
	r.mu.Lock()
	e, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	e.timer.Stop()
	return true
}

// Pending returns the number of deletions not yet executed.
func (r *ExpiryRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush stops every timer and attempts the outstanding deletions right away,
// giving up when ctx is done. It returns how many deletions were attempted.
func (r *ExpiryRegistry) Flush(ctx context.Context) int {
	r.mu.Lock()
	r.closed = true
	entries := make([]*expiryEntry, 0, len(r.pending))
	for id, e := range r.pending {
		entries = append(entries, e)
		delete(r.pending, id)
	}
	r.mu.Unlock()

	attempted := 0
	for _, e := range entries {
		e.timer.Stop()
		if ctx.Err() != nil {
			r.logger.WithField("message_id", e.messageID).Warn("Shutdown deadline reached, leaving alert in place")
			continue
		}
		r.delete(ctx, e)
		attempted++
	}
	return attempted
}

func (r *ExpiryRegistry) fire(id uint64) {
	r.mu.Lock()
	e, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.deleteTimeout)
	defer cancel()
	r.delete(ctx, e)
}

func (r *ExpiryRegistry) delete(ctx context.Context, e *expiryEntry) {
	log := r.logger.WithFields(logrus.Fields{
		"channel_id": e.channelID,
		"message_id": e.messageID,
	})
	err := e.publisher.DeleteMessage(ctx, e.channelID, e.messageID)
	switch {
	case err == nil:
		log.Debug("Alert deleted")
	case errors.Is(err, chat.ErrNotFound):
		log.Debug("Alert already gone")
	default:
		log.WithError(err).Warn("Failed to delete alert")
	}
}
