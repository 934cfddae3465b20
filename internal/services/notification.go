package services

import (
	"context"
	"sync"
	"time"

	"pitchfeed/internal/db"
	"pitchfeed/internal/metrics"
	"pitchfeed/internal/models"

	"github.com/rs/zerolog/log"
)

type notificationKey struct {
	userID   string
	actorID  string
	typ      models.NotificationType
	targetID string
}

// NotificationService delivers notifications off the request path. Writers
// enqueue and return; a background worker persists in small batches.
type NotificationService struct {
	store   db.Store
	metrics *metrics.Registry

	queue   chan *models.Notification
	pending map[notificationKey]bool
	mu      sync.Mutex
	closed  bool
	done    chan struct{}
}

const (
	notificationQueueSize = 1000
	notificationBatchSize = 50
	notificationFlush     = 500 * time.Millisecond
)

// NewNotificationService starts the delivery worker. Call Close to drain it.
func NewNotificationService(store db.Store, m *metrics.Registry) *NotificationService {
	s := &NotificationService{
		store:   store,
		metrics: m,
		queue:   make(chan *models.Notification, notificationQueueSize),
		pending: make(map[notificationKey]bool),
		done:    make(chan struct{}),
	}
	go s.worker()
	return s
}

// Notify queues n for delivery. Self notifications and exact duplicates that
// are still queued are skipped. A full queue drops n.
func (s *NotificationService) Notify(n *models.Notification) {
	if s == nil || n.UserID == "" || n.UserID == n.ActorID {
		return
	}
	key := notificationKey{userID: n.UserID, actorID: n.ActorID, typ: n.Type, targetID: n.TargetID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pending[key] {
		return
	}

	select {
	case s.queue <- n:
		s.pending[key] = true
	default:
		s.metrics.ObserveNotification("dropped")
		log.Warn().Str("user", n.UserID).Str("type", string(n.Type)).Msg("notification queue full, dropping")
	}
}

// Close stops accepting notifications and waits until the queue is drained.
func (s *NotificationService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}

func (s *NotificationService) worker() {
	defer close(s.done)

	batch := make([]*models.Notification, 0, notificationBatchSize)
	ticker := time.NewTicker(notificationFlush)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-s.queue:
			if !ok {
				s.processBatch(batch)
				return
			}
			batch = append(batch, n)
			if len(batch) >= notificationBatchSize {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *NotificationService) processBatch(batch []*models.Notification) {
	ctx := context.Background()
	for _, n := range batch {
		if err := s.store.CreateNotification(ctx, n); err != nil {
			s.metrics.ObserveNotification("failed")
			log.Error().Err(err).Str("user", n.UserID).Str("type", string(n.Type)).Msg("failed to store notification")
		} else {
			s.metrics.ObserveNotification("delivered")
		}

		s.mu.Lock()
		delete(s.pending, notificationKey{userID: n.UserID, actorID: n.ActorID, typ: n.Type, targetID: n.TargetID})
		s.mu.Unlock()
	}
}

// List returns the newest notifications for userID.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, translate(err)
	}
	out, err := s.store.ListNotifications(ctx, userID, limit)
	return out, translate(err)
}

// MarkRead marks one of userID's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, id uint) error {
	return translate(s.store.MarkNotificationRead(ctx, userID, id))
}
