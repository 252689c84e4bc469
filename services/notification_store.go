package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"media-site-service/logging"
	"media-site-service/metrics"
	"media-site-service/models"
	"media-site-service/storage"
	"media-site-service/ws"
)

// NewNotification is the input to NotificationStore.Add.
type NewNotification struct {
	Title    string `json:"title" binding:"required"`
	Message  string `json:"message" binding:"required"`
	Type     string `json:"type" binding:"omitempty,oneof=info success warning error"`
	IsActive *bool  `json:"isActive"`
}

// NotificationStore is the admin-managed collection of site banners.
type NotificationStore struct {
	mu            sync.RWMutex
	notifications []models.Notification
	store         storage.DocumentStore
	events        ws.EventPublisher
	now           func() time.Time
	log           zerolog.Logger
}

func NewNotificationStore(store storage.DocumentStore, events ws.EventPublisher) *NotificationStore {
	if events == nil {
		events = ws.NopPublisher{}
	}
	n := &NotificationStore{
		store:  store,
		events: events,
		now:    time.Now,
		log:    logging.With("notification-store"),
	}
	if _, err := store.Load(storage.Notifications, &n.notifications); err != nil {
		n.log.Error().Err(err).Msg("Failed to load notifications")
		n.notifications = nil
	}
	return n
}

func validNotificationType(t string) bool {
	switch t {
	case models.NotificationInfo, models.NotificationSuccess, models.NotificationWarning, models.NotificationError:
		return true
	}
	return false
}

// Add creates a notification. Type defaults to info and IsActive to true.
func (n *NotificationStore) Add(in NewNotification) (models.Notification, error) {
	title := strings.TrimSpace(in.Title)
	message := strings.TrimSpace(in.Message)
	if title == "" || message == "" {
		return models.Notification{}, fmt.Errorf("%w: title and message are required", ErrInvalidInput)
	}
	typ := in.Type
	if typ == "" {
		typ = models.NotificationInfo
	}
	if !validNotificationType(typ) {
		return models.Notification{}, fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, typ)
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	notification := models.Notification{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Type:      typ,
		IsActive:  active,
		CreatedAt: n.now().UTC(),
	}

	n.mu.Lock()
	n.notifications = append(n.notifications, notification)
	n.persistLocked()
	n.mu.Unlock()

	if notification.IsActive {
		n.events.Publish(ws.OpNotificationNew, notification)
	}
	return notification, nil
}

// Update merges patch into the notification with id and stamps UpdatedAt.
// Title and Message are trimmed and may not be blank. Returns ErrNotFound
// when id is absent.
func (n *NotificationStore) Update(id string, patch models.NotificationPatch) (models.Notification, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.Notification{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		patch.Title = &title
	}
	if patch.Message != nil {
		message := strings.TrimSpace(*patch.Message)
		if message == "" {
			return models.Notification{}, fmt.Errorf("%w: message cannot be empty", ErrInvalidInput)
		}
		patch.Message = &message
	}
	if patch.Type != nil && !validNotificationType(*patch.Type) {
		return models.Notification{}, fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, *patch.Type)
	}

	n.mu.Lock()
	i := n.indexOf(id)
	if i < 0 {
		n.mu.Unlock()
		return models.Notification{}, ErrNotFound
	}

	current := &n.notifications[i]
	if patch.Title != nil {
		current.Title = *patch.Title
	}
	if patch.Message != nil {
		current.Message = *patch.Message
	}
	if patch.Type != nil {
		current.Type = *patch.Type
	}
	if patch.IsActive != nil {
		current.IsActive = *patch.IsActive
	}
	updated := n.now().UTC()
	current.UpdatedAt = &updated

	result := *current
	n.persistLocked()
	n.mu.Unlock()

	n.events.Publish(ws.OpNotificationUpdate, result)
	return result, nil
}

// Delete removes the notification with id and reports whether it existed.
func (n *NotificationStore) Delete(id string) bool {
	n.mu.Lock()
	i := n.indexOf(id)
	if i < 0 {
		n.mu.Unlock()
		return false
	}
	n.notifications = append(n.notifications[:i], n.notifications[i+1:]...)
	n.persistLocked()
	n.mu.Unlock()

	n.events.Publish(ws.OpNotificationDelete, map[string]string{"id": id})
	return true
}

// GetAll returns every notification, newest first.
func (n *NotificationStore) GetAll() []models.Notification {
	return n.list(func(models.Notification) bool { return true })
}

// GetActive returns the active notifications, newest first.
func (n *NotificationStore) GetActive() []models.Notification {
	return n.list(func(m models.Notification) bool { return m.IsActive })
}

func (n *NotificationStore) list(keep func(models.Notification) bool) []models.Notification {
	n.mu.RLock()
	out := make([]models.Notification, 0, len(n.notifications))
	for _, m := range n.notifications {
		if keep(m) {
			out = append(out, m)
		}
	}
	n.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (n *NotificationStore) indexOf(id string) int {
	for i := range n.notifications {
		if n.notifications[i].ID == id {
			return i
		}
	}
	return -1
}

func (n *NotificationStore) persistLocked() {
	if err := n.store.Save(storage.Notifications, n.notifications); err != nil {
		metrics.PersistFailures.WithLabelValues(storage.Notifications).Inc()
		n.log.Error().Err(err).Msg("Failed to save notifications")
	}
}
