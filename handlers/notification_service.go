package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"p9e.in/hallfix/config"
	"p9e.in/hallfix/models"
)

// readSetKey persists the admin's dismissed-notification set. The key name
// is kept from the portal's browser-storage era so existing deployments
// migrate their state tooling unchanged.
const readSetKey = "adminReadNotifications"

// NotificationFeedLimit caps the bell dropdown.
const NotificationFeedLimit = 18

// ReadSetStore persists the dismissed-notification key set.
type ReadSetStore interface {
	Add(ctx context.Context, keys ...string) error
	Members(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// redisReadSet is the production store: one redis set under readSetKey.
type redisReadSet struct {
	rdb *redis.Client
}

func (s redisReadSet) Add(ctx context.Context, keys ...string) error {
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	return s.rdb.SAdd(ctx, readSetKey, members...).Err()
}

func (s redisReadSet) Members(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, readSetKey).Result()
}

func (s redisReadSet) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, readSetKey).Err()
}

// NotificationService tracks which report notifications the admin has
// dismissed. The read set is a plain set of report keys; marking is
// idempotent and unknown keys are harmless.
type NotificationService struct {
	store ReadSetStore
}

func NewNotificationService(rdb *redis.Client) *NotificationService {
	return &NotificationService{store: redisReadSet{rdb: rdb}}
}

// NewNotificationServiceWith plugs in an alternative persistence layer.
func NewNotificationServiceWith(store ReadSetStore) *NotificationService {
	return &NotificationService{store: store}
}

// Notification is one bell-feed entry derived from a report.
type Notification struct {
	Key       string     `json:"key"`
	Room      string     `json:"room"`
	Fault     string     `json:"fault"`
	Status    string     `json:"status"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func notificationFrom(report models.Report, fault string) Notification {
	n := Notification{
		Key:    report.Key(),
		Room:   report.Room,
		Fault:  fault,
		Status: string(report.Status),
	}
	if !report.CreatedAt.IsZero() {
		t := report.CreatedAt
		n.CreatedAt = &t
	}
	return n
}

// IsRead reports membership in the read set.
func (s *NotificationService) IsRead(ctx context.Context, key string) (bool, error) {
	set, err := s.readSet(ctx)
	if err != nil {
		return false, err
	}
	_, ok := set[key]
	return ok, nil
}

// MarkRead adds report keys to the read set. Re-marking is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.store.Add(ctx, keys...)
}

// ResetAll clears the read set, returning every notification to unread.
func (s *NotificationService) ResetAll(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// readSet fetches the whole set once per request; membership checks against
// the map avoid a store round-trip per feed row.
func (s *NotificationService) readSet(ctx context.Context) (map[string]struct{}, error) {
	members, err := s.store.Members(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return set, nil
}

// UnreadFeed filters the newest reports down to unread ones, optionally
// scoped to one fault category, capped at NotificationFeedLimit. The merged
// set is already newest-first.
func (s *NotificationService) UnreadFeed(ctx context.Context, faultID string) ([]Notification, error) {
	read, err := s.readSet(ctx)
	if err != nil {
		// Missing or unreachable read state degrades to everything-unread
		// rather than hiding the feed.
		config.Log.WithError(err).Warn("read set unavailable, treating all as unread")
		read = map[string]struct{}{}
	}
	rows := Engine.Merged()
	if faultID != "" {
		rows = Engine.ReportsForFault(faultID)
	}
	var feed []Notification
	for _, report := range rows {
		if _, ok := read[report.Key()]; ok {
			continue
		}
		feed = append(feed, notificationFrom(report, Engine.PrimaryFaultLabel(report)))
		if len(feed) == NotificationFeedLimit {
			break
		}
	}
	return feed, nil
}

// GetNotifications serves the bell feed.
func GetNotifications(w http.ResponseWriter, r *http.Request) {
	if !requireLiveReports(w) {
		return
	}
	feed, err := Notifications.UnreadFeed(r.Context(), r.URL.Query().Get("faultId"))
	if err != nil {
		config.Log.WithError(err).Error("notification read set unavailable")
		http.Error(w, "notification state unavailable", http.StatusServiceUnavailable)
		return
	}
	if feed == nil {
		feed = []Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": feed,
		"count":         len(feed),
	})
}

// MarkNotificationsRead dismisses the listed keys; with no body keys it
// dismisses everything currently visible in the feed.
func MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Keys []string `json:"keys"`
	}
	_ = decodeJSONBody(r, &body)

	keys := body.Keys
	if len(keys) == 0 {
		feed, err := Notifications.UnreadFeed(r.Context(), "")
		if err != nil {
			http.Error(w, "notification state unavailable", http.StatusServiceUnavailable)
			return
		}
		for _, n := range feed {
			keys = append(keys, n.Key)
		}
	}
	if err := Notifications.MarkRead(r.Context(), keys...); err != nil {
		config.Log.WithError(err).Error("failed to persist read set")
		http.Error(w, "notification state unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"marked": len(keys)})
}

// ResetNotifications clears the read set.
func ResetNotifications(w http.ResponseWriter, r *http.Request) {
	if err := Notifications.ResetAll(r.Context()); err != nil {
		config.Log.WithError(err).Error("failed to reset read set")
		http.Error(w, "notification state unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notifications reset"})
}
