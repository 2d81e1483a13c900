package handlers

import (
	"encoding/json"
	"net/http"

	"p9e.in/hallfix/config"
	"p9e.in/hallfix/models"
	"p9e.in/hallfix/pkg/docstore"
)

// MaintenanceStreamLimit is the wider recency window used for the legacy
// per-room subcollection stream, which maintenance views depend on.
const MaintenanceStreamLimit = 500

// Package-level portal state, wired once at startup by Setup. Handlers are
// plain functions on this state, matching the rest of the handler files.
var (
	Engine        *ReportEngine
	Directory     *DirectoryCache
	Notifications *NotificationService
	Feed          *LiveFeed
	Docs          docstore.Store

	unsubscribers []docstore.Unsubscribe
)

// Setup wires the engine, directory and notification service onto a
// document store and opens the standing subscriptions. Subscription errors
// are terminal per stream: the affected view degrades to 503 until restart.
func Setup(store docstore.Store) {
	Docs = store
	Engine = NewReportEngine()
	Directory = NewDirectoryCache()
	Notifications = NewNotificationService(config.Redis)
	Feed = NewLiveFeed()

	// Current flat collection, newest first, bounded.
	unsub := store.Subscribe(docstore.Query{
		Collection:         "reports",
		OrderByCreatedDesc: true,
		Limit:              ReportStreamLimit,
	}, func(snap docstore.Snapshot) {
		Engine.SetCurrentSnapshot(snap)
		Feed.Broadcast(Engine.Merged())
	}, func(err error) {
		config.Log.WithError(err).Error("report stream failed")
		Engine.SetError(err)
	})
	unsubscribers = append(unsubscribers, unsub)

	// Legacy rooms/{room}/students/{uid}/reports subcollections, reached
	// with a collection-group query on the leaf name.
	unsub = store.Subscribe(docstore.Query{
		Collection:         "reports",
		Group:              true,
		OrderByCreatedDesc: true,
		Limit:              MaintenanceStreamLimit,
	}, func(snap docstore.Snapshot) {
		Engine.SetLegacySnapshot(snap)
		Feed.Broadcast(Engine.Merged())
	}, func(err error) {
		config.Log.WithError(err).Error("legacy report stream failed")
		Engine.SetError(err)
	})
	unsubscribers = append(unsubscribers, unsub)

	unsub = store.Subscribe(docstore.Query{Collection: "faults"}, func(snap docstore.Snapshot) {
		remote := make([]models.FaultCategory, 0, len(snap))
		for _, doc := range snap {
			remote = append(remote, models.FaultFromDocument(doc.ID, doc.Fields))
		}
		Engine.SetCatalog(remote)
	}, func(err error) {
		config.Log.WithError(err).Error("fault catalog stream failed")
	})
	unsubscribers = append(unsubscribers, unsub)

	unsub = store.Subscribe(docstore.Query{Collection: "users"}, func(snap docstore.Snapshot) {
		Directory.SetSnapshot(snap)
	}, func(err error) {
		config.Log.WithError(err).Error("user directory stream failed")
		Directory.SetError(err)
	})
	unsubscribers = append(unsubscribers, unsub)
}

// Shutdown tears down the standing subscriptions.
func Shutdown() {
	for _, unsub := range unsubscribers {
		unsub()
	}
	unsubscribers = nil
}

func decodeJSONBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// requireLiveReports guards read views behind the subscription health
// check. A failed stream renders 503 rather than an empty-but-200 page.
func requireLiveReports(w http.ResponseWriter) bool {
	if err := Engine.Err(); err != nil {
		http.Error(w, "report stream unavailable", http.StatusServiceUnavailable)
		return false
	}
	return true
}
