package handlers

import (
	"net/http"
	"time"

	"p9e.in/hallfix/config"
	"p9e.in/hallfix/middleware"
)

// recordActivity appends an admin action to the adminActivity collection.
// Best effort: audit failures are logged and never fail the request they
// describe.
func recordActivity(r *http.Request, action string, detail map[string]any) {
	claims := middleware.ClaimsFrom(r)
	fields := map[string]any{
		"action":    action,
		"detail":    detail,
		"createdAt": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if claims != nil {
		fields["actorId"] = claims.UserID
		fields["actorName"] = claims.Name
		fields["actorRole"] = claims.Role
	}
	if _, err := Docs.CreateDoc(r.Context(), "adminActivity", fields); err != nil {
		config.Log.WithError(err).WithField("action", action).Warn("activity record dropped")
	}
}

// GetActivityLog lists recent admin actions, newest first.
func GetActivityLog(w http.ResponseWriter, r *http.Request) {
	snap, err := Docs.Fetch(r.Context(), "adminActivity", 100)
	if err != nil {
		http.Error(w, "activity log unavailable", http.StatusServiceUnavailable)
		return
	}
	out := make([]map[string]any, 0, len(snap))
	for _, doc := range snap {
		row := map[string]any{"id": doc.ID}
		for k, v := range doc.Fields {
			row[k] = v
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, out)
}
