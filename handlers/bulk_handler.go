package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"p9e.in/hallfix/config"
	"p9e.in/hallfix/middleware"
	"p9e.in/hallfix/models"
)

// BulkResult is the outcome of a fan-out mutation. Failures never abort the
// batch; every target is attempted and the caller gets honest counts.
type BulkResult struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// resolveFields and reopenFields are the two status transitions. Reopen
// clears resolvedAt rather than leaving a stale timestamp behind.
func resolveFields(actor string) map[string]any {
	return map[string]any{
		"status":     "resolved",
		"resolvedAt": time.Now().UTC().Format(time.RFC3339Nano),
		"resolvedBy": actor,
	}
}

func reopenFields(actor string) map[string]any {
	return map[string]any{
		"status":     "pending",
		"resolvedAt": nil,
		"reopenedAt": time.Now().UTC().Format(time.RFC3339Nano),
		"reopenedBy": actor,
	}
}

func approveFields() map[string]any {
	return map[string]any{
		"approved":   true,
		"approvedAt": time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// writeMany applies the same field patch to every report path concurrently
// and tallies outcomes. One slow or broken write never blocks the rest
// beyond the final join.
func writeMany(ctx context.Context, paths []string, fields map[string]any) BulkResult {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result BulkResult
	)
	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			err := Docs.WriteFields(ctx, path, fields)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, path+": "+err.Error())
				return
			}
			result.Succeeded++
		}(path)
	}
	wg.Wait()
	return result
}

func actorName(r *http.Request) string {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		return "unknown"
	}
	if claims.Name != "" {
		return claims.Name
	}
	return claims.UserID
}

// ToggleReportStatus flips one report between open and resolved.
func ToggleReportStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if err := decodeJSONBody(r, &body); err != nil || body.Path == "" {
		http.Error(w, "missing report path", http.StatusBadRequest)
		return
	}

	var target *models.Report
	for _, report := range Engine.Merged() {
		if report.Path == body.Path {
			rep := report
			target = &rep
			break
		}
	}
	if target == nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}

	actor := actorName(r)
	fields := resolveFields(actor)
	action := "resolve_report"
	if target.Status == models.StatusResolved {
		fields = reopenFields(actor)
		action = "reopen_report"
	}
	if err := Docs.WriteFields(r.Context(), body.Path, fields); err != nil {
		config.Log.WithError(err).WithField("path", body.Path).Error("status toggle failed")
		http.Error(w, "failed to update report", http.StatusInternalServerError)
		return
	}
	recordActivity(r, action, map[string]any{"path": body.Path, "room": target.Room})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Report updated"})
}

// bulkTargets resolves the open reports behind a bulk request. Room scoping
// is optional; fault scoping selects by the three-tier matcher.
func bulkTargets(faultID, room string) []string {
	var rows []models.Report
	if faultID != "" {
		rows = Engine.ReportsForFault(faultID)
	} else {
		rows = Engine.Merged()
	}
	var paths []string
	for _, report := range rows {
		if report.Status != models.StatusOpen {
			continue
		}
		if room != "" && report.Room != room {
			continue
		}
		if report.Path != "" {
			paths = append(paths, report.Path)
		}
	}
	return paths
}

// BulkResolveReports resolves every open report in scope: a whole fault
// category, one room within it, or one room across categories.
func BulkResolveReports(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FaultID string `json:"faultId"`
		Room    string `json:"room"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.FaultID == "" && body.Room == "" {
		http.Error(w, "faultId or room required", http.StatusBadRequest)
		return
	}

	paths := bulkTargets(body.FaultID, body.Room)
	result := writeMany(r.Context(), paths, resolveFields(actorName(r)))
	recordActivity(r, "bulk_resolve", map[string]any{
		"faultId":   body.FaultID,
		"room":      body.Room,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	status := http.StatusOK
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

// BulkReopenRoom reopens every resolved report in one room.
func BulkReopenRoom(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	var paths []string
	for _, report := range Engine.Merged() {
		if report.Room == room && report.Status == models.StatusResolved && report.Path != "" {
			paths = append(paths, report.Path)
		}
	}
	result := writeMany(r.Context(), paths, reopenFields(actorName(r)))
	recordActivity(r, "bulk_reopen", map[string]any{
		"room":      room,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	status := http.StatusOK
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

// BulkApproveUsers flips approved=true on the listed user ids.
func BulkApproveUsers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserIDs []string `json:"userIds"`
	}
	if err := decodeJSONBody(r, &body); err != nil || len(body.UserIDs) == 0 {
		http.Error(w, "userIds required", http.StatusBadRequest)
		return
	}

	paths := make([]string, 0, len(body.UserIDs))
	for _, id := range body.UserIDs {
		if id != "" {
			paths = append(paths, "users/"+id)
		}
	}
	result := writeMany(r.Context(), paths, approveFields())
	recordActivity(r, "bulk_approve_users", map[string]any{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	status := http.StatusOK
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

// ApproveUser approves a single pending account.
func ApproveUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := Docs.WriteFields(r.Context(), "users/"+id, approveFields()); err != nil {
		config.Log.WithError(err).WithField("user", id).Error("approval failed")
		http.Error(w, "failed to approve user", http.StatusInternalServerError)
		return
	}
	recordActivity(r, "approve_user", map[string]any{"user": id})
	writeJSON(w, http.StatusOK, map[string]string{"message": "User approved"})
}
