package handlers

import (
	"net/http"
	"strings"
	"time"

	"p9e.in/hallfix/config"
	"p9e.in/hallfix/middleware"
	"p9e.in/hallfix/models"
)

// maxReportImages caps photo attachments per report.
const maxReportImages = 2

type submitReportRequest struct {
	Room        string   `json:"room"`
	Block       string   `json:"block"`
	Subdivision string   `json:"subdivision"`
	Location    string   `json:"location"`
	Faults      []string `json:"faults"`
	Description string   `json:"description"`
	ImageURLs   []string `json:"imageUrls"`
}

// SubmitReport files a new fault report under the submitting student's
// per-room subcollection. The faultTypes array is derived from the selected
// fault entries so category filtering works without free-text matching.
func SubmitReport(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body submitReportRequest
	if err := decodeJSONBody(r, &body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	room := models.NormalizeRoomName(body.Room)
	if room == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}
	var faults []string
	for _, fault := range body.Faults {
		if fault = strings.TrimSpace(fault); fault != "" {
			faults = append(faults, fault)
		}
	}
	if len(faults) == 0 {
		http.Error(w, "at least one fault is required", http.StatusBadRequest)
		return
	}
	if len(body.ImageURLs) > maxReportImages {
		http.Error(w, "too many images", http.StatusBadRequest)
		return
	}

	// First " - " segment of each selection names its category.
	faultTypes := make([]string, 0, len(faults))
	seen := make(map[string]struct{})
	for _, fault := range faults {
		category := models.NormalizeFaultItem(fault)
		if _, dup := seen[category]; dup {
			continue
		}
		seen[category] = struct{}{}
		faultTypes = append(faultTypes, category)
	}

	blockKey := models.InferArea(body.Block, body.Location)
	fields := models.JSONMap{
		"room":        room,
		"area":        blockKey,
		"subdivision": models.InferSubdivision(body.Subdivision, body.Location, blockKey),
		"location":    body.Location,
		"faults":      faults,
		"faultTypes":  faultTypes,
		"description": body.Description,
		"imageUrls":   body.ImageURLs,
		"status":      "pending",
		"createdAt":   time.Now().UTC().Format(time.RFC3339Nano),
		"student": models.JSONMap{
			"uid":   claims.UserID,
			"name":  claims.Name,
			"login": claims.Email,
		},
	}

	path := "rooms/" + room + "/students/" + claims.UserID + "/reports"
	doc, err := Docs.CreateDoc(r.Context(), path, fields)
	if err != nil {
		config.Log.WithError(err).WithField("room", room).Error("report submission failed")
		http.Error(w, "failed to submit report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":   doc.ID,
		"path": doc.Path,
	})
}

// GetMyReports lists the submitting student's own reports across the merged
// stream.
func GetMyReports(w http.ResponseWriter, r *http.Request) {
	if !requireLiveReports(w) {
		return
	}
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	rows := []models.Report{}
	for _, report := range Engine.Merged() {
		if report.Student.UID == claims.UserID {
			rows = append(rows, report)
		}
	}
	writeJSON(w, http.StatusOK, rows)
}
