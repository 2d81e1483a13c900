package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"p9e.in/hallfix/middleware"
	"p9e.in/hallfix/models"
)

// CatalogEntry is a fault card on the dashboard grid: the category plus its
// live counters.
type CatalogEntry struct {
	models.FaultCategory
	OpenReports int  `json:"openReports"`
	Rooms       int  `json:"rooms"`
	ImageIcon   bool `json:"imageIcon"`
}

// GetFaultCatalog lists the catalog with per-category open and room counts.
func GetFaultCatalog(w http.ResponseWriter, r *http.Request) {
	if !requireLiveReports(w) {
		return
	}
	catalog := Engine.Catalog()
	out := make([]CatalogEntry, 0, len(catalog))
	for _, fault := range catalog {
		out = append(out, CatalogEntry{
			FaultCategory: fault,
			OpenReports:   Engine.OpenCountForFault(fault.ID),
			Rooms:         Engine.RoomCountForFault(fault.ID),
			ImageIcon:     models.IsImageIcon(fault.Icon),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetFaultReports lists one category's reports grouped per room.
func GetFaultReports(w http.ResponseWriter, r *http.Request) {
	if !requireLiveReports(w) {
		return
	}
	faultID := mux.Vars(r)["id"]
	fault, ok := Engine.FaultByID(faultID)
	if !ok {
		http.Error(w, "unknown fault category", http.StatusNotFound)
		return
	}
	rows := Engine.ReportsForFault(faultID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fault":   fault,
		"total":   len(rows),
		"rooms":   Engine.RoomRollupsForFault(faultID),
		"reports": rows,
	})
}

// GetFaultAnalytics serves the per-category summary panel.
func GetFaultAnalytics(w http.ResponseWriter, r *http.Request) {
	if !requireLiveReports(w) {
		return
	}
	faultID := mux.Vars(r)["id"]
	if _, ok := Engine.FaultByID(faultID); !ok {
		http.Error(w, "unknown fault category", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ComputeAnalytics(Engine.ReportsForFault(faultID), time.Now()))
}

// GetHallStats serves the hall-wide top-10 rankings.
func GetHallStats(w http.ResponseWriter, r *http.Request) {
	if !requireLiveReports(w) {
		return
	}
	writeJSON(w, http.StatusOK, Engine.HallStats())
}

// GetHallAnalytics summarizes the whole merged set, independent of any
// category selection.
func GetHallAnalytics(w http.ResponseWriter, r *http.Request) {
	if !requireLiveReports(w) {
		return
	}
	writeJSON(w, http.StatusOK, ComputeAnalytics(Engine.Merged(), time.Now()))
}

// GetReports lists the merged report stream with optional status and room
// filters.
func GetReports(w http.ResponseWriter, r *http.Request) {
	if !requireLiveReports(w) {
		return
	}
	q := r.URL.Query()
	status := q.Get("status")
	room := q.Get("room")

	var rows []models.Report
	for _, report := range Engine.Merged() {
		if status != "" && string(report.Status) != status {
			continue
		}
		if room != "" && report.Room != room {
			continue
		}
		rows = append(rows, report)
	}
	if rows == nil {
		rows = []models.Report{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetLocationStructure serves the hall's block and subdivision layout, used
// by selection forms.
func GetLocationStructure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.LocationStructure)
}

// GetRoomsForLocation lists the rooms of one (block, subdivision) pair.
func GetRoomsForLocation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rooms := models.RoomsForLocation(q.Get("block"), q.Get("subdivision"))
	if rooms == nil {
		http.Error(w, "unknown location", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// technicianSpecialty resolves the specialty scope: explicit query param for
// admins browsing, the claims' specialty for technician accounts.
func technicianSpecialty(r *http.Request) string {
	if s := r.URL.Query().Get("specialty"); s != "" {
		return strings.ToLower(s)
	}
	if claims := middleware.ClaimsFrom(r); claims != nil {
		return strings.ToLower(claims.Specialty)
	}
	return ""
}

// GetTechnicianReports lists every report in a maintenance specialty's
// scope, including resolved history.
func GetTechnicianReports(w http.ResponseWriter, r *http.Request) {
	if !requireLiveReports(w) {
		return
	}
	specialty := technicianSpecialty(r)
	if _, ok := models.TechnicianFaultTerms[specialty]; !ok {
		http.Error(w, "unknown specialty", http.StatusBadRequest)
		return
	}
	rows := Engine.TechnicianReports(specialty)
	if rows == nil {
		rows = []models.Report{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetTechnicianWorklist lists the open reports in scope, grouped per room
// and optionally narrowed by location.
func GetTechnicianWorklist(w http.ResponseWriter, r *http.Request) {
	if !requireLiveReports(w) {
		return
	}
	specialty := technicianSpecialty(r)
	if _, ok := models.TechnicianFaultTerms[specialty]; !ok {
		http.Error(w, "unknown specialty", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	rows := Engine.TechnicianOpenReports(specialty, q.Get("block"), q.Get("subdivision"), q.Get("room"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"specialty": specialty,
		"total":     len(rows),
		"rooms":     buildRoomRollups(rows),
	})
}
