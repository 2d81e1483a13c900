package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"p9e.in/hallfix/config"
	"p9e.in/hallfix/models"
)

// CreateFaultCategory adds a remotely configured category. The id is the
// label's slug, so recreating an existing label overwrites it instead of
// accumulating duplicates.
func CreateFaultCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Label string `json:"label"`
		Icon  string `json:"icon"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	label := strings.TrimSpace(body.Label)
	if label == "" {
		http.Error(w, "label is required", http.StatusBadRequest)
		return
	}

	id := models.Slugify(label)
	fields := models.JSONMap{
		"label":     label,
		"icon":      body.Icon,
		"updatedAt": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := Docs.WriteFields(r.Context(), "faults/"+id, fields); err != nil {
		config.Log.WithError(err).WithField("fault", id).Error("fault create failed")
		http.Error(w, "failed to save fault category", http.StatusInternalServerError)
		return
	}
	recordActivity(r, "create_fault", map[string]any{"fault": id, "label": label})
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// UpdateFaultIcon swaps a category's icon for an uploaded image or a named
// glyph.
func UpdateFaultIcon(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Icon string `json:"icon"`
	}
	if err := decodeJSONBody(r, &body); err != nil || body.Icon == "" {
		http.Error(w, "icon is required", http.StatusBadRequest)
		return
	}
	if _, ok := Engine.FaultByID(id); !ok {
		http.Error(w, "unknown fault category", http.StatusNotFound)
		return
	}
	fields := models.JSONMap{
		"icon":      body.Icon,
		"updatedAt": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := Docs.WriteFields(r.Context(), "faults/"+id, fields); err != nil {
		config.Log.WithError(err).WithField("fault", id).Error("icon update failed")
		http.Error(w, "failed to update icon", http.StatusInternalServerError)
		return
	}
	recordActivity(r, "update_fault_icon", map[string]any{"fault": id})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Icon updated"})
}

// RegisterRoom records a room document so selection forms can offer rooms
// the structural layout does not model.
func RegisterRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Room        string `json:"room"`
		Block       string `json:"block"`
		Subdivision string `json:"subdivision"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	room := models.NormalizeRoomName(body.Room)
	if room == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}
	fields := models.JSONMap{
		"name":        room,
		"area":        models.InferArea(body.Block, ""),
		"subdivision": body.Subdivision,
		"createdAt":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := Docs.WriteFields(r.Context(), "rooms/"+room, fields); err != nil {
		config.Log.WithError(err).WithField("room", room).Error("room registration failed")
		http.Error(w, "failed to register room", http.StatusInternalServerError)
		return
	}
	recordActivity(r, "register_room", map[string]any{"room": room})
	writeJSON(w, http.StatusCreated, map[string]string{"room": room})
}
