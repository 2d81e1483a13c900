package models

import (
	"strings"
	"time"
)

// Role values carried by user documents. Admin has several historical
// spellings; IsAdminRole collapses them.
const (
	RoleStudent    = "student"
	RoleTechnician = "maintenance_technician"
	RoleStaff      = "staff"
)

// IsAdminRole reports whether a raw role value denotes an administrator.
func IsAdminRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "admin", "administrator", "super admin", "super_admin", "superadmin":
		return true
	}
	return false
}

// IsSuperAdminRole reports whether a raw role value denotes a super admin.
func IsSuperAdminRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "super admin", "super_admin", "superadmin":
		return true
	}
	return false
}

// DirectoryUser is the normalized directory row. Every facet is total:
// missing or unresolvable source values land on the "Unassigned"/"Unknown"
// sentinels instead of erroring.
type DirectoryUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`

	RoleLabel  string `json:"roleLabel"`
	BlockKey   string `json:"blockKey"`
	BlockLabel string `json:"blockLabel"`
	LaneLabel  string `json:"laneLabel"`
	RoomLabel  string `json:"roomLabel"`

	StudentID        string `json:"studentId"`
	Program          string `json:"program"`
	MaintenanceLabel string `json:"maintenanceLabel"`
	StaffRank        string `json:"staffRank"`
	LocationText     string `json:"locationText,omitempty"`

	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`

	Raw JSONMap `json:"-"`
}

func toTitle(value string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(value)))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// RoleLabelFor derives the display role label, folding in the technician
// specialty or staff rank: "Maintenance (Electrician)", "Staff (SCR)".
func RoleLabelFor(fields JSONMap) string {
	role := strings.ToLower(strings.TrimSpace(fields.FieldString("role")))
	switch {
	case role == RoleTechnician:
		if t := strings.TrimSpace(fields.FieldString("maintenanceType")); t != "" {
			return "Maintenance (" + toTitle(t) + ")"
		}
		return "Maintenance"
	case role == RoleStaff:
		if rank := strings.ToUpper(strings.TrimSpace(fields.FieldString("staffRank"))); rank != "" {
			return "Staff (" + rank + ")"
		}
		return "Staff"
	case role == RoleStudent:
		return "Student"
	case IsAdminRole(role):
		return "Admin"
	case role != "":
		return toTitle(role)
	}
	return "Unknown"
}

// NormalizeBlockLabel maps a block key to its display label; anything outside
// the closed vocabulary is Unassigned.
func NormalizeBlockLabel(key string) string {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "annex":
		return "Annex"
	case "east-wing":
		return "East Wing"
	case "west-wing":
		return "West Wing"
	case "bridge":
		return "Bridge"
	}
	return "Unassigned"
}

// InferBlockFromText finds a block key in free-form location text.
func InferBlockFromText(text string) string {
	value := strings.ToLower(strings.TrimSpace(text))
	switch {
	case value == "":
		return ""
	case strings.Contains(value, "annex"):
		return "annex"
	case strings.Contains(value, "east wing"):
		return "east-wing"
	case strings.Contains(value, "west wing"):
		return "west-wing"
	case strings.Contains(value, "bridge"):
		return "bridge"
	}
	return ""
}

// InferLaneFromText extracts a lane label from free-form location text.
func InferLaneFromText(text, blockKey string) string {
	value := strings.ToLower(strings.TrimSpace(text))
	if value == "" {
		return ""
	}
	if blockKey == "bridge" {
		if strings.Contains(value, "upper") {
			return "Upper Bridge"
		}
		if strings.Contains(value, "lower") {
			return "Lower Bridge"
		}
	}
	if strings.Contains(value, "ground floor") {
		return "Ground Floor"
	}
	if match := lanePattern.FindStringSubmatch(value); match != nil {
		return "Lane " + match[1]
	}
	return ""
}

// NormalizeLaneLabel maps a structured subdivision key to its display label.
func NormalizeLaneLabel(value, blockKey string) string {
	lane := strings.ToLower(strings.TrimSpace(value))
	if lane == "" {
		return ""
	}
	switch lane {
	case "ground-floor":
		return "Ground Floor"
	case "upper":
		return "Upper Bridge"
	case "lower":
		return "Lower Bridge"
	}
	if match := laneKeyPattern.FindStringSubmatch(lane); match != nil {
		return "Lane " + match[1]
	}
	if blockKey == "bridge" && (lane == "upper bridge" || lane == "lower bridge") {
		return toTitle(lane)
	}
	return toTitle(strings.ReplaceAll(lane, "-", " "))
}

// NormalizeUser builds a directory row from a raw user document. Block and
// lane resolution each walk an ordered strategy list: explicit structured
// field, explicit label field, free-text inference, then the sentinel.
func NormalizeUser(id string, fields JSONMap) DirectoryUser {
	locationText := fields.FieldString("locationText")

	blockKey := strings.ToLower(strings.TrimSpace(fields.FieldString("area")))
	if blockKey == "" {
		blockKey = InferBlockFromText(locationText)
	}
	blockLabel := NormalizeBlockLabel(blockKey)
	if blockKey == "" {
		blockKey = "unassigned"
	}

	laneLabel := NormalizeLaneLabel(fields.FieldString("subdivision"), blockKey)
	if laneLabel == "" {
		laneLabel = strings.TrimSpace(fields.FieldString("subdivisionLabel"))
	}
	if laneLabel == "" {
		laneLabel = InferLaneFromText(locationText, blockKey)
	}
	if laneLabel == "" {
		laneLabel = "Unassigned"
	}

	roomLabel := NormalizeRoomName(fields.FieldString("room"))
	if roomLabel == "" {
		roomLabel = "Unassigned"
	}

	name := fields.FieldString("name")
	if name == "" {
		name = "Unknown"
	}
	email := fields.FieldString("email")
	if email == "" {
		email = fields.FieldString("login")
	}
	if email == "" {
		email = "-"
	}
	studentID := fields.FieldString("studentId")
	if studentID == "" {
		studentID = fields.FieldString("idNumber")
	}
	if studentID == "" {
		studentID = "-"
	}
	maintenanceLabel := fields.FieldString("maintenanceLabel")
	if maintenanceLabel == "" {
		maintenanceLabel = fields.FieldString("maintenanceType")
	}

	return DirectoryUser{
		ID:               id,
		Name:             name,
		Email:            email,
		Role:             fields.FieldString("role"),
		RoleLabel:        RoleLabelFor(fields),
		BlockKey:         blockKey,
		BlockLabel:       blockLabel,
		LaneLabel:        laneLabel,
		RoomLabel:        roomLabel,
		StudentID:        studentID,
		Program:          fields.FieldString("program"),
		MaintenanceLabel: maintenanceLabel,
		StaffRank:        fields.FieldString("staffRank"),
		LocationText:     locationText,
		Approved:         fields.FieldBool("approved"),
		CreatedAt:        fields.FieldTime("createdAt"),
		Raw:              fields,
	}
}

// IsPendingApproval reports whether an account still needs admin approval.
// Approval is recorded as a boolean, legacy "true" text, or a status field.
func IsPendingApproval(fields JSONMap) bool {
	if fields.FieldBool("approved") {
		return false
	}
	status := strings.ToLower(strings.TrimSpace(fields.FieldString("status")))
	return status != "approved"
}

// ProgramOrTask is the directory's catch-all occupation column: a student's
// program, a technician's trade, or a staff rank.
func (u DirectoryUser) ProgramOrTask() string {
	switch {
	case u.Program != "":
		return u.Program
	case u.MaintenanceLabel != "":
		return u.MaintenanceLabel
	case u.StaffRank != "":
		return u.StaffRank
	}
	return "-"
}
