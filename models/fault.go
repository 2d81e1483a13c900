package models

import (
	"regexp"
	"strings"
	"time"
)

// FaultCategory is one reportable issue type. Icon is either a symbolic icon
// name ("bulb") or an image URL/path uploaded by an admin.
type FaultCategory struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Icon      string    `json:"icon"`
	IconPath  string    `json:"iconPath,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// DefaultFaults is the built-in catalog. It is always present; remotely
// configured categories overlay entries sharing the same id.
var DefaultFaults = []FaultCategory{
	{Label: "Faulty Bulb", Icon: "bulb"},
	{Label: "Faulty Fan", Icon: "fan"},
	{Label: "Faulty Fan Regulator", Icon: "regulator"},
	{Label: "Faulty Socket", Icon: "socket"},
	{Label: "Broken Bed", Icon: "bed"},
	{Label: "Broken Door Handle", Icon: "door-handle"},
	{Label: "Broken Louvers", Icon: "louvers"},
	{Label: "Broken Shelves", Icon: "shelves"},
	{Label: "Choke Drainage", Icon: "drainage"},
	{Label: "Door Lock Fault", Icon: "door-lock"},
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a catalog id from a label ("Faulty Bulb" -> "faulty-bulb").
func Slugify(value string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(value), "-")
	return strings.Trim(slug, "-")
}

// FaultFromDocument reads a remotely configured category. Older documents
// named the label field differently, so the lookup falls through
// label -> name -> title -> id.
func FaultFromDocument(id string, fields JSONMap) FaultCategory {
	label := fields.FieldString("label")
	if label == "" {
		label = fields.FieldString("name")
	}
	if label == "" {
		label = fields.FieldString("title")
	}
	if label == "" {
		label = id
	}
	if label == "" {
		label = "Unknown"
	}
	if id == "" {
		id = Slugify(label)
	}
	return FaultCategory{
		ID:        id,
		Label:     label,
		Icon:      fields.FieldString("icon"),
		IconPath:  fields.FieldString("iconPath"),
		UpdatedAt: fields.FieldTime("updatedAt"),
	}
}

// BuildFaultCatalog overlays remote categories onto the built-in defaults.
// Defaults keep their position; remote entries sharing a default's id merge
// into it, new ids append in arrival order. Missing icons fall back to
// "wrench".
func BuildFaultCatalog(remote []FaultCategory) []FaultCategory {
	order := make([]string, 0, len(DefaultFaults)+len(remote))
	byID := make(map[string]FaultCategory, len(DefaultFaults)+len(remote))

	for _, fault := range DefaultFaults {
		fault.ID = Slugify(fault.Label)
		order = append(order, fault.ID)
		byID[fault.ID] = fault
	}

	for _, fault := range remote {
		if fault.ID == "" {
			fault.ID = Slugify(fault.Label)
		}
		existing, ok := byID[fault.ID]
		if !ok {
			order = append(order, fault.ID)
			existing = FaultCategory{ID: fault.ID}
		}
		existing.Label = fault.Label
		if fault.Icon != "" {
			existing.Icon = fault.Icon
		}
		if fault.IconPath != "" {
			existing.IconPath = fault.IconPath
		}
		if !fault.UpdatedAt.IsZero() {
			existing.UpdatedAt = fault.UpdatedAt
		}
		byID[fault.ID] = existing
	}

	catalog := make([]FaultCategory, 0, len(order))
	for _, id := range order {
		fault := byID[id]
		if fault.Icon == "" {
			fault.Icon = "wrench"
		}
		catalog = append(catalog, fault)
	}
	return catalog
}

var imageIconPattern = regexp.MustCompile(`(?i)^(Images/|https?://|data:)`)

// IsImageIcon reports whether an icon value is an image reference rather
// than a symbolic icon name.
func IsImageIcon(icon string) bool {
	return imageIconPattern.MatchString(strings.TrimSpace(icon))
}

// TechnicianFaultTerms maps a maintenance specialty to the lowercase fault
// terms it covers. A report falls in a technician's scope when any of its
// fault tokens contains one of these terms.
var TechnicianFaultTerms = map[string][]string{
	"electrician": {
		"faulty bulb",
		"bulb",
		"faulty fan",
		"fan regulator",
		"regulator",
		"faulty socket",
		"socket",
	},
	"carpenter": {"broken shelves", "shelves", "door lock fault", "broken louvers", "broken bed"},
	"plumber":   {"drainage", "drainages", "choke drainage"},
}
