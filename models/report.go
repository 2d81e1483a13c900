package models

import (
	"strings"
	"time"
)

// ReportStatus is the canonical two-value status domain. The store carries
// legacy raw values ("pending", "done", missing field); every read boundary
// must pass through NormalizeStatus before branching on status.
type ReportStatus string

const (
	StatusOpen     ReportStatus = "open"
	StatusResolved ReportStatus = "resolved"
)

// NormalizeStatus canonicalizes a raw stored status. "resolved" and "done"
// map to resolved; everything else, including the empty string, maps to open.
func NormalizeStatus(raw string) ReportStatus {
	if raw == "resolved" || raw == "done" {
		return StatusResolved
	}
	return StatusOpen
}

// StudentRef is the student snapshot embedded in a report at submission time.
// It is never re-synced to later profile edits.
type StudentRef struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	ID    string `json:"id"`
	Login string `json:"login"`
}

// Report is the canonical in-memory shape of one complaint record. All
// legacy schema variance (three image field names, two fault-list fields,
// assorted timestamp encodings) is resolved once, here, at ingestion.
//
// Faults and FaultTypes keep the absent-vs-empty distinction from the raw
// record: a nil slice means the field did not exist, a non-nil empty slice
// means it existed and was empty. Fault matching depends on it.
type Report struct {
	ID   string `json:"id"`
	Path string `json:"path"` // unique store locator, dedup key

	Room       string   `json:"room"`
	Faults     []string `json:"faults"`
	FaultTypes []string `json:"faultTypes"`
	FaultID    string   `json:"faultId,omitempty"`

	Status ReportStatus `json:"status"`

	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	ReopenedAt *time.Time `json:"reopenedAt,omitempty"`
	ResolvedBy string     `json:"resolvedBy,omitempty"`
	ReopenedBy string     `json:"reopenedBy,omitempty"`

	Student StudentRef `json:"student"`
	Images  []string   `json:"images,omitempty"`

	Area         string `json:"area,omitempty"`
	Subdivision  string `json:"subdivision,omitempty"`
	LocationText string `json:"locationText,omitempty"`
}

// Key identifies a report for dedup and notification read tracking.
func (r Report) Key() string {
	if r.Path != "" {
		return r.Path
	}
	return r.ID
}

// ReportFromDocument builds the canonical record from a raw store document.
func ReportFromDocument(id, path string, fields JSONMap) Report {
	r := Report{
		ID:           id,
		Path:         path,
		Room:         fields.FieldString("room"),
		Faults:       fields.FieldStrings("faults"),
		FaultTypes:   fields.FieldStrings("faultTypes"),
		FaultID:      fields.FieldString("faultId"),
		Status:       NormalizeStatus(fields.FieldString("status")),
		CreatedAt:    reportDate(fields),
		ResolvedBy:   fields.FieldString("resolvedBy"),
		ReopenedBy:   fields.FieldString("reopenedBy"),
		LocationText: fields.FieldString("locationText"),
		Images:       reportImages(fields),
	}
	if t := fields.FieldTime("resolvedAt"); !t.IsZero() {
		r.ResolvedAt = &t
	}
	if t := fields.FieldTime("reopenedAt"); !t.IsZero() {
		r.ReopenedAt = &t
	}
	if student := fields.FieldMap("student"); student != nil {
		r.Student = StudentRef{
			UID:   student.FieldString("uid"),
			Name:  student.FieldString("name"),
			ID:    student.FieldString("id"),
			Login: student.FieldString("login"),
		}
	}
	r.Area = InferArea(fields.FieldString("area"), r.LocationText)
	r.Subdivision = InferSubdivision(fields.FieldString("subdivision"), r.LocationText, r.Area)
	return r
}

// reportDate prefers the server-assigned createdAt; very old records only
// carry a free-text "date" field.
func reportDate(fields JSONMap) time.Time {
	if t := fields.FieldTime("createdAt"); !t.IsZero() {
		return t
	}
	if raw := fields.FieldString("date"); raw != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02", "1/2/2006"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// reportImages resolves the three legacy image encodings, in fixed
// precedence order: imageUrls, then images, then a single imageUrl.
func reportImages(fields JSONMap) []string {
	for _, key := range []string{"imageUrls", "images"} {
		if urls := fields.FieldStrings(key); urls != nil {
			out := make([]string, 0, len(urls))
			for _, url := range urls {
				if strings.TrimSpace(url) != "" {
					out = append(out, url)
				}
			}
			return out
		}
	}
	if url := fields.FieldString("imageUrl"); strings.TrimSpace(url) != "" {
		return []string{url}
	}
	return nil
}

// NormalizeFaultItem reduces a fault entry to its top-level label by cutting
// the " - " sub-type suffix ("Faulty Socket - Type A" -> "Faulty Socket").
func NormalizeFaultItem(value string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return "Unspecified fault"
	}
	head, _, _ := strings.Cut(text, " - ")
	if head = strings.TrimSpace(head); head != "" {
		return head
	}
	return text
}
