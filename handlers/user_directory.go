package handlers

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"p9e.in/hallfix/models"
	"p9e.in/hallfix/pkg/docstore"
)

// DirectoryCache holds the normalized user directory. Like the report
// engine it is snapshot-replaced whole and queried with full scans; the
// directory is a few hundred rows.
type DirectoryCache struct {
	mu      sync.RWMutex
	users   []models.DirectoryUser
	lastErr error
}

func NewDirectoryCache() *DirectoryCache {
	return &DirectoryCache{}
}

// SetSnapshot normalizes every user document and replaces the cache.
func (d *DirectoryCache) SetSnapshot(snap docstore.Snapshot) {
	users := make([]models.DirectoryUser, 0, len(snap))
	for _, doc := range snap {
		users = append(users, models.NormalizeUser(doc.ID, doc.Fields))
	}
	d.mu.Lock()
	d.users = users
	d.lastErr = nil
	d.mu.Unlock()
}

func (d *DirectoryCache) SetError(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}

func (d *DirectoryCache) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// Users returns a copy of the normalized directory.
func (d *DirectoryCache) Users() []models.DirectoryUser {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.DirectoryUser, len(d.users))
	copy(out, d.users)
	return out
}

// UserByID looks one row up.
func (d *DirectoryCache) UserByID(id string) (models.DirectoryUser, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.DirectoryUser{}, false
}

// DirectoryFilter selects directory rows. Empty fields match everything;
// Approval is either "pending" or "approved", anything else matches both.
type DirectoryFilter struct {
	RoleLabel string
	BlockKey  string
	LaneLabel string
	RoomLabel string
	Search    string
	Approval  string
}

func (f DirectoryFilter) matches(u models.DirectoryUser) bool {
	if f.RoleLabel != "" && u.RoleLabel != f.RoleLabel {
		return false
	}
	if f.BlockKey != "" && u.BlockKey != f.BlockKey {
		return false
	}
	if f.LaneLabel != "" && u.LaneLabel != f.LaneLabel {
		return false
	}
	if f.RoomLabel != "" && u.RoomLabel != f.RoomLabel {
		return false
	}
	if f.Approval == "pending" && u.Approved {
		return false
	}
	if f.Approval == "approved" && !u.Approved {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hay := strings.ToLower(strings.Join([]string{
			u.Name, u.Email, u.StudentID,
			u.RoleLabel, u.BlockLabel, u.LaneLabel, u.RoomLabel,
		}, " "))
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}

// directoryFilterFromQuery binds the shared query-string filter parameters
// used by the listing, grouping and export endpoints.
func directoryFilterFromQuery(q url.Values) DirectoryFilter {
	return DirectoryFilter{
		RoleLabel: q.Get("role"),
		BlockKey:  q.Get("block"),
		LaneLabel: q.Get("lane"),
		RoomLabel: q.Get("room"),
		Search:    q.Get("search"),
		Approval:  q.Get("approval"),
	}
}

// Filter returns the rows matching a filter, sorted by name then id so the
// listing is stable across snapshots.
func (d *DirectoryCache) Filter(f DirectoryFilter) []models.DirectoryUser {
	var out []models.DirectoryUser
	for _, u := range d.Users() {
		if f.matches(u) {
			out = append(out, u)
		}
	}
	c := newDisplayCollator()
	sort.Slice(out, func(i, j int) bool {
		if by := c.CompareString(out[i].Name, out[j].Name); by != 0 {
			return by < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// newDisplayCollator orders display strings the way a user-facing list
// reads, so accented names file next to their unaccented spellings. A
// fresh collator per sort: the collate iterators are not safe to share
// between goroutines.
func newDisplayCollator() *collate.Collator {
	return collate.New(language.Und)
}

// SortUsers reorders a directory listing. Modes: name (default), newest,
// oldest, role.
func SortUsers(rows []models.DirectoryUser, mode string) []models.DirectoryUser {
	out := make([]models.DirectoryUser, len(rows))
	copy(out, rows)
	c := newDisplayCollator()
	switch mode {
	case "newest":
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	case "oldest":
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	case "role":
		sort.SliceStable(out, func(i, j int) bool {
			if by := c.CompareString(out[i].RoleLabel, out[j].RoleLabel); by != 0 {
				return by < 0
			}
			return c.CompareString(out[i].Name, out[j].Name) < 0
		})
	default:
		sort.SliceStable(out, func(i, j int) bool { return c.CompareString(out[i].Name, out[j].Name) < 0 })
	}
	return out
}

// FacetCounts is the sidebar summary: how many rows carry each value of a
// facet. Sentinel values ("Unassigned", "Unknown") count like any other.
func (d *DirectoryCache) FacetCounts(facet string) map[string]int {
	counts := make(map[string]int)
	for _, u := range d.Users() {
		switch facet {
		case "role":
			counts[u.RoleLabel]++
		case "block":
			counts[u.BlockLabel]++
		case "lane":
			counts[u.LaneLabel]++
		case "program":
			counts[u.ProgramOrTask()]++
		}
	}
	return counts
}

// UserGroup is one bucket of a grouped directory view.
type UserGroup struct {
	Label string                 `json:"label"`
	Users []models.DirectoryUser `json:"users"`
}

// GroupUsers partitions rows by one facet's display label. Group labels
// sort lexicographically; members within each group follow the active
// sort mode. An unknown facet lands everything in "Ungrouped".
func GroupUsers(rows []models.DirectoryUser, facet, sortMode string) []UserGroup {
	byLabel := make(map[string][]models.DirectoryUser)
	for _, u := range rows {
		label := "Ungrouped"
		switch facet {
		case "role":
			label = u.RoleLabel
		case "block":
			label = u.BlockLabel
		case "lane":
			label = u.LaneLabel
		case "room":
			label = u.RoomLabel
		}
		byLabel[label] = append(byLabel[label], u)
	}

	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	c := newDisplayCollator()
	sort.Slice(labels, func(i, j int) bool { return c.CompareString(labels[i], labels[j]) < 0 })

	groups := make([]UserGroup, 0, len(labels))
	for _, label := range labels {
		groups = append(groups, UserGroup{Label: label, Users: SortUsers(byLabel[label], sortMode)})
	}
	return groups
}

// GetUsers lists the directory with optional query-string filters.
func GetUsers(w http.ResponseWriter, r *http.Request) {
	if err := Directory.Err(); err != nil {
		http.Error(w, "user directory unavailable", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	rows := Directory.Filter(directoryFilterFromQuery(q))
	writeJSON(w, http.StatusOK, SortUsers(rows, q.Get("sort")))
}

// GetUserFacets returns the counts behind one facet sidebar.
func GetUserFacets(w http.ResponseWriter, r *http.Request) {
	facet := r.URL.Query().Get("facet")
	switch facet {
	case "role", "block", "lane", "program":
	default:
		http.Error(w, "unknown facet", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, Directory.FacetCounts(facet))
}

// GetUsersGrouped returns the filtered directory partitioned by a chosen
// facet, defaulting to role.
func GetUsersGrouped(w http.ResponseWriter, r *http.Request) {
	if err := Directory.Err(); err != nil {
		http.Error(w, "user directory unavailable", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	facet := q.Get("by")
	if facet == "" {
		facet = "role"
	}
	switch facet {
	case "role", "block", "lane", "room":
	default:
		http.Error(w, "unknown group facet", http.StatusBadRequest)
		return
	}
	rows := Directory.Filter(directoryFilterFromQuery(q))
	writeJSON(w, http.StatusOK, GroupUsers(rows, facet, q.Get("sort")))
}
