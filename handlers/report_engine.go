package handlers

import (
	"sort"
	"strings"
	"sync"
	"time"

	"p9e.in/hallfix/models"
	"p9e.in/hallfix/pkg/docstore"
)

// ReportStreamLimit bounds the collection-group subscription to the most
// recent records. A deliberate recency window: very old resolved reports
// fall out of view.
const ReportStreamLimit = 220

// ReportEngine owns the merged report cache and every aggregate derived from
// it. Two snapshot sources feed it: the legacy per-room subcollection stream
// and the flat collection-group stream. Each mutator replaces one side whole
// and re-merges. All getters recompute from the merged set on every call;
// datasets are a few hundred records, so full recomputation beats incremental
// bookkeeping bugs.
//
// Snapshot callbacks are the only writers; readers come from HTTP handlers,
// so access is guarded by a RWMutex.
type ReportEngine struct {
	mu      sync.RWMutex
	legacy  []models.Report
	current []models.Report
	merged  []models.Report
	catalog []models.FaultCategory
	lastErr error
}

// NewReportEngine starts with the built-in fault catalog and no reports.
func NewReportEngine() *ReportEngine {
	return &ReportEngine{catalog: models.BuildFaultCatalog(nil)}
}

func reportsFromSnapshot(snapshot docstore.Snapshot) []models.Report {
	rows := make([]models.Report, 0, len(snapshot))
	for _, doc := range snapshot {
		rows = append(rows, models.ReportFromDocument(doc.ID, doc.Path, doc.Fields))
	}
	return rows
}

// SetCurrentSnapshot replaces the collection-group side and re-merges.
func (e *ReportEngine) SetCurrentSnapshot(snapshot docstore.Snapshot) {
	e.mu.Lock()
	e.current = reportsFromSnapshot(snapshot)
	e.lastErr = nil
	e.remergeLocked()
	e.mu.Unlock()
}

// SetLegacySnapshot replaces the legacy subcollection side and re-merges.
func (e *ReportEngine) SetLegacySnapshot(snapshot docstore.Snapshot) {
	e.mu.Lock()
	e.legacy = reportsFromSnapshot(snapshot)
	e.remergeLocked()
	e.mu.Unlock()
}

// SetCatalog replaces the remotely configured categories; built-ins are
// always overlaid back in.
func (e *ReportEngine) SetCatalog(remote []models.FaultCategory) {
	e.mu.Lock()
	e.catalog = models.BuildFaultCatalog(remote)
	e.mu.Unlock()
}

// SetError records a terminal subscription failure so views can render a
// degraded state instead of a silent empty list.
func (e *ReportEngine) SetError(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}

// Err returns the recorded subscription failure, if any.
func (e *ReportEngine) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// remergeLocked unions the two sides into at-most-one record per store path.
// Legacy entries are written first so current-stream entries win on path
// collision. Sorted newest-first; records without a timestamp sort last,
// ties keep arrival order.
func (e *ReportEngine) remergeLocked() {
	merged := make(map[string]models.Report, len(e.legacy)+len(e.current))
	order := make([]string, 0, len(e.legacy)+len(e.current))
	for _, row := range e.legacy {
		if row.Path == "" {
			continue
		}
		if _, seen := merged[row.Path]; !seen {
			order = append(order, row.Path)
		}
		merged[row.Path] = row
	}
	for _, row := range e.current {
		if row.Path == "" {
			continue
		}
		if _, seen := merged[row.Path]; !seen {
			order = append(order, row.Path)
		}
		merged[row.Path] = row
	}

	rows := make([]models.Report, 0, len(order))
	for _, path := range order {
		rows = append(rows, merged[path])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].CreatedAt, rows[j].CreatedAt
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.After(b)
	})
	e.merged = rows
}

// Merged returns a copy of the merged, time-ordered report set.
func (e *ReportEngine) Merged() []models.Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Report, len(e.merged))
	copy(out, e.merged)
	return out
}

// Catalog returns the current fault catalog, defaults overlaid with remote
// categories.
func (e *ReportEngine) Catalog() []models.FaultCategory {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.FaultCategory, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// FaultByID looks up a catalog entry.
func (e *ReportEngine) FaultByID(faultID string) (models.FaultCategory, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fault := range e.catalog {
		if fault.ID == faultID {
			return fault, true
		}
	}
	return models.FaultCategory{}, false
}

// reportMatchesFault decides whether a report belongs to a fault category.
// Three tiers, in order, because the schema evolved: a direct faultId
// foreign key, then the normalized faultTypes array, then prefix matching on
// the free-text faults entries (which carry " - " sub-type suffixes). A
// later tier is only reached when the earlier field was entirely absent; a
// present-but-empty array consumes its tier.
func reportMatchesFault(report models.Report, faultID, faultLabel string) bool {
	if faultID == "" {
		return false
	}
	if report.FaultID != "" {
		return report.FaultID == faultID
	}
	if report.FaultTypes != nil {
		for _, label := range report.FaultTypes {
			if label == faultLabel {
				return true
			}
		}
		return false
	}
	if report.Faults != nil {
		if faultLabel == "" {
			return false
		}
		for _, fault := range report.Faults {
			if fault == faultLabel || strings.HasPrefix(fault, faultLabel) {
				return true
			}
		}
	}
	return false
}

// ReportsForFault filters the merged set to one category.
func (e *ReportEngine) ReportsForFault(faultID string) []models.Report {
	fault, ok := e.FaultByID(faultID)
	if !ok {
		return nil
	}
	return e.reportsMatching(faultID, fault.Label)
}

func (e *ReportEngine) reportsMatching(faultID, faultLabel string) []models.Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var rows []models.Report
	for _, report := range e.merged {
		if reportMatchesFault(report, faultID, faultLabel) {
			rows = append(rows, report)
		}
	}
	return rows
}

// OpenCountForFault counts open reports in one category, for badge rendering.
func (e *ReportEngine) OpenCountForFault(faultID string) int {
	count := 0
	for _, report := range e.ReportsForFault(faultID) {
		if report.Status == models.StatusOpen {
			count++
		}
	}
	return count
}

// RoomCountForFault counts distinct rooms reporting one category.
func (e *ReportEngine) RoomCountForFault(faultID string) int {
	rooms := make(map[string]struct{})
	for _, report := range e.ReportsForFault(faultID) {
		if report.Room != "" {
			rooms[report.Room] = struct{}{}
		}
	}
	return len(rooms)
}

// PrimaryFaultLabel names a report's headline complaint: first faults entry,
// first faultTypes entry, then the catalog label behind faultId.
func (e *ReportEngine) PrimaryFaultLabel(report models.Report) string {
	if len(report.Faults) > 0 {
		return report.Faults[0]
	}
	if len(report.FaultTypes) > 0 {
		return report.FaultTypes[0]
	}
	if report.FaultID != "" {
		if fault, ok := e.FaultByID(report.FaultID); ok {
			return fault.Label
		}
	}
	return "Unspecified fault"
}

// RoomRollup aggregates one room's reports within a fault or technician
// scope. Derived fresh on every call, never persisted.
type RoomRollup struct {
	Room       string          `json:"room"`
	Reports    int             `json:"reports"`
	Open       int             `json:"open"`
	Resolved   int             `json:"resolved"`
	LastReport *time.Time      `json:"lastReport,omitempty"`
	Rows       []models.Report `json:"rows,omitempty"`
}

// RoomRollupsForFault groups a category's reports by room, counts statuses,
// and tracks the newest report per room. Rooms sort lexicographically for
// stable rendering.
func (e *ReportEngine) RoomRollupsForFault(faultID string) []RoomRollup {
	return buildRoomRollups(e.ReportsForFault(faultID))
}

func buildRoomRollups(rows []models.Report) []RoomRollup {
	byRoom := make(map[string]*RoomRollup)
	for _, report := range rows {
		if report.Room == "" {
			continue
		}
		entry, ok := byRoom[report.Room]
		if !ok {
			entry = &RoomRollup{Room: report.Room}
			byRoom[report.Room] = entry
		}
		entry.Reports++
		switch report.Status {
		case models.StatusResolved:
			entry.Resolved++
		case models.StatusOpen:
			entry.Open++
		}
		entry.Rows = append(entry.Rows, report)
		if !report.CreatedAt.IsZero() && (entry.LastReport == nil || report.CreatedAt.After(*entry.LastReport)) {
			t := report.CreatedAt
			entry.LastReport = &t
		}
	}

	out := make([]RoomRollup, 0, len(byRoom))
	for _, entry := range byRoom {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out
}

// DayCount is one bucket of the 7-day submission histogram.
type DayCount struct {
	Day   string `json:"day"` // yyyy-mm-dd, local day boundary
	Count int    `json:"count"`
}

// FaultAnalytics is the per-category summary panel.
type FaultAnalytics struct {
	Total          int        `json:"total"`
	Open           int        `json:"open"`
	Resolved       int        `json:"resolved"`
	MostFaultyRoom []any      `json:"mostFaultyRoom"` // [room, count] or nil
	ResolutionRate float64    `json:"resolutionRate"`
	OpenRate       float64    `json:"openRate"`
	AvgPerDay      float64    `json:"avgPerDay"`
	Daily          []DayCount `json:"daily"`
}

// ComputeAnalytics derives the summary for a report subset. AvgPerDay keeps
// its historical fixed 7-day divisor regardless of the set's actual date
// range. The histogram always spans exactly the last 7 local calendar days
// ending at now, oldest first.
func ComputeAnalytics(rows []models.Report, now time.Time) FaultAnalytics {
	a := FaultAnalytics{Total: len(rows)}

	roomCounts := make(map[string]int)
	roomOrder := make([]string, 0)
	for _, report := range rows {
		if report.Status == models.StatusResolved {
			a.Resolved++
		}
		if report.Room != "" {
			if _, seen := roomCounts[report.Room]; !seen {
				roomOrder = append(roomOrder, report.Room)
			}
			roomCounts[report.Room]++
		}
	}
	a.Open = a.Total - a.Resolved

	var topRoom string
	topCount := 0
	for _, room := range roomOrder {
		if roomCounts[room] > topCount {
			topRoom, topCount = room, roomCounts[room]
		}
	}
	if topCount > 0 {
		a.MostFaultyRoom = []any{topRoom, topCount}
	}

	if a.Total > 0 {
		a.ResolutionRate = float64(a.Resolved) / float64(a.Total)
		a.OpenRate = float64(a.Open) / float64(a.Total)
	}
	a.AvgPerDay = float64(a.Total) / 7

	a.Daily = make([]DayCount, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		count := 0
		for _, report := range rows {
			if !report.CreatedAt.IsZero() && report.CreatedAt.In(now.Location()).Format("2006-01-02") == day {
				count++
			}
		}
		a.Daily = append(a.Daily, DayCount{Day: day, Count: count})
	}
	return a
}

// RankingEntry is one row of a hall-wide top-10 table.
type RankingEntry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// HallStats ranks every room and fault item across the whole merged set,
// independent of any fault selection.
type HallStats struct {
	TotalReports int            `json:"totalReports"`
	RoomRanking  []RankingEntry `json:"roomRanking"`
	FaultRanking []RankingEntry `json:"faultRanking"`
}

// HallStats counts all reports per room and per normalized fault item (the
// first " - " segment of each fault entry, or the report's primary label
// when faults is empty). Top 10 each, ties kept in first-encountered order.
func (e *ReportEngine) HallStats() HallStats {
	rows := e.Merged()

	roomCounter := newCounter()
	itemCounter := newCounter()
	for _, report := range rows {
		room := strings.TrimSpace(report.Room)
		if room == "" {
			room = "Unknown room"
		}
		roomCounter.add(room)

		if len(report.Faults) > 0 {
			for _, fault := range report.Faults {
				itemCounter.add(models.NormalizeFaultItem(fault))
			}
		} else {
			itemCounter.add(models.NormalizeFaultItem(e.PrimaryFaultLabel(report)))
		}
	}

	return HallStats{
		TotalReports: len(rows),
		RoomRanking:  roomCounter.top(10),
		FaultRanking: itemCounter.top(10),
	}
}

// counter keeps first-encountered insertion order so equal counts rank
// deterministically.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) top(n int) []RankingEntry {
	out := make([]RankingEntry, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, RankingEntry{Label: key, Count: c.counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// faultTokens lowercases and splits a report's fault entries on the " - "
// separator for technician term matching.
func faultTokens(report models.Report) []string {
	var raw []string
	raw = append(raw, report.Faults...)
	raw = append(raw, report.FaultTypes...)

	var tokens []string
	for _, item := range raw {
		for _, part := range strings.Split(strings.ToLower(item), " - ") {
			if part = strings.TrimSpace(part); part != "" {
				tokens = append(tokens, part)
			}
		}
	}
	return tokens
}

// reportMatchesTechnician scopes a report to a maintenance specialty.
func reportMatchesTechnician(report models.Report, specialty string) bool {
	terms := models.TechnicianFaultTerms[specialty]
	if len(terms) == 0 {
		return false
	}
	for _, token := range faultTokens(report) {
		for _, term := range terms {
			if strings.Contains(token, term) {
				return true
			}
		}
	}
	return false
}

// TechnicianReports filters the merged set to a specialty's scope.
func (e *ReportEngine) TechnicianReports(specialty string) []models.Report {
	specialty = strings.ToLower(strings.TrimSpace(specialty))
	var rows []models.Report
	for _, report := range e.Merged() {
		if reportMatchesTechnician(report, specialty) {
			rows = append(rows, report)
		}
	}
	return rows
}

// TechnicianOpenReports filters a specialty's scope to open reports,
// optionally narrowed to a block/subdivision/room.
func (e *ReportEngine) TechnicianOpenReports(specialty, blockKey, subdivisionKey, room string) []models.Report {
	var rows []models.Report
	for _, report := range e.TechnicianReports(specialty) {
		if report.Status != models.StatusOpen {
			continue
		}
		if blockKey != "" && report.Area != blockKey {
			continue
		}
		if subdivisionKey != "" && report.Subdivision != subdivisionKey {
			continue
		}
		if room != "" && report.Room != room {
			continue
		}
		rows = append(rows, report)
	}
	return rows
}
