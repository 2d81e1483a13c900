package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Subdivision is one lane/floor inside a block.
type Subdivision struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Block is one wing of the hostel with its fixed subdivisions.
type Block struct {
	Key          string        `json:"key"`
	Label        string        `json:"label"`
	Subdivisions []Subdivision `json:"subdivisions"`
}

func lanes(n int) []Subdivision {
	rows := make([]Subdivision, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, Subdivision{Key: fmt.Sprintf("lane-%d", i), Label: fmt.Sprintf("Lane %d", i)})
	}
	return rows
}

// LocationStructure is the closed three-level hall hierarchy. Order matters
// for rendering, so it is a slice rather than a map.
var LocationStructure = []Block{
	{Key: "annex", Label: "Annex", Subdivisions: append([]Subdivision{{Key: "ground-floor", Label: "Ground Floor"}}, lanes(8)...)},
	{Key: "east-wing", Label: "East Wings", Subdivisions: lanes(3)},
	{Key: "west-wing", Label: "West Wings", Subdivisions: lanes(3)},
	{Key: "bridge", Label: "Bridge", Subdivisions: []Subdivision{{Key: "upper", Label: "Upper Bridge"}, {Key: "lower", Label: "Lower Bridge"}}},
}

// BlockByKey returns the block config for a key, or nil.
func BlockByKey(key string) *Block {
	for i := range LocationStructure {
		if LocationStructure[i].Key == key {
			return &LocationStructure[i]
		}
	}
	return nil
}

func (b *Block) subdivision(key string) *Subdivision {
	if b == nil {
		return nil
	}
	for i := range b.Subdivisions {
		if b.Subdivisions[i].Key == key {
			return &b.Subdivisions[i]
		}
	}
	return nil
}

// SubdivisionLabel resolves a (block, subdivision) key pair to its label.
func SubdivisionLabel(blockKey, subdivisionKey string) string {
	if sub := BlockByKey(blockKey).subdivision(subdivisionKey); sub != nil {
		return sub.Label
	}
	return ""
}

var lanePattern = regexp.MustCompile(`lane\s*(\d+)`)
var laneKeyPattern = regexp.MustCompile(`^lane-(\d+)$`)

// ParseLaneNumber extracts N from a "lane-N" subdivision key; 0 when the key
// is not a lane.
func ParseLaneNumber(subdivisionKey string) int {
	match := laneKeyPattern.FindStringSubmatch(subdivisionKey)
	if match == nil {
		return 0
	}
	var n int
	fmt.Sscanf(match[1], "%d", &n)
	return n
}

func buildRoomRange(start, end int) []string {
	rows := make([]string, 0, end-start+1)
	for value := start; value <= end; value++ {
		rows = append(rows, fmt.Sprintf("Room %d", value))
	}
	return rows
}

// RoomsForLocation lists the room labels configured for a block subdivision.
func RoomsForLocation(blockKey, subdivisionKey string) []string {
	if blockKey == "" || subdivisionKey == "" {
		return nil
	}

	if blockKey == "annex" {
		if subdivisionKey == "ground-floor" {
			return buildRoomRange(1, 12)
		}
		if lane := ParseLaneNumber(subdivisionKey); lane >= 1 && lane <= 8 {
			start := (lane-1)*12 + 1
			return buildRoomRange(start, start+11)
		}
	}

	if blockKey == "east-wing" || blockKey == "west-wing" {
		if lane := ParseLaneNumber(subdivisionKey); lane >= 1 && lane <= 3 {
			return buildRoomRange(1, 32)
		}
	}

	if blockKey == "bridge" && (subdivisionKey == "upper" || subdivisionKey == "lower") {
		return buildRoomRange(1, 24)
	}

	return nil
}

// InferArea resolves a report's block: explicit field when valid, then
// free-text keywords, defaulting to annex.
func InferArea(explicit, locationText string) string {
	key := strings.ToLower(strings.TrimSpace(explicit))
	if BlockByKey(key) != nil {
		return key
	}
	text := strings.ToLower(strings.TrimSpace(locationText))
	switch {
	case strings.Contains(text, "annex"):
		return "annex"
	case strings.Contains(text, "east wing"):
		return "east-wing"
	case strings.Contains(text, "west wing"):
		return "west-wing"
	case strings.Contains(text, "bridge"):
		return "bridge"
	}
	return "annex"
}

// InferSubdivision resolves a report's lane/floor within a block: explicit
// field when it names a configured subdivision, then free-text inference,
// falling back to the block's first subdivision.
func InferSubdivision(explicit, locationText, blockKey string) string {
	block := BlockByKey(blockKey)
	if block == nil {
		return ""
	}

	key := strings.ToLower(strings.TrimSpace(explicit))
	if block.subdivision(key) != nil {
		return key
	}

	text := strings.ToLower(strings.TrimSpace(locationText))
	if blockKey == "bridge" {
		if strings.Contains(text, "upper") {
			return "upper"
		}
		if strings.Contains(text, "lower") {
			return "lower"
		}
	}
	if match := lanePattern.FindStringSubmatch(text); match != nil {
		laneKey := "lane-" + match[1]
		if block.subdivision(laneKey) != nil {
			return laneKey
		}
	}
	if blockKey == "annex" && strings.Contains(text, "ground") {
		return "ground-floor"
	}

	if len(block.Subdivisions) > 0 {
		return block.Subdivisions[0].Key
	}
	return ""
}

var roomPrefixPattern = regexp.MustCompile(`(?i)^room[\s:-]*`)

// NormalizeRoomName canonicalizes free-form room input to the "Room N" form
// used everywhere else ("room 12", "Room-12", "12" all become "Room 12").
func NormalizeRoomName(value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}
	rest := strings.TrimSpace(roomPrefixPattern.ReplaceAllString(raw, ""))
	if rest == "" {
		return ""
	}
	return "Room " + strings.ToUpper(rest)
}
