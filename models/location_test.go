package models

import "testing"

func TestRoomsForLocation(t *testing.T) {
	tests := []struct {
		name        string
		block       string
		subdivision string
		count       int
		first       string
		last        string
	}{
		{"annex ground floor", "annex", "ground-floor", 12, "Room 1", "Room 12"},
		{"annex lane 1", "annex", "lane-1", 12, "Room 1", "Room 12"},
		{"annex lane 5 offset", "annex", "lane-5", 12, "Room 49", "Room 60"},
		{"annex lane 8 offset", "annex", "lane-8", 12, "Room 85", "Room 96"},
		{"east wing lane", "east-wing", "lane-2", 32, "Room 1", "Room 32"},
		{"west wing lane", "west-wing", "lane-3", 32, "Room 1", "Room 32"},
		{"upper bridge", "bridge", "upper", 24, "Room 1", "Room 24"},
		{"lower bridge", "bridge", "lower", 24, "Room 1", "Room 24"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms := RoomsForLocation(tt.block, tt.subdivision)
			if len(rooms) != tt.count {
				t.Fatalf("len = %d, expected %d", len(rooms), tt.count)
			}
			if rooms[0] != tt.first || rooms[len(rooms)-1] != tt.last {
				t.Errorf("range = [%s .. %s], expected [%s .. %s]",
					rooms[0], rooms[len(rooms)-1], tt.first, tt.last)
			}
		})
	}

	for _, bad := range [][2]string{
		{"annex", "lane-9"},
		{"east-wing", "lane-4"},
		{"bridge", "lane-1"},
		{"", "lane-1"},
		{"annex", ""},
		{"atlantis", "lane-1"},
	} {
		if rooms := RoomsForLocation(bad[0], bad[1]); rooms != nil {
			t.Errorf("RoomsForLocation(%q, %q) = %v, expected nil", bad[0], bad[1], rooms)
		}
	}
}

func TestInferArea(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		text     string
		expected string
	}{
		{"explicit valid block", "bridge", "", "bridge"},
		{"explicit trumps text", "west-wing", "somewhere in the annex", "west-wing"},
		{"invalid explicit falls to text", "moon", "East Wing lane 1", "east-wing"},
		{"text only", "", "Upper Bridge room 3", "bridge"},
		{"nothing defaults to annex", "", "", "annex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferArea(tt.explicit, tt.text); got != tt.expected {
				t.Errorf("InferArea(%q, %q) = %q, expected %q", tt.explicit, tt.text, got, tt.expected)
			}
		})
	}
}

func TestInferSubdivision(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		text     string
		block    string
		expected string
	}{
		{"explicit configured key", "lane-4", "", "annex", "lane-4"},
		{"explicit foreign key ignored", "lane-9", "lane 2", "annex", "lane-2"},
		{"bridge upper from text", "", "upper bridge, room 5", "bridge", "upper"},
		{"bridge lower from text", "", "Lower Bridge", "bridge", "lower"},
		{"ground floor from text", "", "annex ground floor", "annex", "ground-floor"},
		{"falls to first subdivision", "", "", "east-wing", "lane-1"},
		{"annex default is ground floor", "", "", "annex", "ground-floor"},
		{"unknown block", "", "", "atlantis", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferSubdivision(tt.explicit, tt.text, tt.block); got != tt.expected {
				t.Errorf("InferSubdivision(%q, %q, %q) = %q, expected %q",
					tt.explicit, tt.text, tt.block, got, tt.expected)
			}
		})
	}
}

func TestNormalizeRoomName(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"room 12", "Room 12"},
		{"Room-12", "Room 12"},
		{"ROOM: 12", "Room 12"},
		{"12", "Room 12"},
		{"room 12b", "Room 12B"},
		{"  Room 7  ", "Room 7"},
		{"", ""},
		{"room", ""},
	}

	for _, tt := range tests {
		if got := NormalizeRoomName(tt.raw); got != tt.expected {
			t.Errorf("NormalizeRoomName(%q) = %q, expected %q", tt.raw, got, tt.expected)
		}
	}
}

func TestSubdivisionLabel(t *testing.T) {
	if got := SubdivisionLabel("bridge", "upper"); got != "Upper Bridge" {
		t.Errorf("SubdivisionLabel = %q", got)
	}
	if got := SubdivisionLabel("annex", "lane-3"); got != "Lane 3" {
		t.Errorf("SubdivisionLabel = %q", got)
	}
	if got := SubdivisionLabel("nope", "lane-3"); got != "" {
		t.Errorf("SubdivisionLabel = %q, expected empty", got)
	}
}
