package models

import (
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"spaces become hyphens", "Faulty Bulb", "faulty-bulb"},
		{"punctuation collapses", "Door  Lock / Fault!", "door-lock-fault"},
		{"leading trailing trimmed", " Broken Bed ", "broken-bed"},
		{"already a slug", "choke-drainage", "choke-drainage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.raw); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, expected %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestFaultFromDocumentLabelFallback(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		fields   JSONMap
		expected string
	}{
		{"label preferred", "x", JSONMap{"label": "A", "name": "B", "title": "C"}, "A"},
		{"name second", "x", JSONMap{"name": "B", "title": "C"}, "B"},
		{"title third", "x", JSONMap{"title": "C"}, "C"},
		{"id fourth", "leaky-tap", JSONMap{}, "leaky-tap"},
		{"unknown last", "", JSONMap{}, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FaultFromDocument(tt.id, tt.fields).Label; got != tt.expected {
				t.Errorf("Label = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestBuildFaultCatalogDefaultsOnly(t *testing.T) {
	catalog := BuildFaultCatalog(nil)
	if len(catalog) != len(DefaultFaults) {
		t.Fatalf("catalog size = %d, expected %d", len(catalog), len(DefaultFaults))
	}
	if catalog[0].ID != "faulty-bulb" || catalog[0].Icon != "bulb" {
		t.Errorf("first entry = %+v", catalog[0])
	}
}

func TestBuildFaultCatalogOverlay(t *testing.T) {
	remote := []FaultCategory{
		{ID: "faulty-bulb", Label: "Faulty Bulb", Icon: "Images/bulb.png", UpdatedAt: time.Now()},
		{Label: "Leaky Tap"},
	}
	catalog := BuildFaultCatalog(remote)

	if len(catalog) != len(DefaultFaults)+1 {
		t.Fatalf("catalog size = %d, expected %d", len(catalog), len(DefaultFaults)+1)
	}
	// Overridden default keeps its leading position.
	if catalog[0].ID != "faulty-bulb" || catalog[0].Icon != "Images/bulb.png" {
		t.Errorf("overlaid entry = %+v", catalog[0])
	}
	// New category appends with the icon fallback.
	last := catalog[len(catalog)-1]
	if last.ID != "leaky-tap" || last.Label != "Leaky Tap" || last.Icon != "wrench" {
		t.Errorf("appended entry = %+v", last)
	}
}

func TestIsImageIcon(t *testing.T) {
	tests := []struct {
		icon     string
		expected bool
	}{
		{"bulb", false},
		{"wrench", false},
		{"Images/bulb.png", true},
		{"https://example.com/i.png", true},
		{"http://example.com/i.png", true},
		{"data:image/png;base64,AAAA", true},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsImageIcon(tt.icon); got != tt.expected {
			t.Errorf("IsImageIcon(%q) = %v, expected %v", tt.icon, got, tt.expected)
		}
	}
}
