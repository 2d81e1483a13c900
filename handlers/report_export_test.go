package handlers

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"p9e.in/hallfix/models"
)

func TestUsersCSVByteContract(t *testing.T) {
	rows := []models.DirectoryUser{
		{
			Name:       `Ada "The Fixer", Jr.`,
			Email:      "ada@example.com",
			StudentID:  "S123",
			RoleLabel:  "Student",
			BlockLabel: "Annex",
			LaneLabel:  "Lane 3",
			RoomLabel:  "Room 30",
			Program:    "Physics",
			Approved:   true,
			CreatedAt:  time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC),
		},
	}

	got := string(UsersCSV(rows))
	want := `"Name","Email","ID","Role","Block","Lane","Room","Program_or_Task","Approved","CreatedAt"` + "\n" +
		`"Ada ""The Fixer"", Jr.","ada@example.com","S123","Student","Annex","Lane 3","Room 30","Physics","true","2026-05-01T10:30:00.000Z"`

	if got != want {
		t.Errorf("CSV mismatch:\n got: %s\nwant: %s", got, want)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("CSV must not end with a trailing newline")
	}
}

func TestUsersCSVRoundTripsThroughStandardReader(t *testing.T) {
	name := `Comma, and "quote"`
	rows := []models.DirectoryUser{{Name: name, Email: "x@y.z"}}

	records, err := csv.NewReader(strings.NewReader(string(UsersCSV(rows)))).ReadAll()
	if err != nil {
		t.Fatalf("standard reader rejected output: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, expected header + 1 row", len(records))
	}
	if records[1][0] != name {
		t.Errorf("recovered name = %q, expected %q", records[1][0], name)
	}
}

func TestUsersCSVEmptyFields(t *testing.T) {
	got := string(UsersCSV([]models.DirectoryUser{{}}))
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	// Zero CreatedAt serializes as an empty cell, unapproved as "false".
	if !strings.HasSuffix(lines[1], `"false",""`) {
		t.Errorf("row tail = %q", lines[1])
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("Faulty Bulb / Desk"); got != "Faulty_Bulb___Desk" {
		t.Errorf("sanitizeFilename = %q", got)
	}
}
