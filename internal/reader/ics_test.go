package reader

import "testing"

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:Planning\r\n" +
	"DTSTART;TZID=America/New_York:20240101T090000\r\n" +
	"DESCRIPTION:Quarterly bud\r\n" +
	" get review\r\n" +
	"LOCATION:HQ\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:Dangling\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS(t *testing.T) {
	events := parseICS(sampleICS)
	if len(events) != 1 {
		t.Fatalf("got %d events, want the unterminated block dropped", len(events))
	}

	ev := events[0]
	if ev["SUMMARY"] != "Planning" {
		t.Errorf("SUMMARY = %q", ev["SUMMARY"])
	}
	if ev["DTSTART"] != "20240101T090000" {
		t.Errorf("DTSTART = %q, want the TZID parameter stripped", ev["DTSTART"])
	}
	if ev["DESCRIPTION"] != "Quarterly budget review" {
		t.Errorf("DESCRIPTION = %q, want the folded line joined", ev["DESCRIPTION"])
	}
	if ev["LOCATION"] != "HQ" {
		t.Errorf("LOCATION = %q", ev["LOCATION"])
	}
}

func TestParseICSMultipleEvents(t *testing.T) {
	content := "BEGIN:VCALENDAR\n" +
		"BEGIN:VEVENT\nSUMMARY:One\nEND:VEVENT\n" +
		"BEGIN:VEVENT\nSUMMARY:Two\nEND:VEVENT\n" +
		"END:VCALENDAR\n"

	events := parseICS(content)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0]["SUMMARY"] != "One" || events[1]["SUMMARY"] != "Two" {
		t.Errorf("events = %v", events)
	}
}

func TestWalkICS(t *testing.T) {
	dir := t.TempDir()
	path := writeTree(t, dir, "cal.ics",
		"BEGIN:VCALENDAR\nBEGIN:VEVENT\nSUMMARY:One\nEND:VEVENT\nBEGIN:VEVENT\nSUMMARY:Two\nEND:VEVENT\nEND:VCALENDAR\n")
	writeTree(t, dir, "notes.txt", "not a calendar")

	var events []VEvent
	err := WalkICS(dir, func(ev VEvent) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkICS: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for i, ev := range events {
		if ev.Index != i {
			t.Errorf("event %d has Index %d", i, ev.Index)
		}
		if ev.Path != path {
			t.Errorf("event %d has Path %q, want %q", i, ev.Path, path)
		}
	}
}
