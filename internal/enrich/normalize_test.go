package enrich

import (
	"encoding/json"
	"reflect"
	"testing"

	"voyage/internal/domain"
)

func TestDecodeDay_ListShape(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`["Colosseum", {"title": "Roman Forum", "address": "Via della Salara Vecchia 5/6"}]`)
	payload := DecodeDay(raw)

	if payload.Shape != domain.DayShapeList {
		t.Fatalf("expected list shape, got %v", payload.Shape)
	}
	if len(payload.Activities) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(payload.Activities))
	}
	if payload.Activities[0].DisplayName() != "Colosseum" {
		t.Errorf("unexpected first activity: %q", payload.Activities[0].DisplayName())
	}
	if payload.Activities[1].Address != "Via della Salara Vecchia 5/6" {
		t.Errorf("address not decoded: %q", payload.Activities[1].Address)
	}
}

func TestDecodeDay_WrapperShape(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"date": "2026-05-01",
		"district": "Monti",
		"activities": [{"name": "Trevi Fountain"}]
	}`)
	payload := DecodeDay(raw)

	if payload.Shape != domain.DayShapeWrapper {
		t.Fatalf("expected wrapper shape, got %v", payload.Shape)
	}
	if payload.Date != "2026-05-01" || payload.District != "Monti" {
		t.Errorf("metadata not decoded: date=%q district=%q", payload.Date, payload.District)
	}
	if len(payload.Activities) != 1 || payload.Activities[0].DisplayName() != "Trevi Fountain" {
		t.Errorf("activities not decoded: %+v", payload.Activities)
	}
}

func TestDecodeDay_TimeKeyedShape(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"district": "Trastevere",
		"14:00": {"title": "Villa Farnesina"},
		"09:30": "Santa Maria in Trastevere"
	}`)
	payload := DecodeDay(raw)

	if payload.Shape != domain.DayShapeTimeKeyed {
		t.Fatalf("expected time-keyed shape, got %v", payload.Shape)
	}
	if len(payload.Activities) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(payload.Activities))
	}

	// Time labels sort ascending; the district key is metadata, not an
	// activity.
	if payload.Activities[0].Time != "09:30" || payload.Activities[1].Time != "14:00" {
		t.Errorf("activities not in chronological order: %+v", payload.Activities)
	}
	if payload.Activities[0].DisplayName() != "Santa Maria in Trastevere" {
		t.Errorf("unexpected first activity: %q", payload.Activities[0].DisplayName())
	}
	if payload.District != "Trastevere" {
		t.Errorf("district not decoded: %q", payload.District)
	}
}

func TestDecodeDay_UnknownShape(t *testing.T) {
	t.Parallel()

	payload := DecodeDay(json.RawMessage(`"just a string"`))
	if payload.Shape != domain.DayShapeUnknown {
		t.Fatalf("expected unknown shape, got %v", payload.Shape)
	}
	if len(payload.Activities) != 0 {
		t.Errorf("expected no activities, got %d", len(payload.Activities))
	}
}

func TestSortedDayKeys_NumericOrder(t *testing.T) {
	t.Parallel()

	itinerary := domain.RawItinerary{
		"Day 10":      json.RawMessage(`[]`),
		"Day 2":       json.RawMessage(`[]`),
		"Day 1":       json.RawMessage(`[]`),
		"destination": json.RawMessage(`"Rome"`),
		"notes":       json.RawMessage(`"pack light"`),
	}

	got := sortedDayKeys(itinerary)
	want := []string{"Day 1", "Day 2", "Day 10"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDefaultTimeSlot(t *testing.T) {
	t.Parallel()

	cases := map[int]string{0: "09:00", 1: "11:00", 3: "15:00"}
	for index, want := range cases {
		if got := defaultTimeSlot(index); got != want {
			t.Errorf("slot %d: expected %q, got %q", index, want, got)
		}
	}
}

func TestGuessCategory(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Caffè Greco":           "cafe",
		"Trattoria da Enzo":     "restaurant",
		"Vatican Museum":        "museum",
		"Villa Borghese Garden": "park",
		"Campo de' Fiori Market": "shopping",
		"Barceloneta Beach":     "beach",
		"St. Peter's Cathedral": "landmark",
		"Colosseum":             "attraction",
	}
	for name, want := range cases {
		if got := guessCategory(name); got != want {
			t.Errorf("%q: expected %q, got %q", name, want, got)
		}
	}
}
