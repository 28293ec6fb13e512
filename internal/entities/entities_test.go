package entities

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/linnemanlabs/sift/internal/intake"
)

// mockRecognizer implements Recognizer for testing.
type mockRecognizer struct {
	spans []intake.Entity
	err   error
	calls int
}

func (m *mockRecognizer) Recognize(_ context.Context, _ string) ([]intake.Entity, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.spans, nil
}

func (m *mockRecognizer) ModelName() string { return "en_core_web_sm" }

func TestExtract_CategorizesLabels(t *testing.T) {
	t.Parallel()

	rec := &mockRecognizer{spans: []intake.Entity{
		{Text: "Dana Kim", Label: "PERSON", Start: 0, End: 8},
		{Text: "Acme Corp", Label: "ORG", Start: 14, End: 23},
		{Text: "Friday", Label: "DATE", Start: 30, End: 36},
		{Text: "3pm", Label: "TIME", Start: 40, End: 43},
		{Text: "Seattle", Label: "GPE", Start: 50, End: 57},
		{Text: "the river", Label: "LOC", Start: 60, End: 69},
		{Text: "Building 7", Label: "FAC", Start: 72, End: 82},
		{Text: "$500", Label: "MONEY", Start: 85, End: 89},
	}}
	ext := NewExtractor(rec)

	got, err := ext.Extract(context.Background(), "Dana Kim from Acme Corp, Friday at 3pm")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if !reflect.DeepEqual(got.People, []string{"Dana Kim"}) {
		t.Errorf("People = %v", got.People)
	}
	if !reflect.DeepEqual(got.Organizations, []string{"Acme Corp"}) {
		t.Errorf("Organizations = %v", got.Organizations)
	}
	if !reflect.DeepEqual(got.Dates, []string{"Friday"}) {
		t.Errorf("Dates = %v", got.Dates)
	}
	if !reflect.DeepEqual(got.Times, []string{"3pm"}) {
		t.Errorf("Times = %v", got.Times)
	}
	// GPE, LOC and FAC all land in Locations
	if !reflect.DeepEqual(got.Locations, []string{"Seattle", "the river", "Building 7"}) {
		t.Errorf("Locations = %v", got.Locations)
	}
	// unknown labels are kept in All but not categorized
	if len(got.All) != 8 {
		t.Errorf("All = %d spans, want 8", len(got.All))
	}
}

func TestExtract_DeduplicatesWithinCategory(t *testing.T) {
	t.Parallel()

	rec := &mockRecognizer{spans: []intake.Entity{
		{Text: "Dana", Label: "PERSON", Start: 0, End: 4},
		{Text: "Dana", Label: "PERSON", Start: 20, End: 24},
	}}
	ext := NewExtractor(rec)

	got, err := ext.Extract(context.Background(), "Dana asked Dana")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got.People) != 1 {
		t.Errorf("People = %v, want one entry", got.People)
	}
	if len(got.All) != 2 {
		t.Errorf("All = %d spans, want both kept", len(got.All))
	}
}

func TestExtract_BlankTextSkipsRecognizer(t *testing.T) {
	t.Parallel()

	rec := &mockRecognizer{err: errors.New("should not be called")}
	ext := NewExtractor(rec)

	got, err := ext.Extract(context.Background(), "   \n\t ")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.calls != 0 {
		t.Errorf("recognizer called %d times for blank text", rec.calls)
	}
	if got.People == nil || got.UrgencyCues == nil || got.All == nil {
		t.Error("blank extraction must return non-nil slices")
	}
}

func TestExtract_FailsClosed(t *testing.T) {
	t.Parallel()

	rec := &mockRecognizer{err: ErrModelUnavailable}
	ext := NewExtractor(rec)

	_, err := ext.Extract(context.Background(), "urgent: call Dana today")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestUrgencyCues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "just a regular note about lunch", []string{}},
		{"explicit", "URGENT: reply ASAP", []string{"urgent", "asap"}},
		{"implied", "need this done today, by end of day", []string{"today", "end of day"}},
		{"deadline", "the deadline is due by Friday", []string{"deadline", "due by"}},
		{"time sensitive spaced", "this is time sensitive", []string{"time sensitive"}},
		{"time sensitive hyphenated", "this is time-sensitive", []string{"time-sensitive"}},
		{"expiring", "your quote expires soon", []string{"expires"}},
		{"dedup", "urgent urgent urgent", []string{"urgent"}},
		{"word boundary", "urgently surgeon", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := UrgencyCues(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("UrgencyCues(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestUrgencyCues_BatteryOrder(t *testing.T) {
	t.Parallel()

	// "today" appears first in the text but "urgent" matches an
	// earlier pattern, so it is reported first.
	got := UrgencyCues("today is urgent")
	want := []string{"urgent", "today"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UrgencyCues = %v, want %v", got, want)
	}
}
