package extract

import (
	"fmt"
	"testing"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/rules"
)

func testRules(t *testing.T) *rules.Store {
	t.Helper()
	s, err := rules.Load(t.TempDir() + "/rules.json")
	if err != nil {
		t.Fatalf("failed to load default rules: %v", err)
	}
	return s
}

func TestDateExtractor_SurfaceFormsNormalize(t *testing.T) {
	e := NewDateExtractor(testRules(t), nil)

	cases := []struct {
		name string
		text string
		want string
	}{
		{"slash", "Date: 15/03/2024", "20240315"},
		{"dash", "Date: 15-03-2024", "20240315"},
		{"dotted", "Date: 15.03.2024", "20240315"},
		{"french text", "le 15 mars 2024", "20240315"},
		{"iso", "date 2024-03-15", "20240315"},
		{"single digit day", "Date: 5/3/2024", "20240305"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := e.Extract(tc.text, nil)
			if !ok {
				t.Fatal("expected a date")
			}
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestDateExtractor_AllFormsAgree(t *testing.T) {
	e := NewDateExtractor(testRules(t), nil)

	// Every supported surface form of the same calendar date must
	// normalize to the same YYYYMMDD string.
	for _, d := range []struct{ day, month int }{{1, 1}, {9, 2}, {28, 2}, {31, 12}} {
		forms := []string{
			fmt.Sprintf("date: %02d/%02d/2024", d.day, d.month),
			fmt.Sprintf("date: %02d.%02d.2024", d.day, d.month),
			fmt.Sprintf("date: 2024-%02d-%02d", d.month, d.day),
		}
		want := fmt.Sprintf("2024%02d%02d", d.month, d.day)
		for _, form := range forms {
			got, ok := e.Extract(form, nil)
			if !ok || got != want {
				t.Errorf("Extract(%q) = %q (ok=%v), want %q", form, got, ok, want)
			}
		}
	}
}

func TestDateExtractor_RejectsInvalidCalendarValues(t *testing.T) {
	e := NewDateExtractor(testRules(t), nil)

	for _, text := range []string{"Date: 32/03/2024", "Date: 15/13/2024", "Date: 00/03/2024"} {
		t.Run(text, func(t *testing.T) {
			if got, ok := e.Extract(text, nil); ok {
				t.Errorf("expected no date, got %s", got)
			}
		})
	}
}

func TestDateExtractor_KeywordProximityWins(t *testing.T) {
	e := NewDateExtractor(testRules(t), nil)

	// The date next to "date:" must beat an earlier bare date.
	text := "01/01/2020 blah blah\nDate: 15/03/2024"
	got, ok := e.Extract(text, nil)
	if !ok {
		t.Fatal("expected a date")
	}
	if got != "20240315" {
		t.Errorf("expected keyword-adjacent date 20240315, got %s", got)
	}
}

func TestDateExtractor_NoDate(t *testing.T) {
	e := NewDateExtractor(testRules(t), nil)
	if got, ok := e.Extract("Aucune information temporelle ici", nil); ok {
		t.Errorf("expected no date, got %s", got)
	}
}
