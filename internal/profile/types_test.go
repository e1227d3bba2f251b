package profile

import "testing"

func TestParsePersona(t *testing.T) {
	cases := []struct {
		in   string
		want Persona
	}{
		{"analyst", PersonaAnalyst},
		{" Minimalist ", PersonaMinimalist},
		{"HOLISTIC", PersonaHolistic},
		{"explorer", PersonaExplorer},
		{"", PersonaExplorer},
		{"astronaut", PersonaExplorer},
	}
	for _, tc := range cases {
		if got := ParsePersona(tc.in); got != tc.want {
			t.Fatalf("ParsePersona(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParsePhase(t *testing.T) {
	cases := []struct {
		in   string
		want Phase
	}{
		{"menstrual", PhaseMenstrual},
		{"Follicular", PhaseFollicular},
		{"OVULATORY", PhaseOvulatory},
		{"luteal", PhaseLuteal},
		{"", PhaseGeneral},
		{"lunar", PhaseGeneral},
	}
	for _, tc := range cases {
		if got := ParsePhase(tc.in); got != tc.want {
			t.Fatalf("ParsePhase(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseJourney(t *testing.T) {
	if got := ParseJourney("symptom_relief"); got != JourneySymptomRelief {
		t.Fatalf("ParseJourney(symptom_relief) = %s", got)
	}
	if got := ParseJourney("whatever"); got != JourneyDefault {
		t.Fatalf("ParseJourney(whatever) = %s, want default", got)
	}
}

func TestPreferencesRatedAtLeast(t *testing.T) {
	prefs := Preferences{"douleur": 5, "sommeil": 3}
	if !prefs.RatedAtLeast("douleur", 4) {
		t.Fatalf("douleur rated 5 should pass threshold 4")
	}
	if prefs.RatedAtLeast("sommeil", 4) {
		t.Fatalf("sommeil rated 3 should fail threshold 4")
	}
	if prefs.RatedAtLeast("inconnu", 1) {
		t.Fatalf("unknown tag should fail")
	}

	var nilPrefs Preferences
	if nilPrefs.RatedAtLeast("douleur", 1) {
		t.Fatalf("nil preferences should fail safely")
	}
}
