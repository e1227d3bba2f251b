package analysis

import (
	"testing"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(DefaultVocabularies())
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	return a
}

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"J'ai mal !!! Aide-moi", "j ai mal aide moi"},
		{"Fatiguée, énervée... ça va", "fatiguee enervee ca va"},
		{"  espaces   multiples  ", "espaces multiples"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := Canonicalize(tc.in); got != tc.want {
			t.Fatalf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAnalyzeDistressedMessageIsUrgent(t *testing.T) {
	a := newTestAnalyzer(t)

	got := a.Analyze("J'ai mal !!! Aide-moi")
	if !got.Urgent() {
		t.Fatalf("intensity = %.2f, want >= %.2f", got.EmotionIntensity, UrgencyThreshold)
	}
	if got.PrimaryTopic() != "douleur" {
		t.Fatalf("primary topic = %q, want douleur", got.PrimaryTopic())
	}
}

func TestAnalyzeCalmMessageIsNotUrgent(t *testing.T) {
	a := newTestAnalyzer(t)

	got := a.Analyze("Salut, comment régler mes notifications ?")
	if got.Urgent() {
		t.Fatalf("calm message marked urgent, intensity = %.2f", got.EmotionIntensity)
	}
}

func TestAnalyzeTopicsAreDistinct(t *testing.T) {
	a := newTestAnalyzer(t)

	got := a.Analyze("J'ai des crampes, de la douleur et du mal à dormir")
	counts := make(map[string]int)
	for _, topic := range got.Topics {
		counts[topic]++
		if counts[topic] > 1 {
			t.Fatalf("topic %q repeated: %v", topic, got.Topics)
		}
	}
	if counts["douleur"] != 1 {
		t.Fatalf("topics = %v, want douleur present once", got.Topics)
	}
	if counts["sommeil"] != 1 {
		t.Fatalf("topics = %v, want sommeil present once", got.Topics)
	}
}

func TestAnalyzeQuestionTypes(t *testing.T) {
	a := newTestAnalyzer(t)

	cases := []struct {
		message string
		want    string
	}{
		{"Pourquoi j'ai des crampes pendant mes règles ?", "explication"},
		{"Que faire contre la fatigue ?", "conseil"},
		{"Quand commence ma phase lutéale ?", "information"},
	}
	for _, tc := range cases {
		got := a.Analyze(tc.message)
		found := false
		for _, qt := range got.QuestionTypes {
			if qt == tc.want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("Analyze(%q).QuestionTypes = %v, want %q", tc.message, got.QuestionTypes, tc.want)
		}
	}
}

func TestAnalyzeDetectsInsightMention(t *testing.T) {
	a := newTestAnalyzer(t)

	if got := a.Analyze("Montre-moi mes tendances du mois"); !got.MentionsInsight {
		t.Fatalf("insight mention missed")
	}
	if got := a.Analyze("Bonjour, ça va bien"); got.MentionsInsight {
		t.Fatalf("false insight mention")
	}
}

func TestAnalyzePrimaryTopicFallsBackToGeneral(t *testing.T) {
	a := newTestAnalyzer(t)

	got := a.Analyze("Ok")
	if got.PrimaryTopic() != "general" {
		t.Fatalf("primary topic = %q, want general", got.PrimaryTopic())
	}
}

func TestAnalyzeIsPure(t *testing.T) {
	a := newTestAnalyzer(t)
	msg := "J'ai des crampes et je suis stressée !!"

	first := a.Analyze(msg)
	second := a.Analyze(msg)
	if first.EmotionIntensity != second.EmotionIntensity {
		t.Fatalf("intensity differs across calls: %.2f vs %.2f", first.EmotionIntensity, second.EmotionIntensity)
	}
	if len(first.Topics) != len(second.Topics) {
		t.Fatalf("topics differ across calls: %v vs %v", first.Topics, second.Topics)
	}
	for i := range first.Topics {
		if first.Topics[i] != second.Topics[i] {
			t.Fatalf("topic order differs: %v vs %v", first.Topics, second.Topics)
		}
	}
}

func TestScanCategoriesWholeWordsOnly(t *testing.T) {
	a := newTestAnalyzer(t)

	got := a.ScanCategories("le malheur n'est pas un symptôme")
	for _, s := range got.Symptoms {
		if s == "mal" {
			t.Fatalf("matched 'mal' inside 'malheur': %v", got.Symptoms)
		}
	}
}

func TestMatcherEmptyVocabulary(t *testing.T) {
	m, err := newMatcher(nil)
	if err != nil {
		t.Fatalf("newMatcher(nil) error = %v", err)
	}
	if hits := m.scan("du texte quelconque"); hits != nil {
		t.Fatalf("empty matcher returned hits: %v", hits)
	}
}
