package analysis

// Vocabularies carries the keyword lists driving thematic summarization,
// urgency detection and topic extraction. The lists are configuration data:
// tests and operators can tune them without touching the matching code.
// Entries are matched on canonicalized text (lowercase, accents folded,
// punctuation split), so they should be written unaccented.
type Vocabularies struct {
	Symptoms   []string
	Emotions   []string
	Solutions  []string
	LifeTopics []string

	// Urgency lists distress markers that force the validation-focused
	// style envelope regardless of the length baseline.
	Urgency []string

	// TopicKeywords maps a preference-tag topic to the message keywords
	// that reveal it.
	TopicKeywords map[string][]string

	// InsightKeywords flag messages referring to the app's analytics.
	InsightKeywords []string
}

// DefaultVocabularies returns the tuned production lists for the app's
// primary locale.
func DefaultVocabularies() Vocabularies {
	return Vocabularies{
		Symptoms: []string{
			"crampes", "douleur", "douleurs", "mal", "migraine", "fatigue",
			"nausee", "nausees", "ballonnements", "seins sensibles", "acne",
			"spotting", "vertiges", "regles douloureuses",
		},
		Emotions: []string{
			"stress", "stressee", "anxieuse", "angoisse", "triste",
			"tristesse", "irritable", "enervee", "deprimee", "submergee",
			"seule", "peur", "epuisee", "moral a zero",
		},
		Solutions: []string{
			"bouillotte", "yoga", "meditation", "respiration", "etirements",
			"tisane", "magnesium", "marche", "repos", "sieste", "sport doux",
		},
		LifeTopics: []string{
			"travail", "boulot", "famille", "couple", "partenaire",
			"enfants", "ecole", "examens", "voyage", "amis",
		},
		Urgency: []string{
			"mal", "tres mal", "aide", "aidez", "aide moi", "urgent",
			"urgence", "insupportable", "au secours", "souffre",
			"douleur intense", "panique", "angoisse",
		},
		TopicKeywords: map[string][]string{
			"douleur":     {"mal", "douleur", "douleurs", "crampes", "migraine", "souffre"},
			"sommeil":     {"dormir", "sommeil", "insomnie", "fatigue", "epuisee", "nuit", "nuits"},
			"nutrition":   {"manger", "nutrition", "alimentation", "appetit", "fer", "magnesium", "envie de sucre"},
			"stress":      {"stress", "stressee", "anxieuse", "angoisse", "panique", "nerveuse"},
			"sport":       {"sport", "course", "yoga", "entrainement", "seance", "bouger"},
			"humeur":      {"humeur", "triste", "moral", "irritable", "deprimee"},
			"bien_etre":   {"detente", "respiration", "meditation", "bien etre", "relaxer"},
			"observation": {"symptome", "symptomes", "suivi", "noter", "observer"},
		},
		InsightKeywords: []string{
			"analyse", "analyses", "insight", "insights", "tendance",
			"tendances", "statistique", "statistiques", "courbe", "rapport",
			"graphique", "historique",
		},
	}
}
