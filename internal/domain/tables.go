package domain

// Domain labels offered to callers.
const (
	DomainComputerScience           = "Computer Science"
	DomainPhysics                   = "Physics"
	DomainMathematics               = "Mathematics"
	DomainBiology                   = "Biology"
	DomainEconomics                 = "Economics"
	DomainStatistics                = "Statistics"
	DomainElectricalEngineering     = "Electrical Engineering"
	DomainMedicine                  = "Medicine"
	DomainMachineLearning           = "Machine Learning"
	DomainArtificialIntelligence    = "Artificial Intelligence"
	DomainDataScience               = "Data Science"
	DomainRobotics                  = "Robotics"
	DomainNaturalLanguageProcessing = "Natural Language Processing"
)

var suggestions = []string{
	DomainComputerScience,
	DomainPhysics,
	DomainMathematics,
	DomainBiology,
	DomainEconomics,
	DomainStatistics,
	DomainElectricalEngineering,
	DomainMedicine,
	DomainMachineLearning,
	DomainArtificialIntelligence,
	DomainDataScience,
	DomainRobotics,
	DomainNaturalLanguageProcessing,
}

// domainKeywords maps a domain label to keywords that signal a query is
// already about that domain.
var domainKeywords = map[string][]string{
	DomainMedicine:                  {"medical", "healthcare", "clinical", "patient"},
	DomainComputerScience:           {"computing", "algorithm", "software", "system"},
	DomainArtificialIntelligence:    {"ai", "machine learning", "deep learning", "neural"},
	DomainMachineLearning:           {"ml", "deep learning", "neural network", "algorithm"},
	DomainDataScience:               {"data", "analytics", "mining", "statistical"},
	DomainRobotics:                  {"robot", "automation", "control", "mechanical"},
	DomainNaturalLanguageProcessing: {"nlp", "language", "text", "linguistic"},
}

// arxivCategories maps a domain label to the arXiv subject categories a
// search is restricted to.
var arxivCategories = map[string][]string{
	DomainComputerScience:           {"cs.AI", "cs.LG", "cs.CL", "cs.CV", "cs.NE"},
	DomainPhysics:                   {"physics"},
	DomainMathematics:               {"math"},
	DomainBiology:                   {"q-bio"},
	DomainEconomics:                 {"econ"},
	DomainStatistics:                {"stat"},
	DomainElectricalEngineering:     {"eess"},
	DomainMedicine:                  {"q-bio.QM", "stat.ML", "cs.AI"},
	DomainMachineLearning:           {"cs.LG", "stat.ML"},
	DomainArtificialIntelligence:    {"cs.AI", "cs.LG", "cs.CL", "cs.CV"},
	DomainDataScience:               {"cs.DB", "stat.ML", "cs.LG"},
	DomainRobotics:                  {"cs.RO", "cs.AI"},
	DomainNaturalLanguageProcessing: {"cs.CL", "cs.AI"},
}

// Suggestions returns the domain labels offered for selection, in display order.
func Suggestions() []string {
	return cloneStrings(suggestions)
}

// DomainKeywords returns the representative keywords for a domain label.
// The second result is false when the domain has no keyword table entry.
func DomainKeywords(label string) ([]string, bool) {
	kw, ok := domainKeywords[label]
	if !ok {
		return nil, false
	}
	return cloneStrings(kw), true
}

// ArXivCategories returns the arXiv categories for a domain label, or nil
// when the domain is unmapped and all categories should be searched.
func ArXivCategories(label string) []string {
	cats, ok := arxivCategories[label]
	if !ok {
		return nil
	}
	return cloneStrings(cats)
}

// IsKnownDomain reports whether label is one of the suggested domains.
func IsKnownDomain(label string) bool {
	for _, s := range suggestions {
		if s == label {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
