package studypool

import "strings"

// Classifier assigns questions to taxonomy categories by keyword frequency
type Classifier struct {
	taxonomy *Taxonomy
}

// NewClassifier creates a classifier over a fixed taxonomy
func NewClassifier(taxonomy *Taxonomy) *Classifier {
	return &Classifier{taxonomy: taxonomy}
}

// Classify returns the category for a question. A non-empty current
// category from a section header wins outright. Otherwise each category
// scores the number of keyword occurrences in the question text and the
// highest score wins; ties, including all zeros, go to the fallback.
func (c *Classifier) Classify(questionText, currentCategory string) string {
	if currentCategory != "" {
		if cat, ok := c.taxonomy.Lookup(currentCategory); ok {
			return cat.Name
		}
		// unknown header names are passed through so the validator can reject them
		return currentCategory
	}

	scores := c.Scores(questionText)
	best, bestScore, tied := "", 0, false
	for _, cat := range c.taxonomy.Categories() {
		score := scores[cat.Name]
		switch {
		case score > bestScore:
			best, bestScore, tied = cat.Name, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}

	if best == "" || tied {
		return c.taxonomy.Fallback()
	}
	return best
}

// Scores returns the keyword score of every category, for diagnostics
func (c *Classifier) Scores(questionText string) map[string]int {
	text := strings.ToLower(questionText)
	scores := make(map[string]int)
	for _, cat := range c.taxonomy.Categories() {
		for _, kw := range cat.Keywords {
			if kw = strings.ToLower(kw); kw != "" {
				scores[cat.Name] += strings.Count(text, kw)
			}
		}
	}
	return scores
}
