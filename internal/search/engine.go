package search

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/pders01/readerlink/internal/storage"
)

// Engine scans the entry cache directly. It needs no index and is used
// when the bleve index cannot be opened.
type Engine struct {
	store *storage.Store
	now   func() time.Time
}

func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Search scores every cached entry against the query.
func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}

	results := []*Result{}
	err := e.store.ForEachEntry(func(entry *storage.Entry) error {
		if result := e.searchEntry(entry, terms); result != nil {
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) searchEntry(entry *storage.Entry, terms []string) *Result {
	var matches []Match
	var totalScore float64

	if score := e.scoreField(entry.Title, terms, 4.0); score > 0 {
		matches = append(matches, Match{Field: "title", Text: entry.Title, Weight: score})
		totalScore += score
	}

	if score := e.scoreField(entry.Author, terms, 2.0); score > 0 {
		matches = append(matches, Match{Field: "author", Text: entry.Author, Weight: score})
		totalScore += score
	}

	if score := e.scoreField(entry.Content, terms, 1.0); score > 0 {
		matches = append(matches, Match{
			Field:  "content",
			Text:   e.findBestSnippet(entry.Content, terms, 200),
			Weight: score,
		})
		totalScore += score
	}

	if score := e.scoreField(entry.URL, terms, 0.5); score > 0 {
		matches = append(matches, Match{Field: "url", Text: entry.URL, Weight: score})
		totalScore += score
	}

	if totalScore == 0 {
		return nil
	}
	totalScore *= 1.0 + recencyBoost(entry.Published, e.now())
	return &Result{Entry: entry, Score: totalScore, Matches: matches}
}

func (e *Engine) scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matchedTerms := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			score += 2.0
			matchedTerms++
		}

		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matchedTerms++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matchedTerms++
			case strings.Contains(word, term):
				score += 0.5
				matchedTerms++
			}
		}
	}

	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	tf := float64(matchedTerms) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

func (e *Engine) findBestSnippet(text string, terms []string, maxLength int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	windowSize := maxLength / 8
	if windowSize >= len(words) {
		return truncate(text, maxLength)
	}

	bestScore, bestStart := 0, 0
	for i := 0; i <= len(words)-windowSize; i++ {
		window := strings.ToLower(strings.Join(words[i:i+windowSize], " "))
		score := 0
		for _, term := range terms {
			if strings.Contains(window, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestStart = i
		}
	}

	return truncate(strings.Join(words[bestStart:bestStart+windowSize], " "), maxLength)
}

// tokenize lowercases text and splits it on anything that is not a
// letter or digit, dropping single characters.
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	flush := func() {
		if current.Len() > 1 {
			terms = append(terms, current.String())
		}
		current.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return terms
}

func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen-1] + "…"
}

// recencyBoost gives up to 10% to entries from the last week.
func recencyBoost(published, now time.Time) float64 {
	if published.IsZero() {
		return 0
	}
	age := now.Sub(published)
	const week = 7 * 24 * time.Hour
	if age < 0 {
		age = 0
	}
	if age >= week {
		return 0
	}
	return 0.1 * (1 - float64(age)/float64(week))
}
