// Package summarizer builds short extractive snippets from retrieved chunks.
package summarizer

import (
	"regexp"
	"sort"
	"strings"

	"docsearch/internal/domain"
)

// FrequencySummarizer ranks sentences across retrieved chunk contents by
// normalized token frequency and keeps the top ones in reading order.
type FrequencySummarizer struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based snippet builder.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentencePattern: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:       stopwords(),
	}
}

// Snippet condenses the contents of the given results into at most
// maxSentences sentences.
func (s *FrequencySummarizer) Snippet(results []domain.SearchResult, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	var text strings.Builder
	for _, r := range results {
		text.WriteString(r.Content)
		text.WriteString("\n")
	}
	sentences := s.sentencePattern.FindAllString(text.String(), -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text.String())
	}

	freq := map[string]float64{}
	for _, sentence := range sentences {
		for _, token := range s.tokens(sentence) {
			if _, skip := s.stopwords[token]; skip {
				continue
			}
			freq[token]++
		}
	}
	maxFreq := 0.0
	for _, f := range freq {
		if f > maxFreq {
			maxFreq = f
		}
	}
	if maxFreq == 0 {
		maxFreq = 1
	}

	type ranked struct {
		idx   int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, sentence := range sentences {
		total := 0.0
		tokens := s.tokens(sentence)
		for _, token := range tokens {
			total += freq[token] / maxFreq
		}
		if len(tokens) > 0 {
			total /= float64(len(tokens))
		}
		scores[i] = ranked{idx: i, score: total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	picked := scores[:maxSentences]
	sort.Slice(picked, func(i, j int) bool { return picked[i].idx < picked[j].idx })

	parts := make([]string, 0, len(picked))
	for _, p := range picked {
		parts = append(parts, strings.TrimSpace(sentences[p.idx]))
	}
	return strings.Join(parts, " ")
}

func (s *FrequencySummarizer) tokens(text string) []string {
	return s.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "of", "in", "on", "to", "for",
		"with", "as", "by", "at", "is", "are", "was", "were", "be", "been",
		"it", "its", "this", "that", "these", "those", "from", "we", "our",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
