// Package questions derives the weekly assessment question set from
// recently crawled articles. Keyword analysis finds what the week's news
// was actually about; the generator turns the top keywords into quiz
// questions alongside a fixed base bank.
package questions

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ainewshub/ainewshub/internal/storage"
)

// topKeywordCount bounds how many keywords the analyzer reports.
const topKeywordCount = 20

var tokenSplitter = regexp.MustCompile(`\W+`)

// stopwords are frequent English words excluded from keyword scoring.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "has": {}, "have": {}, "had": {},
	"this": {}, "that": {}, "with": {}, "from": {}, "they": {}, "will": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "their": {}, "them": {},
	"then": {}, "than": {}, "was": {}, "were": {}, "been": {}, "being": {},
	"its": {}, "it's": {}, "into": {}, "out": {}, "about": {}, "over": {},
	"more": {}, "most": {}, "some": {}, "such": {}, "only": {}, "other": {},
	"new": {}, "also": {}, "after": {}, "before": {}, "how": {}, "why": {},
	"our": {}, "your": {}, "his": {}, "her": {}, "who": {}, "whom": {},
	"here": {}, "there": {}, "these": {}, "those": {}, "just": {}, "very": {},
	"now": {}, "get": {}, "use": {}, "using": {}, "used": {}, "one": {},
	"two": {}, "via": {}, "per": {}, "any": {}, "each": {}, "own": {},
}

// aiVocabulary lists domain terms that get a scoring boost so topical
// keywords beat generic frequent words.
var aiVocabulary = map[string]struct{}{
	"llm": {}, "llms": {}, "gpt": {}, "claude": {}, "gemini": {},
	"llama": {}, "transformer": {}, "transformers": {}, "embedding": {},
	"embeddings": {}, "rag": {}, "agent": {}, "agents": {}, "mcp": {},
	"inference": {}, "finetuning": {}, "quantization": {}, "rlhf": {},
	"prompt": {}, "prompting": {}, "tokenizer": {}, "benchmark": {},
	"alignment": {}, "multimodal": {}, "diffusion": {}, "reasoning": {},
	"anthropic": {}, "openai": {}, "mistral": {}, "deepseek": {},
}

// aiTermWeight multiplies the count of domain-vocabulary keywords.
const aiTermWeight = 10

// baselineKeywords seed question generation when no articles exist yet.
var baselineKeywords = []string{
	"llm", "transformer", "prompt", "embedding", "rag", "agent", "inference", "benchmark",
}

// ExtractKeywords scores words across article titles and summaries and
// returns the top keywords. Ordering is deterministic: score descending,
// then alphabetical. Falls back to the baseline list when articles yield
// nothing.
func ExtractKeywords(articles []storage.Article) []string {
	counts := map[string]int{}
	for _, article := range articles {
		for _, token := range tokenSplitter.Split(strings.ToLower(article.Title+" "+article.Summary), -1) {
			if len(token) <= 2 {
				continue
			}
			if _, stop := stopwords[token]; stop {
				continue
			}
			counts[token]++
		}
	}

	if len(counts) == 0 {
		return append([]string(nil), baselineKeywords...)
	}

	type scored struct {
		word  string
		score int
	}
	ranked := make([]scored, 0, len(counts))
	for word, count := range counts {
		score := count
		if _, ok := aiVocabulary[word]; ok {
			score *= aiTermWeight
		}
		ranked = append(ranked, scored{word, score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].word < ranked[j].word
	})

	if len(ranked) > topKeywordCount {
		ranked = ranked[:topKeywordCount]
	}
	keywords := make([]string, len(ranked))
	for i, s := range ranked {
		keywords[i] = s.word
	}
	return keywords
}
