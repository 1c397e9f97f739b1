// Package match scores a new report against a user's prior incident
// texts to find duplicate candidates. Scoring is deterministic: token
// overlap plus semantic-group bonuses, normalized so case, punctuation,
// and whitespace never move a score.
package match

import (
	"strings"

	"github.com/ppiankov/triage/internal/model"
	"github.com/ppiankov/triage/internal/textnorm"
)

// Candidate is one prior incident considered for duplicate matching.
// Callers pass candidates ordered most recent first; ties on score keep
// the earlier (more recent) candidate.
type Candidate struct {
	ID   string
	Text string
}

// ScoreFunc computes a symmetric similarity in [0,1] between two texts.
// The default is token overlap with semantic bonuses; it is pluggable so
// an embedding-based scorer can be swapped in without touching the
// threshold contract.
type ScoreFunc func(a, b string) float64

// Matcher finds the best duplicate candidate for a report.
type Matcher struct {
	score ScoreFunc
}

// NewMatcher creates a matcher with the default similarity scorer.
func NewMatcher() *Matcher {
	return &Matcher{score: Similarity}
}

// NewMatcherWithScorer creates a matcher with a custom scorer.
func NewMatcherWithScorer(score ScoreFunc) *Matcher {
	return &Matcher{score: score}
}

// FindDuplicate returns the highest-scoring candidate when its score
// reaches threshold, or nil when no candidate qualifies. A candidate
// whose fingerprint equals the report's is an exact re-submission and
// scores 1 without consulting the scorer. An empty candidate list
// yields nil, not an error.
func (m *Matcher) FindDuplicate(text string, candidates []Candidate, threshold float64) *model.SimilarityMatch {
	fp := Fingerprint(text)

	var best *model.SimilarityMatch
	for _, cand := range candidates {
		var score float64
		if fp != "" && Fingerprint(cand.Text) == fp {
			score = 1
		} else {
			score = m.score(text, cand.Text)
		}
		if best == nil || score > best.Score {
			best = &model.SimilarityMatch{
				IncidentID:  cand.ID,
				Score:       score,
				MatchedText: cand.Text,
			}
		}
	}

	if best == nil || best.Score < threshold {
		return nil
	}
	return best
}

// semanticGroups are families of interchangeable support vocabulary. Two
// texts that each touch the same family score a bonus even when their
// exact words differ.
var semanticGroups = [][]string{
	{"login", "signin", "sign", "access", "authenticate"},
	{"password", "pass", "pwd", "reset", "forgot"},
	{"account", "profile", "user"},
	{"locked", "blocked", "disabled", "suspended", "frozen"},
	{"unable", "cannot", "cant", "failed", "error", "issue", "problem"},
	{"game", "play", "gaming", "playing"},
}

const (
	groupBonus = 0.3 // Per shared semantic group
)

// Similarity is the default scorer: Jaccard word overlap of normalized
// tokens, plus a bonus per semantic group both texts touch, capped at 1.
// More shared salient tokens always yields an equal or higher score.
func Similarity(a, b string) float64 {
	wordsA := textnorm.TokenSet(a)
	wordsB := textnorm.TokenSet(b)

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range wordsA {
		if wordsB[tok] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	score := float64(intersection) / float64(union)

	for _, group := range semanticGroups {
		if touchesGroup(wordsA, group) && touchesGroup(wordsB, group) {
			score += groupBonus
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}

func touchesGroup(words map[string]bool, group []string) bool {
	for _, term := range group {
		if words[term] {
			return true
		}
	}
	return false
}

// Fingerprint returns a stable normalized form of text. FindDuplicate
// compares fingerprints first so an exact re-submission matches at
// score 1 regardless of the configured scorer.
func Fingerprint(text string) string {
	return strings.TrimSpace(textnorm.Normalize(text))
}
