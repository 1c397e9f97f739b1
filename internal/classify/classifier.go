// Package classify maps free-text issue reports to severity levels 1-5.
// The default engine is a deterministic keyword/pattern rule table; an
// optional LLM-backed scorer can replace it behind the same contract.
package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/triage/internal/model"
	"github.com/ppiankov/triage/internal/textnorm"
)

// Classifier assigns a severity level to a report.
type Classifier interface {
	Classify(ctx context.Context, text, userID string) model.ClassificationResult
}

// RuleClassifier classifies by accumulating evidence weights from static
// keyword and pattern tables. It is a pure function of its inputs and
// safe for concurrent use.
type RuleClassifier struct {
	rules []levelRule
	now   func() time.Time
}

// NewRuleClassifier creates a classifier with the default rule tables.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		rules: defaultRules(),
		now:   time.Now,
	}
}

// Classify scores text against every level's evidence table and returns
// the highest-weight level. It never fails: empty or whitespace-only
// input yields level 1 with zero confidence, and text with no indicators
// yields the default level 2 with low confidence.
func (c *RuleClassifier) Classify(_ context.Context, text, userID string) model.ClassificationResult {
	result := model.ClassificationResult{
		SourceText: text,
		UserID:     userID,
		Timestamp:  c.now().UTC(),
	}

	if strings.TrimSpace(text) == "" {
		result.Level = model.MinLevel
		result.Confidence = 0
		result.Rationale = "insufficient input"
		return result
	}

	lower := strings.ToLower(textnorm.StripMarkup(text))

	scores := make(map[int]float64, len(c.rules))
	hits := make(map[int][]string, len(c.rules))
	for _, rule := range c.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				scores[rule.level] += rule.keywordWeight
				hits[rule.level] = append(hits[rule.level], "keyword:"+kw)
			}
		}
		for _, pat := range rule.patterns {
			if pat.MatchString(lower) {
				scores[rule.level] += rule.patternWeight
				hits[rule.level] = append(hits[rule.level], "pattern:"+pat.String())
			}
		}
	}

	top, second, topLevel := rank(scores)
	if top == 0 {
		result.Level = 2
		result.Confidence = 0.3
		result.Rationale = "no clear indicators found, defaulting to level 2"
		return result
	}

	result.Level = topLevel
	result.Confidence = marginConfidence(top, second)
	result.Rationale = fmt.Sprintf("keyword and pattern analysis (score %.1f): %s",
		top, strings.Join(topHits(hits[topLevel], 3), ", "))
	return result
}

// rank returns the best and runner-up accumulated weights. Equal weights
// resolve to the higher level: triage errs toward severity.
func rank(scores map[int]float64) (top, second float64, topLevel int) {
	levels := make([]int, 0, len(scores))
	for level := range scores {
		levels = append(levels, level)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))

	for _, level := range levels {
		s := scores[level]
		if s > top {
			second = top
			top = s
			topLevel = level
		} else if s > second {
			second = s
		}
	}
	return top, second, topLevel
}

// marginConfidence normalizes the weight margin between the winning level
// and the runner-up into [0,1]. A clear winner with no competition maxes
// out; a near tie approaches zero.
func marginConfidence(top, second float64) float64 {
	if top <= 0 {
		return 0
	}
	conf := (top - second) / top
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}

func topHits(hits []string, n int) []string {
	if len(hits) <= n {
		return hits
	}
	return hits[:n]
}
