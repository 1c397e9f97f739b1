package classify

import "regexp"

// levelRule holds the evidence table for one severity level. Keyword hits
// and pattern hits accumulate weight; the level with the highest total
// wins. Weights rise with severity so critical signals dominate when a
// report matches several tables.
type levelRule struct {
	level         int
	keywordWeight float64
	patternWeight float64
	keywords      []string
	patterns      []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(expr))
	}
	return compiled
}

// defaultRules returns the static evidence tables, highest severity first.
func defaultRules() []levelRule {
	return []levelRule{
		{
			// Critical emergencies: doxxing, legal issues, total outages
			level:         5,
			keywordWeight: 3.0,
			patternWeight: 4.0,
			keywords: []string{
				"doxx", "dox", "personal info", "address leak", "phone number leak",
				"legal", "lawsuit", "court", "police", "attorney", "lawyer",
				"server down", "complete outage", "total failure", "system crash",
				"data breach", "stolen data", "privacy violation",
				"emergency", "urgent", "critical", "immediate help",
			},
			patterns: compileAll(
				`server.*down`, `complete.*outage`, `total.*failure`,
				`data.*breach`, `personal.*information.*leaked`,
				`legal.*action`, `court.*case`, `emergency.*situation`,
			),
		},
		{
			// Security and fraud
			level:         4,
			keywordWeight: 2.5,
			patternWeight: 3.0,
			keywords: []string{
				"hack", "hacker", "hacked", "compromised", "stolen", "fraud", "scam",
				"unauthorized", "suspicious activity", "account taken",
				"password changed", "logged out", "security",
				"malware", "virus", "phishing", "suspicious email",
			},
			patterns: compileAll(
				`account.*compromised`, `password.*changed.*me`,
				`suspicious.*activity`, `unauthorized.*access`,
				`logged.*out.*automatically`,
			),
		},
		{
			// Unstructured but solvable problems
			level:         3,
			keywordWeight: 2.0,
			patternWeight: 2.5,
			keywords: []string{
				"save", "corrupt", "progress lost", "game crash", "freeze", "lag",
				"performance", "slow", "bug", "glitch", "error", "broken",
				"not working", "weird", "strange behavior", "unexpected",
			},
			patterns: compileAll(
				`save.*corrupt`, `progress.*lost`, `game.*crash`,
				`not.*working.*properly`, `weird.*behavior`, `strange.*issue`,
			),
		},
		{
			// Common technical and account issues
			level:         2,
			keywordWeight: 1.5,
			patternWeight: 2.0,
			keywords: []string{
				"crash", "crashes", "login", "sign in", "password", "reset", "forgot",
				"technical", "support", "issue", "problem",
				"won't start", "loading", "connection", "sync",
			},
			patterns: compileAll(
				`can't.*login`, `cannot.*login`, `forgot.*password`, `won't.*start`,
				`loading.*problem`, `connection.*issue`, `sync.*problem`,
			),
		},
		{
			// Simple FAQ questions
			level:         1,
			keywordWeight: 1.0,
			patternWeight: 1.5,
			keywords: []string{
				"how", "what", "when", "where", "why", "explain", "tell me",
				"information", "guide", "tutorial", "learn",
				"feature", "function", "use", "setup",
			},
			patterns: compileAll(
				`how.*do.*i`, `how.*to`, `what.*is`, `how.*does.*work`,
				`can.*you.*explain`, `tell.*me.*about`, `information.*about`,
			),
		},
	}
}
