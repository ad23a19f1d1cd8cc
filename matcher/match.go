// Package matcher pairs report property names with ledger listing names.
package matcher

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	log "github.com/sirupsen/logrus"
)

// Confidence grades an IdentityMatch.
type Confidence string

const (
	ConfidenceExact  Confidence = "exact"
	ConfidenceAlias  Confidence = "alias"
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// Config tunes the similarity function and the greedy assignment.
type Config struct {
	Threshold         float64  `mapstructure:"threshold"`
	HighConfidence    float64  `mapstructure:"high_confidence"`
	ContainmentScore  float64  `mapstructure:"containment_score"`
	DesignatorPenalty float64  `mapstructure:"designator_penalty"`
	Stopwords         []string `mapstructure:"stopwords"`
	UnitKeywords      []string `mapstructure:"unit_keywords"`
	// Aliases maps a ledger listing name to the report name it is known to
	// correspond to. Both sides are compared normalised.
	Aliases map[string]string `mapstructure:"aliases"`
}

// DefaultConfig returns the matcher defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:         0.5,
		HighConfidence:    0.8,
		ContainmentScore:  0.85,
		DesignatorPenalty: 0.5,
		Stopwords:         []string{"the", "a", "an", "and", "or", "in", "at", "to", "for", "with", "by", "of"},
		UnitKeywords:      []string{"unit", "apt", "apartment", "suite", "room", "lot"},
		Aliases:           map[string]string{},
	}
}

// IdentityMatch pairs one report name with one ledger name.
type IdentityMatch struct {
	ReportName string     `json:"report_name"`
	LedgerName string     `json:"ledger_name"`
	Score      float64    `json:"score"`
	Distance   int        `json:"distance"`
	Confidence Confidence `json:"confidence"`
}

// Result is a one-to-one assignment. Every slice is sorted.
type Result struct {
	Matches         []IdentityMatch `json:"matches"`
	UnmatchedReport []string        `json:"unmatched_report"`
	UnmatchedLedger []string        `json:"unmatched_ledger"`
}

// Lookup returns the match for a report name.
func (r Result) Lookup(reportName string) (IdentityMatch, bool) {
	i := sort.Search(len(r.Matches), func(i int) bool { return r.Matches[i].ReportName >= reportName })
	if i < len(r.Matches) && r.Matches[i].ReportName == reportName {
		return r.Matches[i], true
	}
	return IdentityMatch{}, false
}

// Normalize lowercases name, turns every run of non-alphanumerics into a
// single space and trims it.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	space := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

type profile struct {
	normalized  string
	tokens      map[string]bool
	designators map[string]bool
}

type scorer struct {
	cfg          Config
	stopwords    map[string]bool
	unitKeywords map[string]bool
}

func newScorer(cfg Config) scorer {
	s := scorer{cfg: cfg, stopwords: map[string]bool{}, unitKeywords: map[string]bool{}}
	for _, w := range cfg.Stopwords {
		s.stopwords[strings.ToLower(w)] = true
	}
	for _, w := range cfg.UnitKeywords {
		s.unitKeywords[strings.ToLower(w)] = true
	}
	return s
}

// profile splits a name into content tokens and unit designators. The token
// after a unit keyword is a designator, as is a single character following a
// content word ("Monrovia A"). Designators survive stopword removal, so
// "Unit A" keeps its "a" while "A Cozy Cabin" loses its article.
func (s scorer) profile(name string) profile {
	p := profile{normalized: Normalize(name), tokens: map[string]bool{}, designators: map[string]bool{}}
	words := strings.Fields(p.normalized)
	for i, w := range words {
		designator := i > 0 && (s.unitKeywords[words[i-1]] ||
			(len([]rune(w)) == 1 && !s.stopwords[words[i-1]]))
		if designator {
			p.designators[w] = true
		}
		if designator || !s.stopwords[w] {
			p.tokens[w] = true
		}
	}
	return p
}

// Similarity scores two names in [0, 1]. It is symmetric and depends only on
// the normalised names.
func Similarity(a, b string, cfg Config) float64 {
	s := newScorer(withDefaults(cfg))
	return s.score(s.profile(a), s.profile(b))
}

func (s scorer) score(a, b profile) float64 {
	if a.normalized == "" || b.normalized == "" {
		return 0
	}
	if a.normalized == b.normalized {
		return 1
	}
	if len(a.tokens) == 0 || len(b.tokens) == 0 {
		return 0
	}

	shared := 0
	for t := range a.tokens {
		if b.tokens[t] {
			shared++
		}
	}
	score := 2 * float64(shared) / float64(len(a.tokens)+len(b.tokens))
	if shared > 0 && (shared == len(a.tokens) || shared == len(b.tokens)) {
		score = math.Max(score, s.cfg.ContainmentScore)
	}

	// "Unit 1" and "Unit 2" share everything but the part that matters
	if len(a.designators) > 0 && len(b.designators) > 0 && disjoint(a.designators, b.designators) {
		score *= s.cfg.DesignatorPenalty
	}
	return math.Round(score*10000) / 10000
}

func disjoint(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return false
		}
	}
	return true
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.HighConfidence <= 0 {
		cfg.HighConfidence = def.HighConfidence
	}
	if cfg.ContainmentScore <= 0 {
		cfg.ContainmentScore = def.ContainmentScore
	}
	if cfg.DesignatorPenalty <= 0 {
		cfg.DesignatorPenalty = def.DesignatorPenalty
	}
	if cfg.Stopwords == nil {
		cfg.Stopwords = def.Stopwords
	}
	if cfg.UnitKeywords == nil {
		cfg.UnitKeywords = def.UnitKeywords
	}
	return cfg
}

type candidate struct {
	report, ledger string
	score          float64
	distance       int
}

// Match assigns report names to ledger names one-to-one.
//
// Configured aliases are committed first. The remaining pairs scoring at or
// above the threshold are then taken greedily, highest score first, with ties
// broken by shorter edit distance between the normalised names and then by
// report name and ledger name. Report names without a partner stay unmatched.
func Match(reportNames, ledgerNames []string, cfg Config) Result {
	cfg = withDefaults(cfg)
	s := newScorer(cfg)

	reports := uniqueSorted(reportNames)
	ledgers := uniqueSorted(ledgerNames)

	profiles := make(map[string]profile, len(reports)+len(ledgers))
	for _, n := range reports {
		profiles[n] = s.profile(n)
	}
	for _, n := range ledgers {
		profiles[n] = s.profile(n)
	}

	usedReport := make(map[string]bool)
	usedLedger := make(map[string]bool)
	var matches []IdentityMatch

	commit := func(c candidate, confidence Confidence) {
		usedReport[c.report] = true
		usedLedger[c.ledger] = true
		matches = append(matches, IdentityMatch{
			ReportName: c.report,
			LedgerName: c.ledger,
			Score:      c.score,
			Distance:   c.distance,
			Confidence: confidence,
		})
		log.WithFields(log.Fields{
			"report":     c.report,
			"ledger":     c.ledger,
			"score":      c.score,
			"confidence": confidence,
		}).Debug("matched property")
	}

	for _, a := range sortedAliases(cfg.Aliases) {
		for _, l := range ledgers {
			if usedLedger[l] || profiles[l].normalized != a.ledger {
				continue
			}
			for _, r := range reports {
				if usedReport[r] || profiles[r].normalized != a.report {
					continue
				}
				commit(candidate{
					report:   r,
					ledger:   l,
					score:    s.score(profiles[r], profiles[l]),
					distance: levenshtein.ComputeDistance(profiles[r].normalized, profiles[l].normalized),
				}, ConfidenceAlias)
				break
			}
		}
	}

	var candidates []candidate
	for _, r := range reports {
		if usedReport[r] {
			continue
		}
		for _, l := range ledgers {
			if usedLedger[l] {
				continue
			}
			score := s.score(profiles[r], profiles[l])
			if score < cfg.Threshold {
				continue
			}
			candidates = append(candidates, candidate{
				report:   r,
				ledger:   l,
				score:    score,
				distance: levenshtein.ComputeDistance(profiles[r].normalized, profiles[l].normalized),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.report != b.report {
			return a.report < b.report
		}
		return a.ledger < b.ledger
	})

	for _, c := range candidates {
		if usedReport[c.report] || usedLedger[c.ledger] {
			continue
		}
		confidence := ConfidenceMedium
		switch {
		case c.score >= 1:
			confidence = ConfidenceExact
		case c.score >= cfg.HighConfidence:
			confidence = ConfidenceHigh
		}
		commit(c, confidence)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ReportName < matches[j].ReportName })

	result := Result{
		Matches:         matches,
		UnmatchedReport: []string{},
		UnmatchedLedger: []string{},
	}
	if result.Matches == nil {
		result.Matches = []IdentityMatch{}
	}
	for _, r := range reports {
		if !usedReport[r] {
			result.UnmatchedReport = append(result.UnmatchedReport, r)
		}
	}
	for _, l := range ledgers {
		if !usedLedger[l] {
			result.UnmatchedLedger = append(result.UnmatchedLedger, l)
		}
	}
	return result
}

type alias struct {
	ledger, report string
}

func sortedAliases(aliases map[string]string) []alias {
	out := make([]alias, 0, len(aliases))
	for l, r := range aliases {
		out = append(out, alias{ledger: Normalize(l), report: Normalize(r)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ledger != out[j].ledger {
			return out[i].ledger < out[j].ledger
		}
		return out[i].report < out[j].report
	})
	return out
}

func uniqueSorted(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
