// Package report recovers per-property earnings from the text of an earnings
// summary report.
package report

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/aqlanhadi/rentrecon/extractor/common"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Config holds the patterns and labels used to read a report.
type Config struct {
	Patterns      Patterns `mapstructure:"patterns"`
	Labels        Labels   `mapstructure:"labels"`
	RateBand      RateBand `mapstructure:"rate_band"`
	MaxAvgStay    int      `mapstructure:"max_avg_stay"`
	MaxNameLength int      `mapstructure:"max_name_length"`
	IgnoreWords   []string `mapstructure:"ignore_words"`
	IgnoreExact   []string `mapstructure:"ignore_exact"`
}

// Patterns are regular expressions matched against report lines.
type Patterns struct {
	Money         string `mapstructure:"money"`
	StatsRun      string `mapstructure:"stats_run"`
	PaymentMethod string `mapstructure:"payment_method"`
}

// Labels are the summary captions whose value sits on the following line.
type Labels struct {
	Generated         string `mapstructure:"generated"`
	NightsBooked      string `mapstructure:"nights_booked"`
	AvgStay           string `mapstructure:"avg_stay"`
	Adjustments       string `mapstructure:"adjustments"`
	TaxWithheld       string `mapstructure:"tax_withheld"`
	PassThroughTax    string `mapstructure:"pass_through_tax"`
	HostRemittedTax   string `mapstructure:"host_remitted_tax"`
	PlatformRemitted  string `mapstructure:"platform_remitted_tax"`
	Resolutions       string `mapstructure:"resolutions"`
	TotalsLineKeyword string `mapstructure:"totals_keyword"`
}

// DefaultConfig matches the host earnings summary export.
func DefaultConfig() Config {
	return Config{
		Patterns: Patterns{
			Money:         `-?\$\(?[\d,]+(?:\.\d{2})?\)?`,
			StatsRun:      `^\d+(?:\.\d+)?$|^\d+\s+\d+(?:\.\d+)?$`,
			PaymentMethod: `\([A-Z]{3}\)\$`,
		},
		Labels: Labels{
			Generated:         "Report generated:",
			NightsBooked:      "nights booked",
			AvgStay:           "avg night stay",
			Adjustments:       "adjustments",
			TaxWithheld:       "tax withheld",
			PassThroughTax:    "pass through tax",
			HostRemittedTax:   "host remitted tax",
			PlatformRemitted:  "airbnb remitted tax",
			Resolutions:       "resolutions",
			TotalsLineKeyword: "total",
		},
		RateBand:      RateBand{Min: 50, Max: 300},
		MaxAvgStay:    30,
		MaxNameLength: 100,
		IgnoreWords: []string{
			"page ", "airbnb", "report", "period", "summary", "total", "subtotal",
			"earnings statement", "service fee", "gross earnings", "net payout", "performance stats",
		},
		IgnoreExact: []string{"earnings", "homes"},
	}
}

// Extractor reads report text with a compiled Config. It holds no state
// between calls and is safe for concurrent use.
type Extractor struct {
	cfg           Config
	money         *regexp.Regexp
	statsRun      *regexp.Regexp
	paymentMethod *regexp.Regexp
	// ignore and totals hold the configured phrases split into words
	ignore [][]string
	totals []string
}

// NewExtractor compiles the patterns in cfg.
func NewExtractor(cfg Config) (*Extractor, error) {
	money, err := regexp.Compile(cfg.Patterns.Money)
	if err != nil {
		return nil, fmt.Errorf("invalid money pattern: %w", err)
	}
	statsRun, err := regexp.Compile(cfg.Patterns.StatsRun)
	if err != nil {
		return nil, fmt.Errorf("invalid stats run pattern: %w", err)
	}
	paymentMethod, err := regexp.Compile(cfg.Patterns.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("invalid payment method pattern: %w", err)
	}
	if cfg.MaxAvgStay <= 0 {
		cfg.MaxAvgStay = 30
	}
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = 100
	}
	if cfg.Labels.TotalsLineKeyword == "" {
		cfg.Labels.TotalsLineKeyword = "total"
	}
	for _, l := range []*string{
		&cfg.Labels.NightsBooked, &cfg.Labels.AvgStay, &cfg.Labels.Adjustments, &cfg.Labels.TaxWithheld,
		&cfg.Labels.PassThroughTax, &cfg.Labels.HostRemittedTax, &cfg.Labels.PlatformRemitted, &cfg.Labels.Resolutions,
		&cfg.Labels.TotalsLineKeyword,
	} {
		*l = strings.ToLower(strings.TrimSpace(*l))
	}
	e := &Extractor{cfg: cfg, money: money, statsRun: statsRun, paymentMethod: paymentMethod}
	e.totals = words(cfg.Labels.TotalsLineKeyword)
	for _, w := range cfg.IgnoreWords {
		if ws := words(w); len(ws) > 0 {
			e.ignore = append(e.ignore, ws)
		}
	}
	return e, nil
}

// PropertyEarnings is the report view of one listing.
type PropertyEarnings struct {
	Name            string            `json:"name"`
	Gross           decimal.Decimal   `json:"gross"`
	Adjustments     decimal.Decimal   `json:"adjustments"`
	Fees            decimal.Decimal   `json:"fees"`
	TaxWithheld     decimal.Decimal   `json:"tax_withheld"`
	Net             decimal.Decimal   `json:"net"`
	MoneyConfidence common.Confidence `json:"money_confidence"`
	Stats           *StayStats        `json:"stats,omitempty"`
	Active          bool              `json:"active"`
}

// Totals are the portfolio-wide figures. NightsBooked and AvgStay come from
// delimited summary fields and are authoritative when present.
type Totals struct {
	Gross        decimal.Decimal  `json:"gross"`
	Adjustments  decimal.Decimal  `json:"adjustments"`
	Fees         decimal.Decimal  `json:"fees"`
	TaxWithheld  decimal.Decimal  `json:"tax_withheld"`
	Net          decimal.Decimal  `json:"net"`
	Computed     bool             `json:"computed"`
	NightsBooked *int             `json:"nights_booked,omitempty"`
	AvgStay      *decimal.Decimal `json:"avg_stay,omitempty"`
}

// TaxBreakdown holds the tax captions of the summary page.
type TaxBreakdown struct {
	Adjustments      decimal.Decimal `json:"adjustments"`
	TaxWithheld      decimal.Decimal `json:"tax_withheld"`
	PassThroughTax   decimal.Decimal `json:"pass_through_tax"`
	HostRemittedTax  decimal.Decimal `json:"host_remitted_tax"`
	PlatformRemitted decimal.Decimal `json:"platform_remitted_tax"`
	Resolutions      decimal.Decimal `json:"resolutions"`
}

// MonthlyEarnings is one row of the month-by-month breakdown.
type MonthlyEarnings struct {
	Month string          `json:"month"`
	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
}

// Result is everything recovered from one report.
type Result struct {
	Source         string             `json:"source"`
	Period         string             `json:"period"`
	DateRange      *common.DateRange  `json:"date_range,omitempty"`
	GeneratedAt    string             `json:"generated_at,omitempty"`
	Properties     []PropertyEarnings `json:"properties"`
	Totals         Totals             `json:"totals"`
	Taxes          TaxBreakdown       `json:"taxes"`
	Monthly        []MonthlyEarnings  `json:"monthly,omitempty"`
	PaymentMethods []string           `json:"payment_methods,omitempty"`
	Diagnostics    common.Diagnostics `json:"diagnostics"`
}

// Names returns the property names in report order.
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.Properties))
	for _, p := range r.Properties {
		names = append(names, p.Name)
	}
	return names
}

// Property returns the earnings for name.
func (r *Result) Property(name string) (PropertyEarnings, bool) {
	for _, p := range r.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyEarnings{}, false
}

// Extract is a convenience wrapper around NewExtractor and Extractor.Extract.
func Extract(source string, rows []string, cfg Config) (*Result, error) {
	e, err := NewExtractor(cfg)
	if err != nil {
		return nil, err
	}
	return e.Extract(source, rows), nil
}

// ExtractText splits text into lines and extracts it.
func (e *Extractor) ExtractText(source, text string) *Result {
	return e.Extract(source, common.SplitLines(text))
}

// Extract reads report rows. Missing sections leave their fields empty;
// nothing here fails.
func (e *Extractor) Extract(source string, rows []string) *Result {
	result := &Result{
		Source:     strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)),
		Properties: []PropertyEarnings{},
	}
	result.Period, result.DateRange = PeriodFromFilename(source)

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if row = strings.TrimSpace(row); row != "" {
			lines = append(lines, row)
		}
	}
	if len(lines) == 0 {
		result.Diagnostics.Note("report text is empty")
		result.Totals.Computed = true
		return result
	}
	result.Diagnostics.TotalRows = len(lines)

	e.extractSummary(lines, result)

	seen := make(map[string]bool)
	foundTotals := false
	for i, line := range lines {
		matches := e.money.FindAllStringIndex(line, -1)
		if len(matches) == 0 {
			continue
		}
		label := strings.TrimSpace(line[:matches[0][0]])

		if len(matches) >= 3 && e.isTotalsLabel(label) {
			if foundTotals {
				continue
			}
			foundTotals = true
			m := e.moneyFields(line, matches, i+1, &result.Diagnostics)
			result.Totals.Gross = m.gross
			result.Totals.Adjustments = m.adjustments
			result.Totals.Fees = m.fees
			result.Totals.TaxWithheld = m.tax
			result.Totals.Net = m.net
			continue
		}

		if len(matches) < 3 || !e.isPropertyName(label) {
			continue
		}
		if seen[label] {
			log.WithFields(log.Fields{"source": source, "property": label}).Warn("duplicate property line ignored")
			result.Diagnostics.ParseAnomalies++
			continue
		}
		seen[label] = true

		m := e.moneyFields(line, matches, i+1, &result.Diagnostics)
		p := PropertyEarnings{
			Name:            label,
			Gross:           m.gross,
			Adjustments:     m.adjustments,
			Fees:            m.fees,
			TaxWithheld:     m.tax,
			Net:             m.net,
			MoneyConfidence: common.ConfidenceExact,
		}
		p.Active = !(p.Gross.IsZero() && p.Adjustments.IsZero() && p.Fees.IsZero() && p.TaxWithheld.IsZero() && p.Net.IsZero())
		if p.Net.IsNegative() || p.Gross.LessThan(p.Net) {
			result.Diagnostics.ParseAnomalies++
			result.Diagnostics.Note(fmt.Sprintf("%s: expected gross >= net >= 0, got gross %s net %s", p.Name, p.Gross, p.Net))
		}

		// digits trailing the last amount are the property's stats run
		if tail := strings.TrimSpace(line[matches[len(matches)-1][1]:]); tail != "" && e.statsRun.MatchString(tail) {
			e.attachStats(&p, tail, &result.Diagnostics)
		}
		result.Properties = append(result.Properties, p)
	}

	e.extractStatsBlock(lines, result)

	if !foundTotals {
		result.Totals.Computed = true
		for _, p := range result.Properties {
			result.Totals.Gross = result.Totals.Gross.Add(p.Gross)
			result.Totals.Adjustments = result.Totals.Adjustments.Add(p.Adjustments)
			result.Totals.Fees = result.Totals.Fees.Add(p.Fees)
			result.Totals.TaxWithheld = result.Totals.TaxWithheld.Add(p.TaxWithheld)
			result.Totals.Net = result.Totals.Net.Add(p.Net)
		}
		if len(result.Properties) > 0 {
			result.Diagnostics.Note("no totals line found, totals computed from properties")
		}
	}
	if len(result.Properties) == 0 {
		result.Diagnostics.Note("no property lines found")
	}

	log.WithFields(log.Fields{
		"source":         source,
		"properties":     len(result.Properties),
		"ambiguous_runs": result.Diagnostics.AmbiguousRuns,
		"low_confidence": result.Diagnostics.LowConfidence,
	}).Debug("report extracted")

	return result
}

type moneyLine struct {
	gross, adjustments, fees, tax, net decimal.Decimal
}

// moneyFields maps the amounts on a line to columns by how many there are:
// 3 is gross/fees/net, 4 adds adjustments, 5 or more adds tax withheld.
func (e *Extractor) moneyFields(line string, matches [][]int, lineNo int, diag *common.Diagnostics) moneyLine {
	values := make([]decimal.Decimal, len(matches))
	for i, m := range matches {
		raw := line[m[0]:m[1]]
		v, err := common.CleanDecimal(raw)
		if err != nil {
			log.WithField("line", lineNo).Warnf("malformed amount %q treated as 0", raw)
			diag.ParseAnomalies++
			v = decimal.Zero
		}
		values[i] = v
	}

	var out moneyLine
	out.gross = values[0]
	switch len(values) {
	case 3:
		out.fees = values[1].Abs()
		out.net = values[2]
	case 4:
		out.adjustments = values[1]
		out.fees = values[2].Abs()
		out.net = values[3]
	default:
		out.adjustments = values[1]
		out.fees = values[2].Abs()
		out.tax = values[3]
		out.net = values[len(values)-1]
	}
	return out
}

func (e *Extractor) isPropertyName(name string) bool {
	if name == "" || len(name) >= e.cfg.MaxNameLength {
		return false
	}
	if !strings.ContainsFunc(name, unicode.IsLetter) {
		return false
	}
	if isMonthName(name) {
		return false
	}
	return !e.isHeaderOrFooter(name)
}

func (e *Extractor) isHeaderOrFooter(line string) bool {
	lower := strings.ToLower(line)
	for _, w := range e.cfg.IgnoreExact {
		if lower == strings.ToLower(w) {
			return true
		}
	}
	tokens := words(line)
	for _, phrase := range e.ignore {
		if hasPhrase(tokens, phrase) {
			return true
		}
	}
	return false
}

// isTotalsLabel matches the totals keyword as a whole word, also accepting
// its plural and "sub" forms, so "Totally Unrelated Cabin" is a property.
func (e *Extractor) isTotalsLabel(label string) bool {
	tokens := words(label)
	if len(e.totals) == 1 {
		kw := e.totals[0]
		for _, t := range tokens {
			if t == kw || t == kw+"s" || t == "sub"+kw || t == "sub"+kw+"s" {
				return true
			}
		}
		return false
	}
	return hasPhrase(tokens, e.totals)
}

// words lowercases s and splits it on anything that is not a letter or digit.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// hasPhrase reports whether phrase occurs as consecutive tokens.
func hasPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, w := range phrase {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

func isMonthName(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, m := range monthNames {
		if lower == m {
			return true
		}
	}
	return false
}

func (e *Extractor) attachStats(p *PropertyEarnings, raw string, diag *common.Diagnostics) {
	stats, ok := Disambiguate(raw, p.Gross, e.cfg.RateBand, e.cfg.MaxAvgStay)
	if !ok {
		diag.ParseAnomalies++
		return
	}
	if stats.Confidence != common.ConfidenceExact {
		diag.AmbiguousRuns++
	}
	if stats.Confidence == common.ConfidenceLow {
		diag.LowConfidence++
		log.WithFields(log.Fields{"property": p.Name, "run": raw, "rule": stats.Rule}).Warn("stats run outside plausible rate band")
	}
	p.Stats = &stats
}

// extractStatsBlock reads the performance stats section, where each line is
// a property name immediately followed by its stats run. Only names already
// found on money lines are considered and the longest name that leaves a
// valid run wins.
func (e *Extractor) extractStatsBlock(lines []string, result *Result) {
	if len(result.Properties) == 0 {
		return
	}
	for _, line := range lines {
		if strings.Contains(line, "$") {
			continue
		}
		best, bestRun := -1, ""
		for i, p := range result.Properties {
			if !strings.HasPrefix(line, p.Name) {
				continue
			}
			run := strings.TrimSpace(line[len(p.Name):])
			if run == "" || !e.statsRun.MatchString(run) {
				continue
			}
			if best < 0 || len(p.Name) > len(result.Properties[best].Name) {
				best, bestRun = i, run
			}
		}
		if best < 0 {
			continue
		}
		p := &result.Properties[best]
		if p.Stats != nil {
			log.WithField("property", p.Name).Debug("stats already recovered, ignoring later run")
			continue
		}
		e.attachStats(p, bestRun, &result.Diagnostics)
	}
}

// extractSummary reads the captions of the summary page. A caption's value
// sits on the line after it.
func (e *Extractor) extractSummary(lines []string, result *Result) {
	labels := e.cfg.Labels
	for i, line := range lines {
		if labels.Generated != "" && strings.Contains(line, labels.Generated) {
			result.GeneratedAt = strings.TrimSpace(strings.Replace(line, labels.Generated, "", 1))
		}

		if month, ok := monthPrefix(line); ok {
			if amounts := e.money.FindAllString(line, -1); len(amounts) == 2 {
				gross, _ := common.CleanDecimal(amounts[0])
				net, _ := common.CleanDecimal(amounts[1])
				result.Monthly = append(result.Monthly, MonthlyEarnings{Month: month, Gross: gross, Net: net})
			}
		}

		if loc := e.paymentMethod.FindStringIndex(line); loc != nil {
			if method := strings.TrimSpace(line[:strings.Index(line, "$")]); method != "" {
				result.PaymentMethods = append(result.PaymentMethods, method)
			}
		}

		if i+1 >= len(lines) {
			continue
		}
		next := strings.TrimSpace(lines[i+1])
		lower := strings.ToLower(line)

		switch lower {
		case labels.NightsBooked:
			if n, err := strconv.Atoi(strings.ReplaceAll(next, ",", "")); err == nil && n >= 0 {
				result.Totals.NightsBooked = &n
			}
		case labels.AvgStay:
			if d, err := decimal.NewFromString(next); err == nil && d.IsPositive() {
				result.Totals.AvgStay = &d
			}
		case labels.Adjustments:
			result.Taxes.Adjustments = summaryAmount(next, result.Taxes.Adjustments)
		case labels.TaxWithheld:
			result.Taxes.TaxWithheld = summaryAmount(next, result.Taxes.TaxWithheld)
		case labels.PassThroughTax:
			result.Taxes.PassThroughTax = summaryAmount(next, result.Taxes.PassThroughTax)
		case labels.HostRemittedTax:
			result.Taxes.HostRemittedTax = summaryAmount(next, result.Taxes.HostRemittedTax)
		case labels.PlatformRemitted:
			result.Taxes.PlatformRemitted = summaryAmount(next, result.Taxes.PlatformRemitted)
		case labels.Resolutions:
			result.Taxes.Resolutions = summaryAmount(next, result.Taxes.Resolutions)
		}
	}
}

var summaryAmountRegex = regexp.MustCompile(`^-?\$?\(?[\d,]+(?:\.\d+)?\)?$`)

func summaryAmount(next string, current decimal.Decimal) decimal.Decimal {
	if !summaryAmountRegex.MatchString(next) {
		return current
	}
	v, err := common.CleanDecimal(next)
	if err != nil {
		return current
	}
	return v
}

func monthPrefix(line string) (string, bool) {
	i := strings.Index(line, "$")
	if i <= 0 {
		return "", false
	}
	head := strings.TrimSpace(line[:i])
	if !isMonthName(head) {
		return "", false
	}
	return head, true
}
