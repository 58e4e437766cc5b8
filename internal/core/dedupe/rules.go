package dedupe

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type Rule string

const (
	RuleExact        Rule = "exact"
	RulePlural       Rule = "plural"
	RuleGerund       Rule = "gerund"
	RuleSynonym      Rule = "synonym"
	RuleWordOverlap  Rule = "word_overlap"
	RuleAbbreviation Rule = "abbreviation"
)

// synonymGroups lists names treated as the same concept. Entries are
// lowercase whole names.
var synonymGroups = [][]string{
	{"method", "methods", "methodology", "methodologies"},
	{"algorithm", "algorithms", "algorithmic"},
	{"model", "models", "modeling", "modelling"},
	{"analysis", "analyses", "analytics"},
	{"optimization", "optimisation", "optimizing", "optimising"},
	{"visualization", "visualisation", "visualizing"},
	{"statistic", "statistics", "statistical"},
	{"probability", "probabilities", "probabilistic"},
	{"technique", "techniques", "technology"},
	{"framework", "frameworks", "library", "libraries"},
}

var synonymIndex = func() map[string]int {
	idx := make(map[string]int)
	for i, group := range synonymGroups {
		for _, name := range group {
			idx[name] = i
		}
	}
	return idx
}()

func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Match reports whether two concept names denote the same concept and the
// first rule that says so.
func (d *Deduplicator) Match(a, b string) (Rule, bool) {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return "", false
	}
	switch {
	case a == b:
		return RuleExact, true
	case a+"s" == b || b+"s" == a:
		return RulePlural, true
	case gerundOf(a, b) || gerundOf(b, a):
		return RuleGerund, true
	case synonyms(a, b):
		return RuleSynonym, true
	case d.wordOverlap(a, b):
		return RuleWordOverlap, true
	case d.abbreviates(a, b) || d.abbreviates(b, a):
		return RuleAbbreviation, true
	}
	return "", false
}

// gerundOf reports whether g is the -ing form of base, allowing a dropped
// trailing e ("compute", "computing").
func gerundOf(base, g string) bool {
	stem, ok := strings.CutSuffix(g, "ing")
	if !ok || utf8.RuneCountInString(stem) < 3 {
		return false
	}
	return base == stem || base == stem+"e"
}

func synonyms(a, b string) bool {
	ga, okA := synonymIndex[a]
	gb, okB := synonymIndex[b]
	return okA && okB && ga == gb
}

func (d *Deduplicator) wordOverlap(a, b string) bool {
	wa, wb := strings.Fields(a), strings.Fields(b)
	if len(wa) < 2 || len(wb) < 2 {
		return false
	}
	set := make(map[string]bool, len(wa))
	for _, w := range wa {
		set[w] = true
	}
	union := len(set)
	inter := 0
	seen := make(map[string]bool, len(wb))
	for _, w := range wb {
		if seen[w] {
			continue
		}
		seen[w] = true
		if set[w] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter)/float64(union) > d.Config.JaccardThreshold
}

// abbreviates reports whether short is an acronym found in the initials of
// the multi-word name long.
func (d *Deduplicator) abbreviates(short, long string) bool {
	n := utf8.RuneCountInString(short)
	if n < 2 || n > d.Config.MaxAbbreviationLen || strings.ContainsRune(short, ' ') {
		return false
	}
	words := strings.FieldsFunc(long, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) < 2 {
		return false
	}
	var initials strings.Builder
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		initials.WriteRune(r)
	}
	return strings.Contains(initials.String(), short)
}
