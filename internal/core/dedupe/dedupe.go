package dedupe

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/logger"
)

// Deduplicator merges concept records whose names are exact or fuzzy
// duplicates. The most important variant is kept.
type Deduplicator struct {
	Config config.DedupeConfig
	Log    *logger.Logger
}

func NewDeduplicator(cfg config.DedupeConfig, log *logger.Logger) *Deduplicator {
	return &Deduplicator{Config: cfg, Log: logger.OrNop(log)}
}

// Deduplicate repeats merge passes until one merges nothing, so its output
// is a fixed point: deduplicating it again changes nothing.
func (d *Deduplicator) Deduplicate(records []model.ConceptRecord) ([]model.ConceptRecord, model.DedupeReport) {
	report := model.DedupeReport{Input: len(records)}
	current := make([]model.ConceptRecord, len(records))
	for i, r := range records {
		current[i] = cloneRecord(r)
	}

	for {
		next, merged := d.pass(current)
		report.Passes++
		current = next
		if merged == 0 {
			break
		}
	}

	report.Output = len(current)
	if report.Output < report.Input {
		d.Log.Debug("concepts deduplicated",
			"input", report.Input,
			"output", report.Output,
			"passes", report.Passes,
		)
	}
	return current, report
}

func (d *Deduplicator) pass(records []model.ConceptRecord) ([]model.ConceptRecord, int) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ImportanceScore > records[j].ImportanceScore
	})

	kept := make([]model.ConceptRecord, 0, len(records))
	merged := 0
outer:
	for _, r := range records {
		for i := range kept {
			rule, ok := d.Match(kept[i].Name, r.Name)
			if !ok {
				continue
			}
			merge(&kept[i], r, rule != RuleExact)
			merged++
			continue outer
		}
		kept = append(kept, r)
	}
	return kept, merged
}

// merge folds r into k. Fuzzy matches adopt the longer name.
func merge(k *model.ConceptRecord, r model.ConceptRecord, fuzzy bool) {
	k.SourceReferences = model.MergeReferences(k.SourceReferences, r.SourceReferences, model.MaxSourceReferences)
	k.Resources = model.MergeResources(k.Resources, r.Resources, model.MaxResources)
	k.TimeEstimate = max(k.TimeEstimate, r.TimeEstimate)
	k.ImportanceScore = max(k.ImportanceScore, r.ImportanceScore)
	if strings.TrimSpace(k.Description) == "" {
		k.Description = r.Description
	}
	if fuzzy && utf8.RuneCountInString(r.Name) > utf8.RuneCountInString(k.Name) {
		k.Name = r.Name
	}
}

func cloneRecord(r model.ConceptRecord) model.ConceptRecord {
	r.SourceReferences = model.MergeReferences(nil, r.SourceReferences, model.MaxSourceReferences)
	r.Resources = model.MergeResources(nil, r.Resources, model.MaxResources)
	return r
}
