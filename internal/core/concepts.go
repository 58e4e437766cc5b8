package core

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/core/summary"
)

const maxSnippets = 2

// assembleConcepts turns the minimal subgraph into concept records ordered
// by combined importance. Snippets are keyed by record name.
func (e *Engine) assembleConcepts(ctx context.Context, sources []model.Source, minimal *model.Graph, scores *model.CentralityScores) ([]model.ConceptRecord, map[string][]string) {
	nodes := append([]*model.Node(nil), minimal.Nodes()...)
	sort.SliceStable(nodes, func(i, j int) bool {
		return scores.Importance(nodes[i].ID) > scores.Importance(nodes[j].ID)
	})
	if limit := e.Config.Concepts.MaxRecords; limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}

	// Synthetic connectors would merge every component into one module.
	modules, _ := e.Modules.Modules(withoutConnectors(minimal))

	top := 0.0
	if len(nodes) > 0 {
		top = scores.Importance(nodes[0].ID)
	}

	records := make([]model.ConceptRecord, len(nodes))
	snippets := make(map[string][]string, len(nodes))
	for i, n := range nodes {
		mentions := mentioning(sources, n.Label)
		name := displayName(n.Label, mentions)
		records[i] = model.ConceptRecord{
			Name:             name,
			Kind:             n.Kind,
			Resources:        e.resources(ctx, name, mentions),
			TimeEstimate:     e.timeEstimate(scores.Importance(n.ID), top),
			SourceReferences: append([]string{}, n.SourceReferences...),
			ImportanceScore:  scores.Importance(n.ID),
			Module:           modules[n.ID],
		}
		snippets[name] = snippetsAround(n.Label, mentions, e.Config.Concepts.SnippetRunes)
	}
	return records, snippets
}

// snippetsFor lines snippets up with deduplicated records.
func snippetsFor(concepts []model.ConceptRecord, byName map[string][]string) [][]string {
	out := make([][]string, len(concepts))
	for i, c := range concepts {
		out[i] = byName[c.Name]
	}
	return out
}

// timeEstimate scales relative importance onto the configured hour range.
func (e *Engine) timeEstimate(score, top float64) int {
	lo, hi := e.Config.Concepts.MinHours, e.Config.Concepts.MaxHours
	if top <= 0 || math.IsNaN(score) || math.IsNaN(top) {
		return lo
	}
	est := lo + int(math.Round(score/top*float64(hi-lo)))
	return min(max(est, lo), hi)
}

// resources picks up to MaxResources sources mentioning the concept. With
// more candidates than slots, the ranker decides which come first.
func (e *Engine) resources(ctx context.Context, name string, mentions []model.Source) []model.Resource {
	candidates := mentions
	if len(mentions) > model.MaxResources && e.Ranker != nil {
		docs := make([]string, len(mentions))
		for i, s := range mentions {
			docs[i] = s.Title + "\n" + s.Content
		}
		order, err := e.Ranker.Rank(ctx, name, docs)
		if err != nil {
			e.Log.Warn("resource ranking failed, keeping source order", "concept", name, "error", err)
		}
		candidates = make([]model.Source, 0, len(mentions))
		for _, i := range order {
			if i >= 0 && i < len(mentions) {
				candidates = append(candidates, mentions[i])
			}
		}
	}

	list := make([]model.Resource, 0, len(candidates))
	for _, s := range candidates {
		title := s.Title
		if title == "" {
			title = s.URL
		}
		list = append(list, model.Resource{Title: title, URL: s.URL, Type: s.SourceType})
	}
	return model.MergeResources(nil, list, model.MaxResources)
}

// learningModules groups concepts by module and summarizes each group.
func (e *Engine) learningModules(ctx context.Context, topic string, concepts []model.ConceptRecord) []model.LearningModule {
	groups := make(map[int][]model.ConceptRecord)
	var order []int
	for _, c := range concepts {
		if _, ok := groups[c.Module]; !ok {
			order = append(order, c.Module)
		}
		groups[c.Module] = append(groups[c.Module], c)
	}
	sort.Ints(order)

	modules := make([]model.LearningModule, len(order))
	eg, gCtx := errgroup.WithContext(ctx)
	if e.Config.Concurrency.Workers > 0 {
		eg.SetLimit(e.Config.Concurrency.Workers)
	}
	for i, m := range order {
		idx, group := i, groups[m]
		eg.Go(func() error {
			text, err := e.Summarizer.SummarizeModule(gCtx, topic, group)
			if err != nil {
				e.Log.Warn("module summary failed, using template", "module", m, "error", err)
				text = summary.TemplateModuleSummary(group)
			}
			names := make([]string, len(group))
			for j, c := range group {
				names[j] = c.Name
			}
			modules[idx] = model.LearningModule{
				Index:    m,
				Name:     e.Summarizer.NameModule(gCtx, text, group),
				Summary:  text,
				Concepts: names,
			}
			return nil
		})
	}
	_ = eg.Wait()
	return modules
}

func withoutConnectors(g *model.Graph) *model.Graph {
	out := model.NewGraph()
	for _, n := range g.Nodes() {
		_ = out.AddNode(*n)
	}
	for _, e := range g.Edges() {
		if e.ConnectionType != model.InterComponent {
			_ = out.AddEdge(e)
		}
	}
	return out
}

func mentioning(sources []model.Source, label string) []model.Source {
	needle := strings.ToLower(label)
	var out []model.Source
	for _, s := range sources {
		if strings.Contains(s.SearchText(), needle) {
			out = append(out, s)
		}
	}
	return out
}

// findFold locates label in text ignoring case and returns rune offsets
// into text.
func findFold(text, label string) (start, end int, ok bool) {
	r := []rune(text)
	n := utf8.RuneCountInString(label)
	if n == 0 {
		return 0, 0, false
	}
	for i := 0; i+n <= len(r); i++ {
		if strings.EqualFold(string(r[i:i+n]), label) {
			return i, i + n, true
		}
	}
	return 0, 0, false
}

// displayName keeps the casing the first mentioning source uses.
func displayName(label string, mentions []model.Source) string {
	for _, s := range mentions {
		for _, text := range []string{s.Title, s.Content} {
			if start, end, ok := findFold(text, label); ok {
				return string([]rune(text)[start:end])
			}
		}
	}
	return label
}

func snippetsAround(label string, mentions []model.Source, width int) []string {
	out := []string{}
	half := max(width/2, 1)
	for _, s := range mentions {
		if len(out) == maxSnippets {
			break
		}
		start, end, ok := findFold(s.Content, label)
		if !ok {
			continue
		}
		r := []rune(s.Content)
		lo, hi := max(start-half, 0), min(end+half, len(r))
		if lo >= hi {
			continue
		}
		out = append(out, strings.TrimSpace(string(r[lo:hi])))
	}
	return out
}
