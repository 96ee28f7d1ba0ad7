// Package enrich augments raw ESG metrics with model-written narrative.
//
// The coordinator fans out one structured-generation call per pillar,
// bounds each with its own timeout, and merges whatever survives into a
// single document. A failed pillar degrades to an empty enrichment
// object; the merged document always carries all section keys.
package enrich

// itemSource marks list items as model-written rather than measured.
const itemSource = "ai_generated"

// Item is one model-written statement with its provenance tag.
type Item struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// EnvEnrichment is the narrative layer for the environment pillar.
type EnvEnrichment struct {
	Summary    string `json:"summary"`
	Highlights []Item `json:"highlights"`
	Risks      []Item `json:"risks"`
	Actions    []Item `json:"actions"`
	Trends     []Item `json:"trends"`
}

// SocEnrichment is the narrative layer for the social pillar.
type SocEnrichment struct {
	Summary  string `json:"summary"`
	Programs []Item `json:"programs"`
	Actions  []Item `json:"actions"`
	Stories  []Item `json:"stories"`
}

// GovEnrichment is the narrative layer for the governance pillar.
type GovEnrichment struct {
	Summary     string `json:"summary"`
	PolicyNotes []Item `json:"policy_notes"`
	Risks       []Item `json:"risks"`
	Actions     []Item `json:"actions"`
	Disclosures []Item `json:"disclosures"`
}

// Summary collects the per-pillar one-liners. A field is empty when its
// pillar's enrichment call failed.
type Summary struct {
	ESummary string `json:"e_summary"`
	SSummary string `json:"s_summary"`
	GSummary string `json:"g_summary"`
}

func stampItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	for i := range items {
		items[i].Source = itemSource
	}
	return items
}

func (e *EnvEnrichment) stamp() {
	e.Highlights = stampItems(e.Highlights)
	e.Risks = stampItems(e.Risks)
	e.Actions = stampItems(e.Actions)
	e.Trends = stampItems(e.Trends)
}

func (s *SocEnrichment) stamp() {
	s.Programs = stampItems(s.Programs)
	s.Actions = stampItems(s.Actions)
	s.Stories = stampItems(s.Stories)
}

func (g *GovEnrichment) stamp() {
	g.PolicyNotes = stampItems(g.PolicyNotes)
	g.Risks = stampItems(g.Risks)
	g.Actions = stampItems(g.Actions)
	g.Disclosures = stampItems(g.Disclosures)
}
