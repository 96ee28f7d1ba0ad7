package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/greenloop/esgpilot/internal/esg"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGenerator fills each section's summary, failing the sections
// listed in fail. It counts calls for cache assertions.
type fakeGenerator struct {
	calls atomic.Int64
	fail  map[string]bool
	block bool // wait for context cancellation instead of returning
}

func (f *fakeGenerator) CompleteObject(ctx context.Context, _, prompt string, _, out any) error {
	f.calls.Add(1)

	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}

	section := sectionOf(prompt)
	if f.fail[section] {
		return errors.New("model exploded")
	}

	switch v := out.(type) {
	case *EnvEnrichment:
		v.Summary = "env summary"
		v.Highlights = []Item{{Text: "lower emissions"}}
	case *SocEnrichment:
		v.Summary = "soc summary"
		v.Programs = []Item{{Text: "safety training"}}
	case *GovEnrichment:
		v.Summary = "gov summary"
		v.PolicyNotes = []Item{{Text: "ethics policy in place"}}
	default:
		return fmt.Errorf("unexpected output type %T", out)
	}
	return nil
}

func sectionOf(prompt string) string {
	for _, s := range []string{"environment", "social", "governance"} {
		if strings.Contains(prompt, "the "+s+" section") {
			return s
		}
	}
	return ""
}

func testSnapshot() *esg.MetricsSnapshot {
	return &esg.MetricsSnapshot{
		Entity: esg.Entity{ID: "ent-1", Name: "GreenLoop"},
		Environment: esg.EnvironmentMetrics{
			LatestYear: 2024, EnergyUse: 900, GHGEmissions: 450, RenewableRatio: 0.2,
		},
		Social:     esg.SocialMetrics{EmployeeCount: 40, FemaleRatio: 0.5},
		Governance: esg.GovernanceMetrics{OutsideDirectors: 2, EthicsPolicy: true},
	}
}

func decode(t *testing.T, data []byte) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	return m
}

func TestEnrichAllSectionCombinations(t *testing.T) {
	t.Parallel()

	sections := []string{"environment", "social", "governance"}
	for mask := range 8 {
		fail := map[string]bool{}
		var name []string
		for i, s := range sections {
			if mask&(1<<i) != 0 {
				fail[s] = true
				name = append(name, s)
			}
		}
		title := "fail none"
		if len(name) > 0 {
			title = "fail " + strings.Join(name, "+")
		}

		t.Run(title, func(t *testing.T) {
			t.Parallel()

			gen := &fakeGenerator{fail: fail}
			c := NewCoordinator(gen, NewMemoryCache(), time.Second, nil)

			data, err := c.Enrich(context.Background(), testSnapshot())
			if err != nil {
				t.Fatalf("Enrich: %v", err)
			}

			top := decode(t, data)
			for _, key := range []string{"environment", "social", "governance", "summary"} {
				if _, ok := top[key]; !ok {
					t.Errorf("missing key %q", key)
				}
			}

			var doc Document
			if err := json.Unmarshal(data, &doc); err != nil {
				t.Fatalf("unmarshal typed: %v", err)
			}

			wantEnv := ""
			if !fail["environment"] {
				wantEnv = "env summary"
			}
			if doc.Summary.ESummary != wantEnv {
				t.Errorf("ESummary = %q, want %q", doc.Summary.ESummary, wantEnv)
			}
			if fail["social"] && doc.Summary.SSummary != "" {
				t.Errorf("SSummary = %q, want empty on failure", doc.Summary.SSummary)
			}
			if !fail["governance"] && doc.Summary.GSummary != "gov summary" {
				t.Errorf("GSummary = %q", doc.Summary.GSummary)
			}

			// Raw metrics survive regardless of enrichment outcome.
			if doc.Environment.GHGEmissions != 450 {
				t.Errorf("raw GHGEmissions lost: %v", doc.Environment.GHGEmissions)
			}
			if doc.Social.EmployeeCount != 40 {
				t.Errorf("raw EmployeeCount lost: %v", doc.Social.EmployeeCount)
			}
		})
	}
}

func TestEnrichStampsItemSources(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	c := NewCoordinator(gen, NewMemoryCache(), time.Second, nil)

	data, err := c.Enrich(context.Background(), testSnapshot())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Environment.Enrichment.Highlights) != 1 {
		t.Fatalf("highlights = %v", doc.Environment.Enrichment.Highlights)
	}
	if got := doc.Environment.Enrichment.Highlights[0].Source; got != "ai_generated" {
		t.Errorf("Source = %q, want ai_generated", got)
	}
	// Failed-section lists serialize as empty arrays, not null.
	if doc.Environment.Enrichment.Risks == nil {
		t.Error("empty list should be [], not null")
	}
}

func TestEnrichCacheHit(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	c := NewCoordinator(gen, NewMemoryCache(), time.Second, nil)
	ctx := context.Background()

	first, err := c.Enrich(ctx, testSnapshot())
	if err != nil {
		t.Fatalf("first Enrich: %v", err)
	}
	if got := gen.calls.Load(); got != 3 {
		t.Fatalf("calls after first = %d, want 3", got)
	}

	second, err := c.Enrich(ctx, testSnapshot())
	if err != nil {
		t.Fatalf("second Enrich: %v", err)
	}
	if got := gen.calls.Load(); got != 3 {
		t.Errorf("calls after cache hit = %d, want 3 (zero new calls)", got)
	}
	if !bytes.Equal(first, second) {
		t.Error("cache hit should return byte-identical document")
	}
}

func TestEnrichDifferentSnapshotsMiss(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	c := NewCoordinator(gen, NewMemoryCache(), time.Second, nil)
	ctx := context.Background()

	if _, err := c.Enrich(ctx, testSnapshot()); err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	changed := testSnapshot()
	changed.Environment.GHGEmissions = 999
	if _, err := c.Enrich(ctx, changed); err != nil {
		t.Fatalf("Enrich changed: %v", err)
	}
	if got := gen.calls.Load(); got != 6 {
		t.Errorf("calls = %d, want 6 (changed metrics recompute)", got)
	}
}

func TestEnrichSlowSectionTimesOut(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{block: true}
	c := NewCoordinator(gen, NewMemoryCache(), 50*time.Millisecond, nil)

	start := time.Now()
	data, err := c.Enrich(context.Background(), testSnapshot())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("blocked sections should bound at section timeout, took %v", elapsed)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Summary != (Summary{}) {
		t.Errorf("all sections timed out, summary should be empty: %+v", doc.Summary)
	}
	// Raw metrics still present.
	if doc.Environment.LatestYear != 2024 {
		t.Errorf("raw metrics lost on timeout")
	}
}

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()
	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache should miss")
	}

	c.Set("k", []byte("v1"))
	if v, ok := c.Get("k"); !ok || string(v) != "v1" {
		t.Errorf("Get = %q, %v", v, ok)
	}

	c.Set("k", []byte("v2"))
	if v, _ := c.Get("k"); string(v) != "v2" {
		t.Errorf("overwrite failed: %q", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}
