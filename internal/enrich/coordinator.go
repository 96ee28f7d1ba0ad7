package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/greenloop/esgpilot/internal/esg"
	"github.com/greenloop/esgpilot/internal/log"
)

// ObjectGenerator issues one structured model call. Satisfied by
// generate.Generator; tests substitute fakes.
type ObjectGenerator interface {
	CompleteObject(ctx context.Context, system, prompt string, schema, out any) error
}

// Document is the merged enrichment output. Raw metrics are embedded so
// each section serializes as {...raw, enrichment:{...}}.
type Document struct {
	Environment EnvSection `json:"environment"`
	Social      SocSection `json:"social"`
	Governance  GovSection `json:"governance"`
	Summary     Summary    `json:"summary"`
}

// EnvSection couples raw environment metrics with their narrative.
type EnvSection struct {
	esg.EnvironmentMetrics
	Enrichment EnvEnrichment `json:"enrichment"`
}

// SocSection couples raw social metrics with their narrative.
type SocSection struct {
	esg.SocialMetrics
	Enrichment SocEnrichment `json:"enrichment"`
}

// GovSection couples raw governance metrics with their narrative.
type GovSection struct {
	esg.GovernanceMetrics
	Enrichment GovEnrichment `json:"enrichment"`
}

const enrichSystemPrompt = "You are an ESG reporting analyst. Write concise, factual " +
	"narrative grounded strictly in the metrics provided. Do not invent numbers."

// Coordinator runs the three pillar enrichments concurrently.
//
// Coordinator is safe for concurrent use. Two simultaneous calls with
// the same metrics may both compute; the second Set is a harmless
// overwrite with equivalent content.
type Coordinator struct {
	gen            ObjectGenerator
	cache          Cache
	sectionTimeout time.Duration
	logger         log.Logger
}

// NewCoordinator creates a Coordinator. A zero sectionTimeout defaults
// to 12 seconds.
func NewCoordinator(gen ObjectGenerator, cache Cache, sectionTimeout time.Duration, logger log.Logger) *Coordinator {
	if sectionTimeout <= 0 {
		sectionTimeout = 12 * time.Second
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Coordinator{
		gen:            gen,
		cache:          cache,
		sectionTimeout: sectionTimeout,
		logger:         logger,
	}
}

// Enrich produces the merged enrichment document for a metrics
// snapshot. Identical snapshots hit the cache and return byte-identical
// documents without touching the model.
func (c *Coordinator) Enrich(ctx context.Context, snapshot *esg.MetricsSnapshot) ([]byte, error) {
	key, err := cacheKey(snapshot)
	if err != nil {
		return nil, err
	}
	if cached, ok := c.cache.Get(key); ok {
		c.logger.Debug("enrichment cache hit", "entity_id", snapshot.Entity.ID, "key", key)
		return cached, nil
	}

	doc := Document{
		Environment: EnvSection{EnvironmentMetrics: snapshot.Environment},
		Social:      SocSection{SocialMetrics: snapshot.Social},
		Governance:  GovSection{GovernanceMetrics: snapshot.Governance},
	}

	// Each pillar runs under its own deadline; a failed or slow pillar
	// degrades to an empty enrichment instead of failing the document.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var out EnvEnrichment
		if err := c.section(gctx, "environment", snapshot.Environment, EnvEnrichment{}, &out); err != nil {
			out = EnvEnrichment{}
		}
		out.stamp()
		doc.Environment.Enrichment = out
		doc.Summary.ESummary = out.Summary
		return nil
	})
	g.Go(func() error {
		var out SocEnrichment
		if err := c.section(gctx, "social", snapshot.Social, SocEnrichment{}, &out); err != nil {
			out = SocEnrichment{}
		}
		out.stamp()
		doc.Social.Enrichment = out
		doc.Summary.SSummary = out.Summary
		return nil
	})
	g.Go(func() error {
		var out GovEnrichment
		if err := c.section(gctx, "governance", snapshot.Governance, GovEnrichment{}, &out); err != nil {
			out = GovEnrichment{}
		}
		out.stamp()
		doc.Governance.Enrichment = out
		doc.Summary.GSummary = out.Summary
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling enrichment document: %w", err)
	}

	c.cache.Set(key, merged)
	return merged, nil
}

// section runs one pillar enrichment under the section timeout.
func (c *Coordinator) section(ctx context.Context, name string, metrics, schema, out any) error {
	sctx, cancel := context.WithTimeout(ctx, c.sectionTimeout)
	defer cancel()

	raw, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("marshaling %s metrics: %w", name, err)
	}

	prompt := fmt.Sprintf("Write the %s section narrative for these metrics:\n%s", name, raw)
	if err := c.gen.CompleteObject(sctx, enrichSystemPrompt, prompt, schema, out); err != nil {
		c.logger.Warn("section enrichment failed, using empty enrichment",
			"section", name, "error", err)
		return err
	}
	return nil
}

// cacheKey hashes the canonical JSON form of the raw metrics. The
// snapshot timestamp is excluded so identical data always hits.
func cacheKey(snapshot *esg.MetricsSnapshot) (string, error) {
	canonical := struct {
		Entity      esg.Entity             `json:"entity"`
		Environment esg.EnvironmentMetrics `json:"environment"`
		Social      esg.SocialMetrics      `json:"social"`
		Governance  esg.GovernanceMetrics  `json:"governance"`
	}{
		Entity:      snapshot.Entity,
		Environment: snapshot.Environment,
		Social:      snapshot.Social,
		Governance:  snapshot.Governance,
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("computing cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
