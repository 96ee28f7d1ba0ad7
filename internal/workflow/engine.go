package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/greenloop/esgpilot/internal/esg"
	"github.com/greenloop/esgpilot/internal/generate"
	"github.com/greenloop/esgpilot/internal/intent"
	"github.com/greenloop/esgpilot/internal/log"
	"github.com/greenloop/esgpilot/internal/session"
)

// maxSteps bounds the engine loop. The graph is acyclic and at most 7
// transitions deep; hitting the bound means a transition bug.
const maxSteps = 16

const chatSystemPrompt = "You are an ESG assistant for business sustainability data. " +
	"Answer using only the entity context and tool outputs provided. Be concise and " +
	"concrete; cite years and figures from the data. Answer in the user's language."

const noEntityGuidance = "No business entity is selected for this conversation. " +
	"Please select an entity first, then ask me about its ESG data, trends, gaps or reports."

// Responder issues the single free-text model call per turn. Satisfied
// by generate.Generator; tests substitute fakes.
type Responder interface {
	Complete(ctx context.Context, system, prompt string, callback generate.StreamCallback) (string, error)
}

// Result is the outcome of one fully processed turn. The response text
// is already persisted when Result is returned; streaming it to the
// caller is the transport's job.
type Result struct {
	SessionID uuid.UUID     `json:"session_id"`
	Intent    intent.Intent `json:"intent"`
	Response  string        `json:"response"`
	Terminal  State         `json:"-"`
	ReportID  uuid.UUID     `json:"report_id,omitempty"`
}

// Engine sequences one conversational turn through the state machine.
//
// Engine is safe for concurrent use; turns for the same session are
// serialized so turn pairs never interleave, while distinct sessions
// proceed in parallel.
type Engine struct {
	data     esg.DataService
	registry *Registry
	gen      Responder
	store    session.Store
	logger   log.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewEngine creates an Engine.
func NewEngine(data esg.DataService, registry *Registry, gen Responder, store session.Store, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		data:     data,
		registry: registry,
		gen:      gen,
		store:    store,
		logger:   logger,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

/// ProcessMessage runs one turn: classify, load context, execute tools,
// generate, persist. The returned Result carries the final text; only a
// store failure makes the whole turn fail.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID uuid.UUID, input string, filters intent.Filters) (*Result, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	agent := NewAgentState(input, filters)
	state := StateStart
	terminal := StateEnd

	for state != StateEnd {
		if agent.Iterations++; agent.Iterations > maxSteps {
			return nil, fmt.Errorf("workflow exceeded %d steps in state %s", maxSteps, state)
		}

		switch state {
		case StateClassifyIntent:
			agent.Intent = intent.Classify(agent.Input, agent.Filters)
			e.logger.Debug("classified intent",
				"session_id", sessionID, "intent", agent.Intent)

		case StateLoadContext:
			e.loadContext(ctx, agent)

		case StateNoEntity:
			terminal = StateNoEntity
			agent.Response = noEntityGuidance

		case StateNoData:
			terminal = StateNoData
			agent.Response = noDataGuidance(agent.Entity, agent.EntityID)

		case StateExecuteTools:
			e.executeTools(ctx, agent)

		case StateGenerateResponse:
			terminal = StateGenerateResponse
			e.generateResponse(ctx, agent)

		case StatePersist:
			if err := e.persist(ctx, sessionID, agent); err != nil {
				return nil, err
			}
		}

		next, err := Transition(state, agent)
		if err != nil {
			return nil, err
		}
		state = next
	}

	return &Result{
		SessionID: sessionID,
		Intent:    agent.Intent,
		Response:  agent.Response,
		Terminal:  terminal,
		ReportID:  agent.ReportID,
	}, nil
}

// loadContext resolves the entity and probes data availability. Any
// collaborator error downgrades to unavailable; the workflow must
// always reach a terminal state.
func (e *Engine) loadContext(ctx context.Context, agent *AgentState) {
	agent.contextLoaded = true

	entity, err := e.data.EntityInfo(ctx, agent.EntityID)
	if err != nil {
		e.logger.Warn("entity lookup failed, treating as no data",
			"entity_id", agent.EntityID, "error", err)
		agent.DataAvailable = false
		return
	}
	agent.Entity = entity

	av, err := e.data.Availability(ctx, agent.EntityID)
	if err != nil {
		e.logger.Warn("availability probe failed, treating as no data",
			"entity_id", agent.EntityID, "error", err)
		agent.DataAvailable = false
		return
	}
	agent.DataAvailable = av.HasData
}

// executeTools runs the intent's tools. Failures land under an "error"
// key in the named output and never abort the turn.
func (e *Engine) executeTools(ctx context.Context, agent *AgentState) {
	req := ToolRequest{
		EntityID: agent.EntityID,
		Category: agent.Filters.Category,
		Period:   agent.Filters.Period,
	}

	for _, name := range ToolsFor(agent.Intent) {
		payload, terr := e.registry.Invoke(ctx, name, req)
		if terr != nil {
			e.logger.Warn("tool failed", "tool", name, "kind", terr.Kind, "error", terr.Err)
			agent.ToolOutputs[string(name)] = map[string]string{
				"error": terr.Error(),
				"kind":  string(terr.Kind),
			}
			continue
		}
		agent.ToolOutputs[string(name)] = payload

		if out, ok := payload.(*ReportOutput); ok {
			agent.ReportID = out.ReportID
		}
	}
}

// generateResponse produces the turn's text. Report turns get a
// structured confirmation without a model call; everything else makes
// exactly one model call, falling back to deterministic text on error.
func (e *Engine) generateResponse(ctx context.Context, agent *AgentState) {
	if agent.Intent == intent.ReportGeneration {
		agent.Response = reportConfirmation(agent)
		return
	}

	text, err := e.gen.Complete(ctx, chatSystemPrompt, buildPrompt(agent), nil)
	if err != nil {
		e.logger.Warn("generation failed, using fallback", "error", err)
		agent.Response = generate.Fallback(agent.Input)
		return
	}
	agent.Response = text
}

// persist appends the user/assistant pair atomically. This is the one
// step allowed to fail the turn: an unpersisted turn cannot be safely
// streamed as done.
func (e *Engine) persist(ctx context.Context, sessionID uuid.UUID, agent *AgentState) error {
	turns := []*session.Turn{
		{Role: session.RoleUser, Content: agent.Input},
		{Role: session.RoleAssistant, Content: agent.Response},
	}
	if err := e.store.AppendTurns(ctx, sessionID, turns); err != nil {
		return fmt.Errorf("persisting turn: %w", err)
	}
	return nil
}

func (e *Engine) sessionLock(sessionID uuid.UUID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[sessionID] = lock
	}
	return lock
}

// noDataGuidance names the entity and walks the categories to upload.
func noDataGuidance(entity *esg.Entity, entityID string) string {
	name := entityID
	if entity != nil && entity.Name != "" {
		name = entity.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "No ESG data has been registered for %s yet. Please upload data first:\n", name)
	b.WriteString("- Environment: yearly energy use, greenhouse gas emissions, renewable energy ratio\n")
	b.WriteString("- Social: employee records (gender, board participation, workplace accidents)\n")
	b.WriteString("- Governance: outside directors, ethics and compliance policies\n")
	b.WriteString("Once data is in, I can show figures, analyze trends, find gaps and generate reports.")
	return b.String()
}

// reportConfirmation is the report path's response: a confirmation with
// the report id on success, a distinguishable failure message otherwise.
func reportConfirmation(agent *AgentState) string {
	if agent.ReportID != uuid.Nil {
		name := agent.EntityID
		if agent.Entity != nil && agent.Entity.Name != "" {
			name = agent.Entity.Name
		}
		return fmt.Sprintf("Your ESG report for %s is ready. Report ID: %s. "+
			"Use it to download or share the report.", name, agent.ReportID)
	}
	return "Report generation failed. The report could not be created from the current " +
		"data; please check the data for this entity and try again."
}

// buildPrompt flattens the accumulated state into the single model
// prompt for this turn.
func buildPrompt(agent *AgentState) string {
	var b strings.Builder

	if agent.Entity != nil {
		fmt.Fprintf(&b, "Entity: %s (industry: %s, sector: %s)\n",
			agent.Entity.Name, agent.Entity.Industry, agent.Entity.Sector)
	}
	fmt.Fprintf(&b, "Intent: %s\n", agent.Intent)
	if agent.Filters.Category != "" {
		fmt.Fprintf(&b, "Requested category: %s\n", agent.Filters.Category)
	}
	if agent.Filters.Period != "" {
		fmt.Fprintf(&b, "Requested period: %s\n", agent.Filters.Period)
	}

	if len(agent.ToolOutputs) > 0 {
		if data, err := json.Marshal(agent.ToolOutputs); err == nil {
			fmt.Fprintf(&b, "Tool outputs:\n%s\n", data)
		}
	}

	fmt.Fprintf(&b, "User message: %s", agent.Input)
	return b.String()
}
