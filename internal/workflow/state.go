// Package workflow drives one conversational turn through an explicit
// state machine.
//
// The graph is acyclic: Start -> ClassifyIntent -> {NoEntity | LoadContext}
// -> {NoData | ExecuteTools} -> GenerateResponse -> Persist -> End.
// NoEntity and NoData are short-circuit states that answer with fixed
// guidance and never touch the model. The transition function is pure;
// the engine performs the side effects at each state.
package workflow

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/greenloop/esgpilot/internal/esg"
	"github.com/greenloop/esgpilot/internal/intent"
)

// State identifies one node of the turn-processing graph.
type State int

const (
	StateStart State = iota
	StateClassifyIntent
	StateLoadContext
	StateNoEntity
	StateNoData
	StateExecuteTools
	StateGenerateResponse
	StatePersist
	StateEnd
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateClassifyIntent:
		return "classify_intent"
	case StateLoadContext:
		return "load_context"
	case StateNoEntity:
		return "no_entity"
	case StateNoData:
		return "no_data"
	case StateExecuteTools:
		return "execute_tools"
	case StateGenerateResponse:
		return "generate_response"
	case StatePersist:
		return "persist"
	case StateEnd:
		return "end"
	default:
		return "unknown"
	}
}

// AgentState is the ephemeral working memory of one turn. Created when
// a message arrives, discarded after the turn is persisted.
type AgentState struct {
	Input   string
	Filters intent.Filters

	EntityID string
	Entity   *esg.Entity
	Intent   intent.Intent

	// DataAvailable is meaningful only after LoadContext has run.
	DataAvailable bool
	contextLoaded bool

	// ToolOutputs is keyed by tool name; failures are recorded under an
	// "error" key inside the named entry.
	ToolOutputs map[string]any

	Response string
	ReportID uuid.UUID

	// Iterations counts executed transitions. The graph is acyclic so
	// this is a safety bound, not a loop mechanism.
	Iterations int
}

// NewAgentState prepares working memory for one incoming message.
func NewAgentState(input string, filters intent.Filters) *AgentState {
	return &AgentState{
		Input:       input,
		Filters:     filters,
		EntityID:    filters.EntityID,
		ToolOutputs: make(map[string]any),
	}
}

// Transition is the pure next-state function. It inspects only the
// agent state and never performs side effects, so the full graph is
// exhaustively testable.
func Transition(s State, agent *AgentState) (State, error) {
	switch s {
	case StateStart:
		return StateClassifyIntent, nil
	case StateClassifyIntent:
		if agent.EntityID == "" {
			return StateNoEntity, nil
		}
		return StateLoadContext, nil
	case StateLoadContext:
		if !agent.DataAvailable {
			return StateNoData, nil
		}
		return StateExecuteTools, nil
	case StateNoEntity, StateNoData, StateGenerateResponse:
		return StatePersist, nil
	case StateExecuteTools:
		return StateGenerateResponse, nil
	case StatePersist:
		return StateEnd, nil
	case StateEnd:
		return StateEnd, nil
	default:
		return StateEnd, fmt.Errorf("transition from unknown state %d", s)
	}
}
