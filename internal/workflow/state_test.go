package workflow

import (
	"testing"

	"github.com/greenloop/esgpilot/internal/intent"
)

// TestTransitionTable walks every state with every relevant agent
// condition. The graph must be total and acyclic.
func TestTransitionTable(t *testing.T) {
	t.Parallel()

	withEntity := NewAgentState("hi", intent.Filters{EntityID: "ent-1"})
	withoutEntity := NewAgentState("hi", intent.Filters{})
	withData := NewAgentState("hi", intent.Filters{EntityID: "ent-1"})
	withData.DataAvailable = true

	tests := []struct {
		name  string
		state State
		agent *AgentState
		want  State
	}{
		{"start always classifies", StateStart, withoutEntity, StateClassifyIntent},
		{"classify without entity short-circuits", StateClassifyIntent, withoutEntity, StateNoEntity},
		{"classify with entity loads context", StateClassifyIntent, withEntity, StateLoadContext},
		{"context without data short-circuits", StateLoadContext, withEntity, StateNoData},
		{"context with data executes tools", StateLoadContext, withData, StateExecuteTools},
		{"no entity persists guidance", StateNoEntity, withoutEntity, StatePersist},
		{"no data persists guidance", StateNoData, withEntity, StatePersist},
		{"tools always proceed to generation", StateExecuteTools, withData, StateGenerateResponse},
		{"generation persists", StateGenerateResponse, withData, StatePersist},
		{"persist ends", StatePersist, withData, StateEnd},
		{"end is absorbing", StateEnd, withData, StateEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Transition(tt.state, tt.agent)
			if err != nil {
				t.Fatalf("Transition(%v): %v", tt.state, err)
			}
			if got != tt.want {
				t.Errorf("Transition(%v) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

// TestTransitionTerminates verifies every start condition reaches End
// within the step bound.
func TestTransitionTerminates(t *testing.T) {
	t.Parallel()

	agents := map[string]*AgentState{
		"no entity": NewAgentState("hi", intent.Filters{}),
		"no data":   NewAgentState("hi", intent.Filters{EntityID: "e"}),
	}
	withData := NewAgentState("hi", intent.Filters{EntityID: "e"})
	withData.DataAvailable = true
	agents["full path"] = withData

	for name, agent := range agents {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			state := StateStart
			for steps := 0; state != StateEnd; steps++ {
				if steps > maxSteps {
					t.Fatalf("did not terminate, stuck around %v", state)
				}
				next, err := Transition(state, agent)
				if err != nil {
					t.Fatalf("Transition(%v): %v", state, err)
				}
				state = next
			}
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	t.Parallel()

	if _, err := Transition(State(42), NewAgentState("", intent.Filters{})); err == nil {
		t.Error("unknown state should error")
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	names := map[State]string{
		StateStart:            "start",
		StateClassifyIntent:   "classify_intent",
		StateLoadContext:      "load_context",
		StateNoEntity:         "no_entity",
		StateNoData:           "no_data",
		StateExecuteTools:     "execute_tools",
		StateGenerateResponse: "generate_response",
		StatePersist:          "persist",
		StateEnd:              "end",
		State(42):             "unknown",
	}
	for state, want := range names {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
