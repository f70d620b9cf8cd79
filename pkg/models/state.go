package models

// AgentState is the lifecycle state of a research agent.
type AgentState string

const (
	// StateInited means the agent is constructed but execution has not started
	StateInited AgentState = "inited"
	// StateResearching means the agent loop is actively reasoning and acting
	StateResearching AgentState = "researching"
	// StateWaitingForClarification means the agent is suspended until the user answers
	StateWaitingForClarification AgentState = "waiting_for_clarification"
	// StateCompleted means the agent produced a final answer
	StateCompleted AgentState = "completed"
	// StateFailed means the agent gave up or an iteration errored out
	StateFailed AgentState = "failed"
	// StateError means an unrecoverable internal error occurred
	StateError AgentState = "error"
)

// IsValid checks if the agent state is a known value
func (s AgentState) IsValid() bool {
	switch s {
	case StateInited,
		StateResearching,
		StateWaitingForClarification,
		StateCompleted,
		StateFailed,
		StateError:
		return true
	default:
		return false
	}
}

// IsFinished reports whether the state terminates the agent loop.
func (s AgentState) IsFinished() bool {
	switch s {
	case StateCompleted, StateFailed, StateError:
		return true
	default:
		return false
	}
}

// FinishStates returns the set of terminal states.
func FinishStates() []AgentState {
	return []AgentState{StateCompleted, StateFailed, StateError}
}
