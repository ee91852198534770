package chain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Call is a dispatchable module call. Implementations are plain structs
// whose exported fields are the call arguments.
type Call interface {
	Module() string
	Name() string
}

// CallName returns "<module>.<name>".
func CallName(c Call) string {
	return c.Module() + "." + c.Name()
}

// Extrinsic is a call with its origin, as carried in a block.
type Extrinsic struct {
	ID          uuid.UUID
	Origin      Origin
	Call        Call
	SubmittedAt time.Time
}

// NewExtrinsic wraps call with a fresh ID.
func NewExtrinsic(origin Origin, call Call) Extrinsic {
	return Extrinsic{ID: uuid.New(), Origin: origin, Call: call, SubmittedAt: time.Now().UTC()}
}

// MarshalJSON flattens the call name next to its arguments.
func (x Extrinsic) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          uuid.UUID `json:"id"`
		Origin      Origin    `json:"origin"`
		Call        string    `json:"call"`
		Args        Call      `json:"args"`
		SubmittedAt time.Time `json:"submitted_at"`
	}{ID: x.ID, Origin: x.Origin, Call: CallName(x.Call), Args: x.Call, SubmittedAt: x.SubmittedAt})
}

// Event is a module event. Data is the module's event struct.
type Event struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Data   any    `json:"data,omitempty"`
}

// Phase tells when in a block an event was deposited.
type Phase string

const (
	PhaseInitialization Phase = "initialization"
	PhaseApplyExtrinsic Phase = "apply_extrinsic"
	PhaseFinalization   Phase = "finalization"
)

// EventRecord is an event with its position in the block.
type EventRecord struct {
	Phase     Phase `json:"phase"`
	Extrinsic int   `json:"extrinsic,omitempty"`
	Event     Event `json:"event"`
}

// ExtrinsicFailed is deposited by the runtime when a dispatch fails.
type ExtrinsicFailed struct {
	ID      uuid.UUID `json:"id"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// ExtrinsicSuccess is deposited by the runtime when a dispatch succeeds.
type ExtrinsicSuccess struct {
	ID uuid.UUID `json:"id"`
}

// Env is what a module sees while handling one call or hook.
type Env struct {
	Number uint64
	State  *Overlay
	events []Event
}

// Deposit queues an event. Events are dropped with the overlay if the
// dispatch fails.
func (e *Env) Deposit(module, name string, data any) {
	e.events = append(e.events, Event{Module: module, Name: name, Data: data})
}

// Events returns the queued events.
func (e *Env) Events() []Event {
	return e.events
}
