package workflow

import "github.com/google/uuid"

// EffectKind identifies the notification that a state transition produced.
type EffectKind string

const (
	// EffectCompletionRequested - one assignee asked for review.
	EffectCompletionRequested EffectKind = "completion_requested"
	// EffectAllCompleted - every assignee is now awaiting review or done.
	EffectAllCompleted EffectKind = "all_assignees_completed"
	// EffectReviewDecision - the reviewer approved or rejected one entry.
	EffectReviewDecision EffectKind = "review_decision"
	// EffectNeedsRevision - companion to a rejection, addressed to the assignee.
	EffectNeedsRevision EffectKind = "needs_revision"
)

// Effect is a pending notification returned by the state machine.
// The machine never writes notifications itself; the orchestrator hands
// effects to the dispatcher after the task write commits.
type Effect struct {
	Kind        EffectKind
	RecipientID uuid.UUID
	ActorID     uuid.UUID
	AssigneeID  *uuid.UUID
	Approved    bool
	Notes       string
}
