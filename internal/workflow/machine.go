package workflow

import (
	"errors"
	"time"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotAssignee      = errors.New("user is not assigned to this task")
	ErrTaskCompleted    = errors.New("task is already completed")
	ErrAlreadyRequested = errors.New("completion already requested")
	ErrNothingToReview  = errors.New("no completion requests to review")
	ErrInvalidStatus    = errors.New("invalid task status")
)

// FieldStatus is the history field name for aggregate status changes.
// Per-assignee changes use "assigneeCompletion.<assigneeID>".
const FieldStatus = "status"

func completionField(assigneeID uuid.UUID) string {
	return "assigneeCompletion." + assigneeID.String()
}

func recordChange(t *model.Task, field, oldValue, newValue string, actorID uuid.UUID, now time.Time) {
	t.History = append(t.History, model.TaskHistory{
		TaskID:    t.ID,
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
		ActorID:   actorID,
		CreatedAt: now,
	})
}

// allComplete reports whether every current assignee has either requested
// completion or been approved. A task with no assignees is never complete.
func allComplete(t *model.Task) bool {
	if len(t.Assignees) == 0 {
		return false
	}
	idx := t.CompletionIndex()
	for _, a := range t.Assignees {
		entry, ok := idx[a.ID]
		if !ok {
			return false
		}
		if entry.Status != model.CompletionStatusRequested && entry.Status != model.CompletionStatusCompleted {
			return false
		}
	}
	return true
}

// allApproved reports whether every current assignee's entry is completed.
func allApproved(t *model.Task) bool {
	if len(t.Assignees) == 0 {
		return false
	}
	idx := t.CompletionIndex()
	for _, a := range t.Assignees {
		entry, ok := idx[a.ID]
		if !ok || entry.Status != model.CompletionStatusCompleted {
			return false
		}
	}
	return true
}

func anyRequested(t *model.Task) bool {
	for i := range t.Completions {
		if t.Completions[i].Status == model.CompletionStatusRequested {
			return true
		}
	}
	return false
}

// RequestCompletion marks the assignee's portion of the task as awaiting
// review. Mutates the task in place and returns the notification effects.
// All preconditions are checked before any mutation.
func RequestCompletion(t *model.Task, assigneeID uuid.UUID, notes string, now time.Time) ([]Effect, error) {
	if !t.IsAssignee(assigneeID) {
		return nil, ErrNotAssignee
	}
	if t.Status == model.TaskStatusCompleted {
		return nil, ErrTaskCompleted
	}

	entry := t.CompletionFor(assigneeID)
	if entry != nil &&
		(entry.Status == model.CompletionStatusRequested || entry.Status == model.CompletionStatusCompleted) {
		return nil, ErrAlreadyRequested
	}
	if entry == nil {
		// Lazily created on the first request if assignment predates the
		// completion bookkeeping.
		t.Completions = append(t.Completions, model.AssigneeCompletion{
			TaskID:     t.ID,
			AssigneeID: assigneeID,
			Status:     model.CompletionStatusPending,
		})
		entry = &t.Completions[len(t.Completions)-1]
	}

	oldStatus := entry.Status
	entry.Status = model.CompletionStatusRequested
	entry.RequestedAt = &now
	entry.RequestNotes = notes
	recordChange(t, completionField(assigneeID), oldStatus, entry.Status, assigneeID, now)

	aid := assigneeID
	effects := []Effect{{
		Kind:        EffectCompletionRequested,
		RecipientID: t.CreatedBy,
		ActorID:     assigneeID,
		AssigneeID:  &aid,
		Notes:       notes,
	}}

	if allComplete(t) && t.Status != model.TaskStatusCompletionRequested {
		recordChange(t, FieldStatus, t.Status, model.TaskStatusCompletionRequested, assigneeID, now)
		t.Status = model.TaskStatusCompletionRequested
		t.CompletionRequestedAt = &now
		effects = append(effects, Effect{
			Kind:        EffectAllCompleted,
			RecipientID: t.CreatedBy,
			ActorID:     assigneeID,
		})
	}

	return effects, nil
}

// ReviewCompletions applies one approve/reject decision to every entry
// currently awaiting review, restricted to targets when given. Reviewer
// authorization is the caller's concern.
func ReviewCompletions(t *model.Task, reviewerID uuid.UUID, approved bool, notes string, targets []uuid.UUID, now time.Time) ([]Effect, error) {
	targetSet := make(map[uuid.UUID]bool, len(targets))
	for _, id := range targets {
		targetSet[id] = true
	}

	var scope []*model.AssigneeCompletion
	for i := range t.Completions {
		entry := &t.Completions[i]
		if entry.Status != model.CompletionStatusRequested {
			continue
		}
		if len(targets) > 0 && !targetSet[entry.AssigneeID] {
			continue
		}
		scope = append(scope, entry)
	}
	if len(scope) == 0 {
		return nil, ErrNothingToReview
	}

	var effects []Effect
	for _, entry := range scope {
		oldStatus := entry.Status
		if approved {
			entry.Status = model.CompletionStatusCompleted
		} else {
			entry.Status = model.CompletionStatusRejected
			// Cleared so the assignee can request again.
			entry.RequestedAt = nil
			entry.RequestNotes = ""
		}
		entry.ReviewedBy = &reviewerID
		entry.ReviewedAt = &now
		entry.ReviewNotes = notes
		recordChange(t, completionField(entry.AssigneeID), oldStatus, entry.Status, reviewerID, now)

		aid := entry.AssigneeID
		effects = append(effects, Effect{
			Kind:        EffectReviewDecision,
			RecipientID: entry.AssigneeID,
			ActorID:     reviewerID,
			AssigneeID:  &aid,
			Approved:    approved,
			Notes:       notes,
		})
		if !approved {
			effects = append(effects, Effect{
				Kind:        EffectNeedsRevision,
				RecipientID: entry.AssigneeID,
				ActorID:     reviewerID,
				AssigneeID:  &aid,
				Notes:       notes,
			})
		}
	}

	switch {
	case approved && allApproved(t):
		recordChange(t, FieldStatus, t.Status, model.TaskStatusCompleted, reviewerID, now)
		t.Status = model.TaskStatusCompleted
		t.CompletedAt = &now
	case !approved && !anyRequested(t) && t.Status == model.TaskStatusCompletionRequested:
		// Full rejection reopens the task.
		recordChange(t, FieldStatus, t.Status, model.TaskStatusIncomplete, reviewerID, now)
		t.Status = model.TaskStatusIncomplete
		t.CompletionRequestedAt = nil
	}

	return effects, nil
}

// ReconcileAssignees aligns the completion entries with the current assignee
// set: entries of removed assignees are dropped (their persisted row IDs are
// returned so the caller can delete them), newly assigned users get a fresh
// pending entry. Prior history rows are left untouched.
func ReconcileAssignees(t *model.Task) []uuid.UUID {
	current := make(map[uuid.UUID]bool, len(t.Assignees))
	for _, a := range t.Assignees {
		current[a.ID] = true
	}

	var removed []uuid.UUID
	kept := t.Completions[:0]
	for _, entry := range t.Completions {
		if !current[entry.AssigneeID] {
			if entry.ID != uuid.Nil {
				removed = append(removed, entry.ID)
			}
			continue
		}
		kept = append(kept, entry)
	}
	t.Completions = kept

	have := make(map[uuid.UUID]bool, len(t.Completions))
	for _, entry := range t.Completions {
		have[entry.AssigneeID] = true
	}
	for _, a := range t.Assignees {
		if have[a.ID] {
			continue
		}
		t.Completions = append(t.Completions, model.AssigneeCompletion{
			TaskID:     t.ID,
			AssigneeID: a.ID,
			Status:     model.CompletionStatusPending,
		})
	}
	return removed
}

// SyncAggregate recomputes the aggregate status after the assignee set
// changed outside the completion flow. Removing the last pending assignee
// can finish the request round (or the whole task, when everyone left is
// approved); adding an assignee to a completion_requested task reopens it.
func SyncAggregate(t *model.Task, actorID uuid.UUID, now time.Time) []Effect {
	switch {
	case t.Status == model.TaskStatusCompletionRequested && !allComplete(t):
		recordChange(t, FieldStatus, t.Status, model.TaskStatusIncomplete, actorID, now)
		t.Status = model.TaskStatusIncomplete
		t.CompletionRequestedAt = nil

	case (t.Status == model.TaskStatusIncomplete || t.Status == model.TaskStatusCompletionRequested) &&
		allApproved(t):
		recordChange(t, FieldStatus, t.Status, model.TaskStatusCompleted, actorID, now)
		t.Status = model.TaskStatusCompleted
		t.CompletedAt = &now

	case t.Status == model.TaskStatusIncomplete && allComplete(t):
		recordChange(t, FieldStatus, t.Status, model.TaskStatusCompletionRequested, actorID, now)
		t.Status = model.TaskStatusCompletionRequested
		t.CompletionRequestedAt = &now
		return []Effect{{
			Kind:        EffectAllCompleted,
			RecipientID: t.CreatedBy,
			ActorID:     actorID,
		}}
	}
	return nil
}

// ApplyStatus sets the aggregate status directly, for manual transitions
// such as on_hold. A completion_requested status that the assignee set does
// not actually support is demoted back to incomplete, with the correction
// recorded in history.
func ApplyStatus(t *model.Task, newStatus string, actorID uuid.UUID, now time.Time) ([]Effect, error) {
	if !model.ValidStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	if newStatus == t.Status {
		return nil, nil
	}

	recordChange(t, FieldStatus, t.Status, newStatus, actorID, now)
	t.Status = newStatus

	switch newStatus {
	case model.TaskStatusCompletionRequested:
		t.CompletionRequestedAt = &now
	case model.TaskStatusCompleted:
		t.CompletedAt = &now
	}

	if t.Status == model.TaskStatusCompletionRequested && !allComplete(t) {
		recordChange(t, FieldStatus, t.Status, model.TaskStatusIncomplete, actorID, now)
		t.Status = model.TaskStatusIncomplete
		t.CompletionRequestedAt = nil
	}

	return nil, nil
}
