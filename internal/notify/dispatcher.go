package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/repository"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/workflow"
)

// Dispatcher turns workflow effects into persisted notification records.
// Delivery is best-effort: the task transition is already committed when
// Dispatch runs, so failures are logged and never propagated.
type Dispatcher struct {
	notifications repository.NotificationRepositoryInterface
	users         repository.UserRepositoryInterface
	log           zerolog.Logger
}

func NewDispatcher(
	notifications repository.NotificationRepositoryInterface,
	users repository.UserRepositoryInterface,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		log:           log,
	}
}

// Dispatch creates one notification per effect and returns how many were
// written. A recipient is never notified twice for the same event.
func (d *Dispatcher) Dispatch(ctx context.Context, task *model.Task, effects []workflow.Effect) int {
	type dedupKey struct {
		kind      workflow.EffectKind
		recipient uuid.UUID
		assignee  uuid.UUID
	}
	seen := make(map[dedupKey]bool, len(effects))

	created := 0
	for _, effect := range effects {
		key := dedupKey{kind: effect.Kind, recipient: effect.RecipientID}
		if effect.AssigneeID != nil {
			key.assignee = *effect.AssigneeID
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		n := d.build(ctx, task, effect)
		if err := d.notifications.Create(ctx, n); err != nil {
			d.log.Error().Err(err).
				Str("task", task.Code).
				Str("type", n.Type).
				Str("recipient", n.RecipientID.String()).
				Msg("failed to create notification")
			continue
		}
		created++
	}
	return created
}

// Deliver persists a single ready-made notification, best-effort.
func (d *Dispatcher) Deliver(ctx context.Context, n *model.Notification) bool {
	if err := d.notifications.Create(ctx, n); err != nil {
		d.log.Error().Err(err).
			Str("type", n.Type).
			Str("recipient", n.RecipientID.String()).
			Msg("failed to create notification")
		return false
	}
	return true
}

func (d *Dispatcher) build(ctx context.Context, task *model.Task, effect workflow.Effect) *model.Notification {
	n := &model.Notification{
		RecipientID: effect.RecipientID,
		TaskID:      &task.ID,
		AssigneeID:  effect.AssigneeID,
	}
	if effect.ActorID != uuid.Nil {
		actorID := effect.ActorID
		n.SenderID = &actorID
	}

	switch effect.Kind {
	case workflow.EffectCompletionRequested:
		n.Type = model.NotifCompletionRequested
		n.Message = fmt.Sprintf("%s has requested completion of task %q", d.userName(ctx, effect.ActorID), task.Title)
		if effect.Notes != "" {
			n.Message += ": " + effect.Notes
		}
	case workflow.EffectAllCompleted:
		n.Type = model.NotifAllCompleted
		n.Message = fmt.Sprintf("All assignees (%s) have completed their work on task %q", assigneeNames(task), task.Title)
	case workflow.EffectReviewDecision:
		if effect.Approved {
			n.Type = model.NotifReviewApproved
			n.Message = fmt.Sprintf("Your completion of task %q was approved", task.Title)
		} else {
			n.Type = model.NotifReviewRejected
			n.Message = fmt.Sprintf("Your completion of task %q was rejected", task.Title)
		}
		if effect.Notes != "" {
			n.Message += ": " + effect.Notes
		}
	case workflow.EffectNeedsRevision:
		n.Type = model.NotifNeedsRevision
		n.Message = fmt.Sprintf("Task %q needs revision before it can be accepted", task.Title)
	}

	payload := map[string]string{
		"task_id":   task.ID.String(),
		"task_code": task.Code,
		"status":    task.Status,
	}
	if data, err := json.Marshal(payload); err == nil {
		n.Data = data
	}
	return n
}

// userName resolves a display name for messages. Lookup failures degrade to
// a generic label rather than failing the dispatch.
func (d *Dispatcher) userName(ctx context.Context, id uuid.UUID) string {
	user, err := d.users.GetByID(ctx, id)
	if err != nil || user == nil {
		if err != nil {
			d.log.Warn().Err(err).Str("user", id.String()).Msg("failed to resolve user for notification")
		}
		return "An assignee"
	}
	return user.Name
}

func assigneeNames(task *model.Task) string {
	names := make([]string, len(task.Assignees))
	for i, a := range task.Assignees {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}
