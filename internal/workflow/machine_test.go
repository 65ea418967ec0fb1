package workflow_test

import (
	"testing"
	"time"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(creatorID uuid.UUID, assigneeIDs ...uuid.UUID) *model.Task {
	t := &model.Task{
		ID:        uuid.New(),
		Code:      "TASK-0001",
		Title:     "Quarterly report",
		Status:    model.TaskStatusIncomplete,
		Priority:  model.PriorityMedium,
		CreatedBy: creatorID,
	}
	for _, id := range assigneeIDs {
		t.Assignees = append(t.Assignees, model.User{ID: id, Name: "assignee " + id.String()[:8]})
		t.Completions = append(t.Completions, model.AssigneeCompletion{
			TaskID:     t.ID,
			AssigneeID: id,
			Status:     model.CompletionStatusPending,
		})
	}
	return t
}

func TestRequestCompletion_SingleAssignee(t *testing.T) {
	creator := uuid.New()
	assignee := uuid.New()
	task := newTask(creator, assignee)
	now := time.Now()

	effects, err := workflow.RequestCompletion(task, assignee, "done with my part", now)
	require.NoError(t, err)

	// Единственный исполнитель запросил завершение - агрегатный статус
	// должен подняться до completion_requested
	entry := task.CompletionFor(assignee)
	require.NotNil(t, entry)
	assert.Equal(t, model.CompletionStatusRequested, entry.Status)
	assert.Equal(t, "done with my part", entry.RequestNotes)
	require.NotNil(t, entry.RequestedAt)
	assert.Equal(t, model.TaskStatusCompletionRequested, task.Status)
	require.NotNil(t, task.CompletionRequestedAt)

	// Два эффекта: запрос исполнителя + "все завершили", оба создателю
	require.Len(t, effects, 2)
	assert.Equal(t, workflow.EffectCompletionRequested, effects[0].Kind)
	assert.Equal(t, creator, effects[0].RecipientID)
	assert.Equal(t, workflow.EffectAllCompleted, effects[1].Kind)
	assert.Equal(t, creator, effects[1].RecipientID)

	// Две записи истории: статус исполнителя и агрегатный статус
	require.Len(t, task.History, 2)
	assert.Equal(t, "assigneeCompletion."+assignee.String(), task.History[0].Field)
	assert.Equal(t, model.CompletionStatusPending, task.History[0].OldValue)
	assert.Equal(t, model.CompletionStatusRequested, task.History[0].NewValue)
	assert.Equal(t, assignee, task.History[0].ActorID)
	assert.Equal(t, workflow.FieldStatus, task.History[1].Field)
	assert.Equal(t, model.TaskStatusIncomplete, task.History[1].OldValue)
	assert.Equal(t, model.TaskStatusCompletionRequested, task.History[1].NewValue)
}

func TestRequestCompletion_NotAnAssignee(t *testing.T) {
	task := newTask(uuid.New(), uuid.New())

	_, err := workflow.RequestCompletion(task, uuid.New(), "", time.Now())

	assert.ErrorIs(t, err, workflow.ErrNotAssignee)
	assert.Equal(t, model.TaskStatusIncomplete, task.Status)
	assert.Empty(t, task.History)
}

func TestRequestCompletion_SecondRequestIsConflict(t *testing.T) {
	creator := uuid.New()
	assignee := uuid.New()
	task := newTask(creator, assignee)

	_, err := workflow.RequestCompletion(task, assignee, "first", time.Now())
	require.NoError(t, err)

	// Повторный запрос должен отклоняться, состояние не меняется
	historyBefore := len(task.History)
	_, err = workflow.RequestCompletion(task, assignee, "second", time.Now())

	assert.ErrorIs(t, err, workflow.ErrAlreadyRequested)
	assert.Equal(t, "first", task.CompletionFor(assignee).RequestNotes)
	assert.Len(t, task.History, historyBefore)
}

func TestRequestCompletion_CompletedTask(t *testing.T) {
	creator := uuid.New()
	assignee := uuid.New()
	task := newTask(creator, assignee)
	task.Status = model.TaskStatusCompleted

	_, err := workflow.RequestCompletion(task, assignee, "", time.Now())

	assert.ErrorIs(t, err, workflow.ErrTaskCompleted)
}

func TestRequestCompletion_LazyEntryCreation(t *testing.T) {
	creator := uuid.New()
	assignee := uuid.New()
	task := newTask(creator, assignee)
	// Исполнитель назначен, но запись о завершении еще не создана
	task.Completions = nil

	effects, err := workflow.RequestCompletion(task, assignee, "", time.Now())

	require.NoError(t, err)
	require.NotNil(t, task.CompletionFor(assignee))
	assert.Equal(t, model.CompletionStatusRequested, task.CompletionFor(assignee).Status)
	assert.Equal(t, model.TaskStatusCompletionRequested, task.Status)
	assert.Len(t, effects, 2)
}

func TestRequestCompletion_PartialDoesNotAdvanceAggregate(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	b := uuid.New()
	task := newTask(creator, a, b)

	effects, err := workflow.RequestCompletion(task, a, "", time.Now())

	require.NoError(t, err)
	// Второй исполнитель еще не запросил - агрегатный статус не меняется
	assert.Equal(t, model.TaskStatusIncomplete, task.Status)
	require.Len(t, effects, 1)
	assert.Equal(t, workflow.EffectCompletionRequested, effects[0].Kind)
}

func TestReviewCompletions_ApproveAllCompletesTask(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	b := uuid.New()
	task := newTask(creator, a, b)
	now := time.Now()

	_, err := workflow.RequestCompletion(task, a, "", now)
	require.NoError(t, err)
	_, err = workflow.RequestCompletion(task, b, "", now)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusCompletionRequested, task.Status)

	effects, err := workflow.ReviewCompletions(task, creator, true, "good work", nil, now)
	require.NoError(t, err)

	// Оба исполнителя утверждены - задача завершена
	assert.Equal(t, model.CompletionStatusCompleted, task.CompletionFor(a).Status)
	assert.Equal(t, model.CompletionStatusCompleted, task.CompletionFor(b).Status)
	assert.Equal(t, model.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)

	// По одному уведомлению о решении каждому исполнителю
	require.Len(t, effects, 2)
	for _, e := range effects {
		assert.Equal(t, workflow.EffectReviewDecision, e.Kind)
		assert.True(t, e.Approved)
	}
}

func TestReviewCompletions_PartialApprovalLeavesStatus(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	b := uuid.New()
	task := newTask(creator, a, b)
	now := time.Now()

	_, err := workflow.RequestCompletion(task, a, "", now)
	require.NoError(t, err)

	// Утверждаем только A, B еще pending - статус задачи не трогаем
	effects, err := workflow.ReviewCompletions(task, creator, true, "", []uuid.UUID{a}, now)
	require.NoError(t, err)

	assert.Equal(t, model.CompletionStatusCompleted, task.CompletionFor(a).Status)
	assert.Equal(t, model.CompletionStatusPending, task.CompletionFor(b).Status)
	assert.Equal(t, model.TaskStatusIncomplete, task.Status)
	assert.Len(t, effects, 1)
}

func TestReviewCompletions_FullRejectionReopensTask(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	b := uuid.New()
	task := newTask(creator, a, b)
	now := time.Now()

	_, err := workflow.RequestCompletion(task, a, "part a", now)
	require.NoError(t, err)
	_, err = workflow.RequestCompletion(task, b, "part b", now)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusCompletionRequested, task.Status)

	effects, err := workflow.ReviewCompletions(task, creator, false, "redo it", nil, now)
	require.NoError(t, err)

	// Полное отклонение возвращает задачу в работу
	assert.Equal(t, model.TaskStatusIncomplete, task.Status)
	assert.Nil(t, task.CompletionRequestedAt)

	for _, id := range []uuid.UUID{a, b} {
		entry := task.CompletionFor(id)
		assert.Equal(t, model.CompletionStatusRejected, entry.Status)
		// Поля запроса очищены, чтобы исполнитель мог запросить снова
		assert.Nil(t, entry.RequestedAt)
		assert.Empty(t, entry.RequestNotes)
		require.NotNil(t, entry.ReviewedBy)
		assert.Equal(t, creator, *entry.ReviewedBy)
		assert.Equal(t, "redo it", entry.ReviewNotes)
	}

	// Решение + "нужна доработка" каждому из двух исполнителей
	require.Len(t, effects, 4)
	kinds := map[workflow.EffectKind]int{}
	for _, e := range effects {
		kinds[e.Kind]++
	}
	assert.Equal(t, 2, kinds[workflow.EffectReviewDecision])
	assert.Equal(t, 2, kinds[workflow.EffectNeedsRevision])
}

func TestReviewCompletions_NothingToReview(t *testing.T) {
	creator := uuid.New()
	task := newTask(creator, uuid.New())

	_, err := workflow.ReviewCompletions(task, creator, true, "", nil, time.Now())

	assert.ErrorIs(t, err, workflow.ErrNothingToReview)
}

func TestReviewCompletions_TargetOutsideScope(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	b := uuid.New()
	task := newTask(creator, a, b)
	now := time.Now()

	_, err := workflow.RequestCompletion(task, a, "", now)
	require.NoError(t, err)

	// B ничего не запрашивал - ограниченная на B проверка пуста
	_, err = workflow.ReviewCompletions(task, creator, true, "", []uuid.UUID{b}, now)

	assert.ErrorIs(t, err, workflow.ErrNothingToReview)
}

func TestReviewCompletions_RejectedAssigneeCanRequestAgain(t *testing.T) {
	creator := uuid.New()
	assignee := uuid.New()
	task := newTask(creator, assignee)
	now := time.Now()

	_, err := workflow.RequestCompletion(task, assignee, "", now)
	require.NoError(t, err)
	_, err = workflow.ReviewCompletions(task, creator, false, "not yet", nil, now)
	require.NoError(t, err)

	// После отклонения исполнитель может запросить завершение повторно
	effects, err := workflow.RequestCompletion(task, assignee, "fixed", now)

	require.NoError(t, err)
	assert.Equal(t, model.CompletionStatusRequested, task.CompletionFor(assignee).Status)
	assert.Equal(t, model.TaskStatusCompletionRequested, task.Status)
	assert.Len(t, effects, 2)
}

func TestApplyStatus_OnHold(t *testing.T) {
	creator := uuid.New()
	task := newTask(creator, uuid.New())

	_, err := workflow.ApplyStatus(task, model.TaskStatusOnHold, creator, time.Now())

	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusOnHold, task.Status)
	require.Len(t, task.History, 1)
	assert.Equal(t, model.TaskStatusIncomplete, task.History[0].OldValue)
	assert.Equal(t, model.TaskStatusOnHold, task.History[0].NewValue)
}

func TestApplyStatus_InvalidStatus(t *testing.T) {
	task := newTask(uuid.New(), uuid.New())

	_, err := workflow.ApplyStatus(task, "done", uuid.New(), time.Now())

	assert.ErrorIs(t, err, workflow.ErrInvalidStatus)
}

func TestApplyStatus_DemotesUnsupportedCompletionRequested(t *testing.T) {
	creator := uuid.New()
	task := newTask(creator, uuid.New())

	// Клиент пытается форсировать completion_requested, хотя исполнитель
	// ничего не запрашивал
	_, err := workflow.ApplyStatus(task, model.TaskStatusCompletionRequested, creator, time.Now())

	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusIncomplete, task.Status)
	assert.Nil(t, task.CompletionRequestedAt)

	// Обе записи истории: попытка и коррекция
	require.Len(t, task.History, 2)
	assert.Equal(t, model.TaskStatusCompletionRequested, task.History[0].NewValue)
	assert.Equal(t, model.TaskStatusCompletionRequested, task.History[1].OldValue)
	assert.Equal(t, model.TaskStatusIncomplete, task.History[1].NewValue)
}

func TestApplyStatus_ZeroAssigneesNeverCompletionRequested(t *testing.T) {
	creator := uuid.New()
	task := newTask(creator) // без исполнителей

	_, err := workflow.ApplyStatus(task, model.TaskStatusCompletionRequested, creator, time.Now())

	require.NoError(t, err)
	// Задача без исполнителей всегда возвращается в incomplete
	assert.Equal(t, model.TaskStatusIncomplete, task.Status)
}

func TestApplyStatus_NoChangeIsNoop(t *testing.T) {
	task := newTask(uuid.New(), uuid.New())

	_, err := workflow.ApplyStatus(task, model.TaskStatusIncomplete, uuid.New(), time.Now())

	require.NoError(t, err)
	assert.Empty(t, task.History)
}

// Сценарий из двух исполнителей: A запрашивает, затем B, создатель отклоняет
// обоих.
func TestScenario_TwoAssigneesRequestThenFullRejection(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	b := uuid.New()
	task := newTask(creator, a, b)
	now := time.Now()

	// A запрашивает завершение: статус не меняется, одно уведомление создателю
	effects, err := workflow.RequestCompletion(task, a, "", now)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusIncomplete, task.Status)
	require.Len(t, effects, 1)
	assert.Equal(t, creator, effects[0].RecipientID)

	// B запрашивает завершение: статус становится completion_requested,
	// два уведомления (запрос B + "все завершили")
	effects, err = workflow.RequestCompletion(task, b, "", now)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompletionRequested, task.Status)
	require.Len(t, effects, 2)

	// Создатель отклоняет обоих: оба rejected, статус incomplete,
	// 2 уведомления о решении + 2 "нужна доработка"
	effects, err = workflow.ReviewCompletions(task, creator, false, "", nil, now)
	require.NoError(t, err)
	assert.Equal(t, model.CompletionStatusRejected, task.CompletionFor(a).Status)
	assert.Equal(t, model.CompletionStatusRejected, task.CompletionFor(b).Status)
	assert.Equal(t, model.TaskStatusIncomplete, task.Status)
	assert.Len(t, effects, 4)
}

// Каждое изменение статуса - ровно одна запись истории.
func TestHistory_OneEntryPerStatusMutation(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	b := uuid.New()
	task := newTask(creator, a, b)
	now := time.Now()

	_, err := workflow.RequestCompletion(task, a, "", now)
	require.NoError(t, err)
	assert.Len(t, task.History, 1) // только статус A

	_, err = workflow.RequestCompletion(task, b, "", now)
	require.NoError(t, err)
	assert.Len(t, task.History, 3) // статус B + агрегатный статус

	_, err = workflow.ReviewCompletions(task, creator, true, "", nil, now)
	require.NoError(t, err)
	assert.Len(t, task.History, 6) // A, B и агрегатный переход в completed
}

func TestSyncAggregate_RemovingLastPendingAssigneePromotes(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	b := uuid.New()
	task := newTask(creator, a, b)
	now := time.Now()

	_, err := workflow.RequestCompletion(task, a, "", now)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusIncomplete, task.Status)

	// Снимаем исполнителя B, не запросившего завершение: остается только A
	// с requested, агрегатный статус должен подняться
	task.Assignees = task.Assignees[:1]
	effects := workflow.SyncAggregate(task, creator, now)

	assert.Equal(t, model.TaskStatusCompletionRequested, task.Status)
	require.NotNil(t, task.CompletionRequestedAt)
	require.Len(t, effects, 1)
	assert.Equal(t, workflow.EffectAllCompleted, effects[0].Kind)
	assert.Equal(t, creator, effects[0].RecipientID)

	// Переход зафиксирован в истории
	last := task.History[len(task.History)-1]
	assert.Equal(t, workflow.FieldStatus, last.Field)
	assert.Equal(t, model.TaskStatusIncomplete, last.OldValue)
	assert.Equal(t, model.TaskStatusCompletionRequested, last.NewValue)
	assert.Equal(t, creator, last.ActorID)
}

func TestSyncAggregate_AddingAssigneeReopensRequest(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	task := newTask(creator, a)
	now := time.Now()

	_, err := workflow.RequestCompletion(task, a, "", now)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusCompletionRequested, task.Status)

	// Новый исполнитель еще без записи завершения - задача снова не готова
	task.Assignees = append(task.Assignees, model.User{ID: uuid.New(), Name: "newcomer"})
	effects := workflow.SyncAggregate(task, creator, now)

	assert.Equal(t, model.TaskStatusIncomplete, task.Status)
	assert.Nil(t, task.CompletionRequestedAt)
	assert.Empty(t, effects)

	last := task.History[len(task.History)-1]
	assert.Equal(t, workflow.FieldStatus, last.Field)
	assert.Equal(t, model.TaskStatusCompletionRequested, last.OldValue)
	assert.Equal(t, model.TaskStatusIncomplete, last.NewValue)
}

func TestSyncAggregate_RemovingLastUnapprovedAssigneeCompletes(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	b := uuid.New()
	task := newTask(creator, a, b)
	now := time.Now()

	// A одобрен, B так и не взялся за работу
	entry := task.CompletionFor(a)
	entry.Status = model.CompletionStatusCompleted

	task.Assignees = task.Assignees[:1]
	workflow.SyncAggregate(task, creator, now)

	assert.Equal(t, model.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
}

func TestSyncAggregate_PendingAssigneesLeftIsNoop(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	b := uuid.New()
	task := newTask(creator, a, b)

	task.Assignees = task.Assignees[:1]
	effects := workflow.SyncAggregate(task, creator, time.Now())

	assert.Equal(t, model.TaskStatusIncomplete, task.Status)
	assert.Empty(t, effects)
	assert.Empty(t, task.History)
}

func TestReconcileAssignees_RemovalDropsEntry(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	b := uuid.New()
	task := newTask(creator, a, b)
	rowA := uuid.New()
	rowB := uuid.New()
	task.Completions[0].ID = rowA
	task.Completions[1].ID = rowB

	task.Assignees = task.Assignees[:1]
	removed := workflow.ReconcileAssignees(task)

	// Запись снятого исполнителя выпала из набора, ее ID отдан на удаление
	assert.Equal(t, []uuid.UUID{rowB}, removed)
	require.Len(t, task.Completions, 1)
	assert.Equal(t, a, task.Completions[0].AssigneeID)
}

func TestReconcileAssignees_ReAddCreatesFreshPending(t *testing.T) {
	creator := uuid.New()
	a := uuid.New()
	task := newTask(creator, a)
	task.Completions[0].Status = model.CompletionStatusCompleted
	task.Completions[0].ID = uuid.New()

	// Снимаем и тут же возвращаем исполнителя
	task.Assignees = nil
	removed := workflow.ReconcileAssignees(task)
	require.Len(t, removed, 1)
	require.Empty(t, task.Completions)

	task.Assignees = []model.User{{ID: a, Name: "assignee"}}
	removed = workflow.ReconcileAssignees(task)

	// Прежний прогресс не возвращается: запись свежая, pending, без ID
	assert.Empty(t, removed)
	require.Len(t, task.Completions, 1)
	assert.Equal(t, model.CompletionStatusPending, task.Completions[0].Status)
	assert.Equal(t, uuid.Nil, task.Completions[0].ID)
}
