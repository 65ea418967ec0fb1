package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/workflow"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// TaskUpdate перечисляет поля, которые можно изменить через Update.
// nil означает "поле не передано".
type TaskUpdate struct {
	Title       *string
	Description *string
	Priority    *string
	DueDate     *time.Time
	DueDateSet  bool
	Department  *string
	Tags        *string
	AssigneeIDs *[]uuid.UUID
}

// Create validates and persists a new task, generating its human-readable
// code and seeding a pending completion entry per initial assignee.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if strings.TrimSpace(task.Title) == "" || task.CreatedBy == uuid.Nil {
		return ErrMissingFields
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Code == "" {
		task.Code = generateTaskCode()
	}
	if task.Status == "" {
		task.Status = model.TaskStatusIncomplete
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Assignees", "Completions", "History", "Comments", "Creator").Create(task).Error; err != nil {
			return err
		}
		if len(task.Assignees) > 0 {
			if err := tx.Model(task).Association("Assignees").Append(task.Assignees); err != nil {
				return err
			}
		}
		return reconcileCompletions(tx, task)
	})
}

// GetByID retrieves a live (non-deleted) task with its assignees and
// completion entries
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).
		Preload("Assignees").
		Preload("Completions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Creator").
		First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// GetByIDAny retrieves a task including soft-deleted records. Read paths
// use it only when deleted records are explicitly requested.
func (r *TaskRepository) GetByIDAny(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).Unscoped().
		Preload("Assignees").
		Preload("Completions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// ListForUser retrieves tasks the user created or is assigned to
func (r *TaskRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).
		Preload("Assignees").
		Preload("Completions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Joins("LEFT JOIN task_assignees ON task_assignees.task_id = tasks.id").
		Where("tasks.created_by = ? OR task_assignees.user_id = ?", userID, userID).
		Group("tasks.id").
		Order("tasks.created_at DESC").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// GetHistory retrieves the append-only change log of a task
func (r *TaskRepository) GetHistory(ctx context.Context, taskID uuid.UUID) ([]model.TaskHistory, error) {
	var history []model.TaskHistory
	result := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at").
		Find(&history)
	if result.Error != nil {
		return nil, result.Error
	}
	return history, nil
}

// AddComment appends a comment to a task
func (r *TaskRepository) AddComment(ctx context.Context, comment *model.TaskComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// Update применяет частичное обновление: по одной записи истории на каждое
// реально изменившееся поле, с пересчетом набора записей завершения и
// агрегатного статуса при смене исполнителей. Все в одной транзакции под
// блокировкой строки. Эффекты отдаются вызывающему для отправки после
// фиксации.
func (r *TaskRepository) Update(ctx context.Context, id uuid.UUID, upd TaskUpdate, actorID uuid.UUID) (*model.Task, []workflow.Effect, error) {
	var out *model.Task
	var effects []workflow.Effect
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		now := time.Now()

		applyField(task, "title", &task.Title, upd.Title, actorID, now)
		applyField(task, "description", &task.Description, upd.Description, actorID, now)
		applyField(task, "priority", &task.Priority, upd.Priority, actorID, now)
		applyField(task, "department", &task.Department, upd.Department, actorID, now)
		applyField(task, "tags", &task.Tags, upd.Tags, actorID, now)

		if upd.DueDateSet && !equalTimePtr(task.DueDate, upd.DueDate) {
			appendHistory(task, "dueDate", fmtTimePtr(task.DueDate), fmtTimePtr(upd.DueDate), actorID, now)
			task.DueDate = upd.DueDate
		}

		if upd.AssigneeIDs != nil {
			oldIDs := assigneeIDs(task.Assignees)
			newIDs := uniqueIDs(*upd.AssigneeIDs)
			if !sameIDSet(oldIDs, newIDs) {
				var users []model.User
				if len(newIDs) > 0 {
					if err := tx.Where("id IN ?", newIDs).Find(&users).Error; err != nil {
						return err
					}
					if len(users) != len(newIDs) {
						return ErrUserNotFound
					}
				}
				appendHistory(task, "assignedTo", joinIDs(oldIDs), joinIDs(newIDs), actorID, now)
				if err := tx.Model(task).Association("Assignees").Replace(users); err != nil {
					return err
				}
				task.Assignees = users
				// Смена исполнителей может изменить агрегатный статус:
				// снятие последнего pending-исполнителя завершает запрос,
				// добавление нового откатывает его
				effects = workflow.SyncAggregate(task, actorID, now)
			}
		}

		if err := saveTask(tx, task); err != nil {
			return err
		}
		out = task
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, effects, nil
}

// Mutate выполняет атомарный read-modify-write над одной задачей: строка
// блокируется, fn (машина состояний) изменяет задачу в памяти, затем задача,
// записи завершения и история сохраняются в той же транзакции. Два
// конкурентных запроса завершения от разных исполнителей сериализуются и
// оба попадают в документ.
func (r *TaskRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(task *model.Task) error) (*model.Task, error) {
	var out *model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := fn(task); err != nil {
			return err
		}
		if err := saveTask(tx, task); err != nil {
			return err
		}
		out = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SoftDelete marks a task deleted and records the deletion in its history.
// Tasks are never hard-deleted.
func (r *TaskRepository) SoftDelete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Create(&model.TaskHistory{
			TaskID:   task.ID,
			Field:    "isDeleted",
			OldValue: "false",
			NewValue: "true",
			ActorID:  actorID,
		}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Task{}, "id = ?", id).Error
	})
}

// loadForUpdate читает задачу со всеми принадлежащими ей записями под
// блокировкой FOR UPDATE.
func loadForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if err := tx.Model(&task).Association("Assignees").Find(&task.Assignees); err != nil {
		return nil, err
	}
	if err := tx.Where("task_id = ?", task.ID).Order("created_at").Find(&task.Completions).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// saveTask сохраняет поля задачи и измененные записи завершения, сверяет
// набор записей завершения с текущими исполнителями, затем пишет новые
// записи истории.
func saveTask(tx *gorm.DB, task *model.Task) error {
	if err := tx.Omit("Assignees", "Completions", "History", "Comments", "Creator").Save(task).Error; err != nil {
		return err
	}
	for i := range task.Completions {
		entry := &task.Completions[i]
		if entry.ID == uuid.Nil {
			continue
		}
		if err := tx.Save(entry).Error; err != nil {
			return err
		}
	}
	if err := reconcileCompletions(tx, task); err != nil {
		return err
	}
	for i := range task.History {
		entry := &task.History[i]
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcileCompletions приводит набор записей завершения в соответствие с
// текущими исполнителями: записи снятых исполнителей удаляются, для вновь
// назначенных создаются pending-записи. Выполняется при каждом сохранении.
func reconcileCompletions(tx *gorm.DB, task *model.Task) error {
	for _, rowID := range workflow.ReconcileAssignees(task) {
		if err := tx.Delete(&model.AssigneeCompletion{}, "id = ?", rowID).Error; err != nil {
			return err
		}
	}
	for i := range task.Completions {
		entry := &task.Completions[i]
		if entry.ID != uuid.Nil {
			continue
		}
		// Повторное назначение создает свежую pending-запись; прежняя
		// история при этом сохраняется
		entry.ID = uuid.New()
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
	}
	return nil
}

func applyField(task *model.Task, name string, dst *string, src *string, actorID uuid.UUID, now time.Time) {
	if src == nil || *src == *dst {
		return
	}
	appendHistory(task, name, *dst, *src, actorID, now)
	*dst = *src
}

func appendHistory(task *model.Task, field, oldValue, newValue string, actorID uuid.UUID, now time.Time) {
	task.History = append(task.History, model.TaskHistory{
		TaskID:    task.ID,
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
		ActorID:   actorID,
		CreatedAt: now,
	})
}

func generateTaskCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "TASK-" + strings.ToUpper(raw[:8])
}

func assigneeIDs(users []model.User) []uuid.UUID {
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	var out []uuid.UUID
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func sameIDSet(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[uuid.UUID]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
