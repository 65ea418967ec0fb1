package handler

import (
	"net/http"
	"time"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/notify"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/repository"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskHandler struct {
	taskRepo   *repository.TaskRepository
	userRepo   repository.UserRepositoryInterface
	dispatcher *notify.Dispatcher
}

func NewTaskHandler(
	taskRepo *repository.TaskRepository,
	userRepo repository.UserRepositoryInterface,
	dispatcher *notify.Dispatcher,
) *TaskHandler {
	return &TaskHandler{taskRepo: taskRepo, userRepo: userRepo, dispatcher: dispatcher}
}

// TaskRequest представляет запрос на создание задачи
type TaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Priority    string     `json:"priority" binding:"omitempty,taskpriority"`
	DueDate     *time.Time `json:"due_date"`
	Department  string     `json:"department"`
	Tags        string     `json:"tags"`
	AssigneeIDs []string   `json:"assignee_ids" binding:"omitempty,dive,uuid"`
}

// TaskUpdateRequest представляет частичное обновление задачи
type TaskUpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority" binding:"omitempty,taskpriority"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
	Department  *string    `json:"department"`
	Tags        *string    `json:"tags"`
	AssigneeIDs *[]string  `json:"assignee_ids" binding:"omitempty,dive,uuid"`
}

// TaskStatusRequest представляет запрос на прямую смену статуса
type TaskStatusRequest struct {
	Status string `json:"status" binding:"required,taskstatus"`
}

// CommentRequest представляет запрос на добавление комментария
type CommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// CompletionResponse представляет состояние завершения одного исполнителя
type CompletionResponse struct {
	AssigneeID   string  `json:"assignee_id"`
	Status       string  `json:"status"`
	RequestedAt  *string `json:"requested_at,omitempty"`
	RequestNotes string  `json:"request_notes,omitempty"`
	ReviewedBy   *string `json:"reviewed_by,omitempty"`
	ReviewedAt   *string `json:"reviewed_at,omitempty"`
	ReviewNotes  string  `json:"review_notes,omitempty"`
}

// TaskResponse представляет ответ с данными задачи
type TaskResponse struct {
	ID          string               `json:"id"`
	Code        string               `json:"code"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Priority    string               `json:"priority"`
	Status      string               `json:"status"`
	DueDate     *string              `json:"due_date,omitempty"`
	Department  string               `json:"department,omitempty"`
	Tags        string               `json:"tags,omitempty"`
	CreatedBy   string               `json:"created_by"`
	AssigneeIDs []string             `json:"assignee_ids"`
	Completions []CompletionResponse `json:"completions"`
	CreatedAt   string               `json:"created_at"`
}

func toTaskResponse(task *model.Task) TaskResponse {
	response := TaskResponse{
		ID:          task.ID.String(),
		Code:        task.Code,
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		Status:      task.Status,
		Department:  task.Department,
		Tags:        task.Tags,
		CreatedBy:   task.CreatedBy.String(),
		AssigneeIDs: make([]string, len(task.Assignees)),
		Completions: make([]CompletionResponse, len(task.Completions)),
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
	}
	if task.DueDate != nil {
		dueDate := task.DueDate.Format(time.RFC3339)
		response.DueDate = &dueDate
	}
	for i, a := range task.Assignees {
		response.AssigneeIDs[i] = a.ID.String()
	}
	for i := range task.Completions {
		entry := &task.Completions[i]
		cr := CompletionResponse{
			AssigneeID:   entry.AssigneeID.String(),
			Status:       entry.Status,
			RequestNotes: entry.RequestNotes,
			ReviewNotes:  entry.ReviewNotes,
		}
		if entry.RequestedAt != nil {
			s := entry.RequestedAt.Format(time.RFC3339)
			cr.RequestedAt = &s
		}
		if entry.ReviewedBy != nil {
			s := entry.ReviewedBy.String()
			cr.ReviewedBy = &s
		}
		if entry.ReviewedAt != nil {
			s := entry.ReviewedAt.Format(time.RFC3339)
			cr.ReviewedAt = &s
		}
		response.Completions[i] = cr
	}
	return response
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// Create создает новую задачу
// @Summary  Create a task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    request body TaskRequest true "Task data"
// @Success  201 {object} TaskResponse
// @Router   /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	// Получаем ID текущего пользователя из контекста
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	// Парсим запрос
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	assigneeIDs, err := parseUUIDs(req.AssigneeIDs)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid assignee ID format", err)
		return
	}

	// Проверяем, что все исполнители существуют
	assignees := make([]model.User, 0, len(assigneeIDs))
	for _, id := range assigneeIDs {
		user, err := h.userRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			fail(c, http.StatusInternalServerError, "Failed to retrieve assignee", err)
			return
		}
		if user == nil {
			fail(c, http.StatusNotFound, "Assignee not found", nil)
			return
		}
		assignees = append(assignees, *user)
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	task := &model.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Status:      model.TaskStatusIncomplete,
		DueDate:     req.DueDate,
		Department:  req.Department,
		Tags:        req.Tags,
		CreatedBy:   userID,
		Assignees:   assignees,
	}

	// Сохраняем задачу в БД
	if err := h.taskRepo.Create(c.Request.Context(), task); err != nil {
		failFor(c, err, "Failed to create task")
		return
	}

	c.JSON(http.StatusCreated, toTaskResponse(task))
}

// List возвращает задачи, созданные пользователем или назначенные на него
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	tasks, err := h.taskRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve tasks", err)
		return
	}

	response := make([]TaskResponse, len(tasks))
	for i := range tasks {
		response[i] = toTaskResponse(&tasks[i])
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": response})
}

// GetByID получает задачу по ID
func (h *TaskHandler) GetByID(c *gin.Context) {
	if _, ok := authedUserID(c); !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid task ID format", err)
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		failFor(c, err, "Failed to retrieve task")
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task))
}

// Update обновляет задачу. Создатель и админ меняют любые поля, исполнитель -
// только описание и теги.
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid task ID format", err)
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		failFor(c, err, "Failed to retrieve task")
		return
	}

	actor, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || actor == nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}

	isCreator := task.CreatedBy == userID
	isAdmin := actor.Role == model.RoleAdmin
	isAssignee := task.IsAssignee(userID)

	if !isCreator && !isAdmin && !isAssignee {
		fail(c, http.StatusForbidden, "You don't have permission to update this task", nil)
		return
	}

	var req TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	upd := repository.TaskUpdate{
		Description: req.Description,
		Tags:        req.Tags,
	}

	// Поля, доступные только создателю и админу
	if req.Title != nil || req.Priority != nil || req.DueDate != nil || req.ClearDue ||
		req.Department != nil || req.AssigneeIDs != nil {
		if !isCreator && !isAdmin {
			fail(c, http.StatusForbidden, "Assignees may only update description and tags", nil)
			return
		}
		upd.Title = req.Title
		upd.Priority = req.Priority
		upd.Department = req.Department
		if req.DueDate != nil {
			upd.DueDate = req.DueDate
			upd.DueDateSet = true
		} else if req.ClearDue {
			upd.DueDateSet = true
		}
		if req.AssigneeIDs != nil {
			ids, err := parseUUIDs(*req.AssigneeIDs)
			if err != nil {
				fail(c, http.StatusBadRequest, "Invalid assignee ID format", err)
				return
			}
			upd.AssigneeIDs = &ids
		}
	}

	updated, effects, err := h.taskRepo.Update(c.Request.Context(), taskID, upd, userID)
	if err != nil {
		failFor(c, err, "Failed to update task")
		return
	}

	// Смена исполнителей могла довести задачу до completion_requested
	h.dispatcher.Dispatch(c.Request.Context(), updated, effects)

	c.JSON(http.StatusOK, toTaskResponse(updated))
}

// SetStatus выполняет прямую смену агрегатного статуса (например, on_hold)
func (h *TaskHandler) SetStatus(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid task ID format", err)
		return
	}

	var req TaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	actor, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || actor == nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}

	updated, err := h.taskRepo.Mutate(c.Request.Context(), taskID, func(task *model.Task) error {
		// Менять статус напрямую могут создатель, исполнитель и админ
		if task.CreatedBy != userID && !task.IsAssignee(userID) && actor.Role != model.RoleAdmin {
			return errAuthz
		}
		_, err := workflow.ApplyStatus(task, req.Status, userID, time.Now())
		return err
	})
	if err != nil {
		if err == errAuthz {
			fail(c, http.StatusForbidden, "You don't have permission to change this task's status", nil)
			return
		}
		failFor(c, err, "Failed to update task status")
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(updated))
}

// Delete мягко удаляет задачу
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid task ID format", err)
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		failFor(c, err, "Failed to retrieve task")
		return
	}

	actor, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || actor == nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}

	// Удалять задачу могут только создатель и админ
	if task.CreatedBy != userID && actor.Role != model.RoleAdmin {
		fail(c, http.StatusForbidden, "You don't have permission to delete this task", nil)
		return
	}

	if err := h.taskRepo.SoftDelete(c.Request.Context(), taskID, userID); err != nil {
		failFor(c, err, "Failed to delete task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted successfully"})
}

// AddComment добавляет комментарий к задаче
func (h *TaskHandler) AddComment(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid task ID format", err)
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	if _, err := h.taskRepo.GetByID(c.Request.Context(), taskID); err != nil {
		failFor(c, err, "Failed to retrieve task")
		return
	}

	comment := &model.TaskComment{
		TaskID:   taskID,
		AuthorID: userID,
		Body:     req.Body,
	}
	if err := h.taskRepo.AddComment(c.Request.Context(), comment); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to add comment", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "comment_id": comment.ID.String()})
}

// GetHistory возвращает журнал изменений задачи
func (h *TaskHandler) GetHistory(c *gin.Context) {
	if _, ok := authedUserID(c); !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid task ID format", err)
		return
	}

	if _, err := h.taskRepo.GetByID(c.Request.Context(), taskID); err != nil {
		failFor(c, err, "Failed to retrieve task")
		return
	}

	history, err := h.taskRepo.GetHistory(c.Request.Context(), taskID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve task history", err)
		return
	}

	type historyEntry struct {
		Field     string `json:"field"`
		OldValue  string `json:"old_value"`
		NewValue  string `json:"new_value"`
		ActorID   string `json:"actor_id"`
		CreatedAt string `json:"created_at"`
	}
	response := make([]historyEntry, len(history))
	for i, entry := range history {
		response[i] = historyEntry{
			Field:     entry.Field,
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			ActorID:   entry.ActorID.String(),
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "history": response})
}
