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

// WorkflowHandler - оркестратор завершения задач: проверяет полномочия,
// прогоняет машину состояний внутри атомарного обновления и после фиксации
// отдает эффекты диспетчеру уведомлений.
type WorkflowHandler struct {
	taskRepo   *repository.TaskRepository
	userRepo   repository.UserRepositoryInterface
	dispatcher *notify.Dispatcher
}

func NewWorkflowHandler(
	taskRepo *repository.TaskRepository,
	userRepo repository.UserRepositoryInterface,
	dispatcher *notify.Dispatcher,
) *WorkflowHandler {
	return &WorkflowHandler{
		taskRepo:   taskRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
	}
}

// CompletionRequestBody представляет запрос исполнителя на завершение
type CompletionRequestBody struct {
	CompletionNotes string `json:"completion_notes"`
}

// ReviewRequestBody представляет решение проверяющего
type ReviewRequestBody struct {
	Approved    *bool  `json:"approved" binding:"required"`
	ReviewNotes string `json:"review_notes"`
}

// BatchReviewBody представляет решение по явно заданному набору исполнителей
type BatchReviewBody struct {
	TaskID      string   `json:"task_id" binding:"required,uuid"`
	Approved    *bool    `json:"approved" binding:"required"`
	ReviewNotes string   `json:"review_notes"`
	AssigneeIDs []string `json:"assignee_ids" binding:"omitempty,dive,uuid"`
}

// WorkflowResponse представляет результат операции workflow
type WorkflowResponse struct {
	Success              bool         `json:"success"`
	Task                 TaskResponse `json:"task"`
	NotificationsCreated int          `json:"notifications_created"`
}

// RequestCompletion обрабатывает запрос исполнителя на завершение его части
// @Summary  Request completion of own portion
// @Tags     Workflow
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    taskId  path string true "Task ID"
// @Param    request body CompletionRequestBody true "Completion notes"
// @Success  200 {object} WorkflowResponse
// @Router   /tasks/{taskId}/completion-request [post]
func (h *WorkflowHandler) RequestCompletion(c *gin.Context) {
	// Получаем ID текущего пользователя из контекста
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid task ID format", err)
		return
	}

	var req CompletionRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	// Машина состояний выполняется внутри атомарного read-modify-write;
	// эффекты забираем после фиксации
	var effects []workflow.Effect
	task, err := h.taskRepo.Mutate(c.Request.Context(), taskID, func(task *model.Task) error {
		var fnErr error
		effects, fnErr = workflow.RequestCompletion(task, userID, req.CompletionNotes, time.Now())
		return fnErr
	})
	if err != nil {
		failFor(c, err, "Failed to request completion")
		return
	}

	// Уведомления - best-effort, уже после фиксации задачи
	created := h.dispatcher.Dispatch(c.Request.Context(), task, effects)

	c.JSON(http.StatusOK, WorkflowResponse{
		Success:              true,
		Task:                 toTaskResponse(task),
		NotificationsCreated: created,
	})
}

// ReviewCompletion обрабатывает решение по всем ожидающим запросам завершения
// @Summary  Review all pending completion requests
// @Tags     Workflow
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    taskId  path string true "Task ID"
// @Param    request body ReviewRequestBody true "Decision"
// @Success  200 {object} WorkflowResponse
// @Router   /tasks/{taskId}/review-completion [patch]
func (h *WorkflowHandler) ReviewCompletion(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid task ID format", err)
		return
	}

	var req ReviewRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	h.review(c, taskID, *req.Approved, req.ReviewNotes, nil)
}

// BatchReview обрабатывает решение по явно заданному набору исполнителей
// @Summary  Review an explicit set of completion requests
// @Tags     Workflow
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    request body BatchReviewBody true "Scoped decision"
// @Success  200 {object} WorkflowResponse
// @Router   /notifications/batch-review [post]
func (h *WorkflowHandler) BatchReview(c *gin.Context) {
	var req BatchReviewBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid task ID format", err)
		return
	}

	targets, err := parseUUIDs(req.AssigneeIDs)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid assignee ID format", err)
		return
	}

	h.review(c, taskID, *req.Approved, req.ReviewNotes, targets)
}

func (h *WorkflowHandler) review(c *gin.Context, taskID uuid.UUID, approved bool, notes string, targets []uuid.UUID) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	reviewer, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || reviewer == nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}

	var effects []workflow.Effect
	task, err := h.taskRepo.Mutate(c.Request.Context(), taskID, func(task *model.Task) error {
		// Рассматривать завершение могут создатель задачи, менеджер и админ
		if task.CreatedBy != userID && !reviewer.IsPrivileged() {
			return errAuthz
		}
		var fnErr error
		effects, fnErr = workflow.ReviewCompletions(task, userID, approved, notes, targets, time.Now())
		return fnErr
	})
	if err != nil {
		if err == errAuthz {
			fail(c, http.StatusForbidden, "Only the task creator or a manager can review completions", nil)
			return
		}
		failFor(c, err, "Failed to review completion")
		return
	}

	created := h.dispatcher.Dispatch(c.Request.Context(), task, effects)

	c.JSON(http.StatusOK, WorkflowResponse{
		Success:              true,
		Task:                 toTaskResponse(task),
		NotificationsCreated: created,
	})
}
