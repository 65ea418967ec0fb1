package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/notify"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LeaveHandler struct {
	leaveRepo  *repository.LeaveRepository
	userRepo   repository.UserRepositoryInterface
	dispatcher *notify.Dispatcher
}

func NewLeaveHandler(
	leaveRepo *repository.LeaveRepository,
	userRepo repository.UserRepositoryInterface,
	dispatcher *notify.Dispatcher,
) *LeaveHandler {
	return &LeaveHandler{
		leaveRepo:  leaveRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
	}
}

// LeaveRequestBody представляет заявку на отпуск
type LeaveRequestBody struct {
	Type      string    `json:"type" binding:"required,oneof=annual sick unpaid"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
	Reason    string    `json:"reason"`
}

// LeaveDecisionBody представляет решение по заявке
type LeaveDecisionBody struct {
	Approved    *bool  `json:"approved" binding:"required"`
	ReviewNotes string `json:"review_notes"`
}

// LeaveResponse представляет заявку на отпуск в ответе
type LeaveResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Type        string  `json:"type"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Reason      string  `json:"reason,omitempty"`
	Status      string  `json:"status"`
	ReviewedBy  *string `json:"reviewed_by,omitempty"`
	ReviewNotes string  `json:"review_notes,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toLeaveResponse(leave *model.LeaveRequest) LeaveResponse {
	response := LeaveResponse{
		ID:          leave.ID.String(),
		UserID:      leave.UserID.String(),
		Type:        leave.Type,
		StartDate:   leave.StartDate.Format("2006-01-02"),
		EndDate:     leave.EndDate.Format("2006-01-02"),
		Reason:      leave.Reason,
		Status:      leave.Status,
		ReviewNotes: leave.ReviewNotes,
		CreatedAt:   leave.CreatedAt.Format(time.RFC3339),
	}
	if leave.ReviewedBy != nil {
		s := leave.ReviewedBy.String()
		response.ReviewedBy = &s
	}
	return response
}

// Create подает заявку на отпуск
func (h *LeaveHandler) Create(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req LeaveRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	if req.EndDate.Before(req.StartDate) {
		fail(c, http.StatusBadRequest, "End date must not precede start date", nil)
		return
	}

	leave := &model.LeaveRequest{
		UserID:    userID,
		Type:      req.Type,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
		Status:    model.RequestStatusPending,
	}
	if err := h.leaveRepo.Create(c.Request.Context(), leave); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to create leave request", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "leave": toLeaveResponse(leave)})
}

// List возвращает заявки текущего пользователя; менеджер и админ видят все
func (h *LeaveHandler) List(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}

	var leaves []model.LeaveRequest
	if user.IsPrivileged() {
		leaves, err = h.leaveRepo.ListAll(c.Request.Context())
	} else {
		leaves, err = h.leaveRepo.ListForUser(c.Request.Context(), userID)
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve leave requests", err)
		return
	}

	response := make([]LeaveResponse, len(leaves))
	for i := range leaves {
		response[i] = toLeaveResponse(&leaves[i])
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "leaves": response})
}

// Decide рассматривает заявку на отпуск
func (h *LeaveHandler) Decide(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	leaveID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid leave request ID format", err)
		return
	}

	reviewer, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || reviewer == nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}

	// Заявки рассматривают только менеджеры и админы
	if !reviewer.IsPrivileged() {
		fail(c, http.StatusForbidden, "Only managers can review leave requests", nil)
		return
	}

	var req LeaveDecisionBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	leave, err := h.leaveRepo.GetByID(c.Request.Context(), leaveID)
	if err != nil {
		failFor(c, err, "Failed to retrieve leave request")
		return
	}

	if leave.Status != model.RequestStatusPending {
		fail(c, http.StatusBadRequest, "Leave request has already been decided", nil)
		return
	}

	now := time.Now()
	if *req.Approved {
		leave.Status = model.RequestStatusApproved
	} else {
		leave.Status = model.RequestStatusRejected
	}
	leave.ReviewedBy = &userID
	leave.ReviewedAt = &now
	leave.ReviewNotes = req.ReviewNotes

	if err := h.leaveRepo.Update(c.Request.Context(), leave); err != nil {
		failFor(c, err, "Failed to update leave request")
		return
	}

	// Уведомление заявителю - best-effort, решение уже зафиксировано
	h.dispatcher.Deliver(c.Request.Context(), &model.Notification{
		RecipientID: leave.UserID,
		Type:        model.NotifLeaveDecision,
		SenderID:    &userID,
		Message:     fmt.Sprintf("Your %s leave request (%s - %s) was %s", leave.Type, leave.StartDate.Format("2006-01-02"), leave.EndDate.Format("2006-01-02"), leave.Status),
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "leave": toLeaveResponse(leave)})
}
