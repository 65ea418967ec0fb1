package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/config"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/notify"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LaborShareHandler struct {
	shareRepo  *repository.LaborShareRepository
	userRepo   repository.UserRepositoryInterface
	dispatcher *notify.Dispatcher
	cfg        *config.Config
}

func NewLaborShareHandler(
	shareRepo *repository.LaborShareRepository,
	userRepo repository.UserRepositoryInterface,
	dispatcher *notify.Dispatcher,
	cfg *config.Config,
) *LaborShareHandler {
	return &LaborShareHandler{
		shareRepo:  shareRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// LaborShareRequestBody представляет запрос на временный перевод работников
type LaborShareRequestBody struct {
	FromDepartment string    `json:"from_department" binding:"required"`
	ToDepartment   string    `json:"to_department" binding:"required"`
	WorkerCount    int       `json:"worker_count" binding:"required,min=1"`
	StartDate      time.Time `json:"start_date" binding:"required"`
	EndDate        time.Time `json:"end_date" binding:"required"`
	Reason         string    `json:"reason"`
}

// LaborShareDecisionBody представляет решение по запросу
type LaborShareDecisionBody struct {
	Approved    *bool  `json:"approved" binding:"required"`
	ReviewNotes string `json:"review_notes"`
}

// LaborShareResponse представляет запрос на перевод в ответе
type LaborShareResponse struct {
	ID             string  `json:"id"`
	RequesterID    string  `json:"requester_id"`
	FromDepartment string  `json:"from_department"`
	ToDepartment   string  `json:"to_department"`
	WorkerCount    int     `json:"worker_count"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	Reason         string  `json:"reason,omitempty"`
	Status         string  `json:"status"`
	ReviewedBy     *string `json:"reviewed_by,omitempty"`
	ReviewNotes    string  `json:"review_notes,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

func toLaborShareResponse(share *model.LaborShareRequest) LaborShareResponse {
	response := LaborShareResponse{
		ID:             share.ID.String(),
		RequesterID:    share.RequesterID.String(),
		FromDepartment: share.FromDepartment,
		ToDepartment:   share.ToDepartment,
		WorkerCount:    share.WorkerCount,
		StartDate:      share.StartDate.Format("2006-01-02"),
		EndDate:        share.EndDate.Format("2006-01-02"),
		Reason:         share.Reason,
		Status:         share.Status,
		ReviewNotes:    share.ReviewNotes,
		CreatedAt:      share.CreatedAt.Format(time.RFC3339),
	}
	if share.ReviewedBy != nil {
		s := share.ReviewedBy.String()
		response.ReviewedBy = &s
	}
	return response
}

// Create подает запрос на временный перевод работников между отделами
func (h *LaborShareHandler) Create(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	requester, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || requester == nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}

	// Запросы на перевод подают менеджеры отделов
	if !requester.IsPrivileged() {
		fail(c, http.StatusForbidden, "Only managers can request labor sharing", nil)
		return
	}

	var req LaborShareRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	if req.EndDate.Before(req.StartDate) {
		fail(c, http.StatusBadRequest, "End date must not precede start date", nil)
		return
	}
	if req.FromDepartment == req.ToDepartment {
		fail(c, http.StatusBadRequest, "Source and target departments must differ", nil)
		return
	}

	share := &model.LaborShareRequest{
		RequesterID:    userID,
		FromDepartment: req.FromDepartment,
		ToDepartment:   req.ToDepartment,
		WorkerCount:    req.WorkerCount,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Reason:         req.Reason,
		Status:         model.RequestStatusPending,
	}
	if err := h.shareRepo.CreateWithQuota(c.Request.Context(), share, h.cfg.LaborShareQuota); err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			fail(c, http.StatusBadRequest, "Labor sharing quota exceeded for the source department in this period", err)
			return
		}
		fail(c, http.StatusInternalServerError, "Failed to create labor share request", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "labor_share": toLaborShareResponse(share)})
}

// List возвращает все запросы на перевод (видны менеджерам и админам)
func (h *LaborShareHandler) List(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}
	if !user.IsPrivileged() {
		fail(c, http.StatusForbidden, "Only managers can view labor share requests", nil)
		return
	}

	shares, err := h.shareRepo.List(c.Request.Context(), c.Query("department"))
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve labor share requests", err)
		return
	}

	response := make([]LaborShareResponse, len(shares))
	for i := range shares {
		response[i] = toLaborShareResponse(&shares[i])
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "labor_shares": response})
}

// Decide рассматривает запрос на перевод; доступно только админам
func (h *LaborShareHandler) Decide(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	shareID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid labor share request ID format", err)
		return
	}

	reviewer, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || reviewer == nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}
	if reviewer.Role != model.RoleAdmin {
		fail(c, http.StatusForbidden, "Only admins can decide labor share requests", nil)
		return
	}

	var req LaborShareDecisionBody
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	share, err := h.shareRepo.GetByID(c.Request.Context(), shareID)
	if err != nil {
		failFor(c, err, "Failed to retrieve labor share request")
		return
	}

	if share.Status != model.RequestStatusPending {
		fail(c, http.StatusBadRequest, "Labor share request has already been decided", nil)
		return
	}

	now := time.Now()
	if *req.Approved {
		share.Status = model.RequestStatusApproved
	} else {
		share.Status = model.RequestStatusRejected
	}
	share.ReviewedBy = &userID
	share.ReviewedAt = &now
	share.ReviewNotes = req.ReviewNotes

	if err := h.shareRepo.Update(c.Request.Context(), share); err != nil {
		failFor(c, err, "Failed to update labor share request")
		return
	}

	h.dispatcher.Deliver(c.Request.Context(), &model.Notification{
		RecipientID: share.RequesterID,
		Type:        model.NotifLaborShareDecision,
		SenderID:    &userID,
		Message:     fmt.Sprintf("Your labor share request (%s → %s, %d workers) was %s", share.FromDepartment, share.ToDepartment, share.WorkerCount, share.Status),
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "labor_share": toLaborShareResponse(share)})
}
