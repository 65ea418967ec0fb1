package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/repository"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	repo repository.NotificationRepositoryInterface
}

func NewNotificationHandler(repo repository.NotificationRepositoryInterface) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

// NotificationResponse представляет одно уведомление
type NotificationResponse struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	TaskID     *string `json:"task_id,omitempty"`
	SenderID   *string `json:"sender_id,omitempty"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	Message    string  `json:"message"`
	IsRead     bool    `json:"is_read"`
	CreatedAt  string  `json:"created_at"`
}

// MarkReadRequest представляет запрос на отметку уведомлений прочитанными
type MarkReadRequest struct {
	NotificationIDs []string `json:"notification_ids" binding:"omitempty,dive,uuid"`
	MarkAll         bool     `json:"mark_all"`
}

func toNotificationResponse(n *model.Notification) NotificationResponse {
	response := NotificationResponse{
		ID:        n.ID.String(),
		Type:      n.Type,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.TaskID != nil {
		s := n.TaskID.String()
		response.TaskID = &s
	}
	if n.SenderID != nil {
		s := n.SenderID.String()
		response.SenderID = &s
	}
	if n.AssigneeID != nil {
		s := n.AssigneeID.String()
		response.AssigneeID = &s
	}
	return response
}

// List возвращает страницу уведомлений текущего пользователя
// @Summary  List own notifications
// @Tags     Notifications
// @Security BearerAuth
// @Produce  json
// @Param    unread_only query bool false "Only unread"
// @Param    page        query int  false "Page number"
// @Param    limit       query int  false "Page size"
// @Success  200
// @Router   /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread_only") == "true"
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	notifications, total, err := h.repo.ListForRecipient(c.Request.Context(), userID, unreadOnly, page, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve notifications", err)
		return
	}

	response := make([]NotificationResponse, len(notifications))
	for i := range notifications {
		response[i] = toNotificationResponse(&notifications[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": response,
		"total":         total,
		"page":          page,
		"limit":         limit,
	})
}

// MarkRead отмечает выбранные (или все) уведомления прочитанными
// @Summary  Mark notifications read
// @Tags     Notifications
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    request body MarkReadRequest true "IDs or mark_all"
// @Success  200
// @Router   /notifications/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	if !req.MarkAll && len(req.NotificationIDs) == 0 {
		fail(c, http.StatusBadRequest, "Either notification_ids or mark_all is required", nil)
		return
	}

	var count int64
	var err error
	if req.MarkAll {
		count, err = h.repo.MarkAllRead(c.Request.Context(), userID)
	} else {
		ids, parseErr := parseUUIDs(req.NotificationIDs)
		if parseErr != nil {
			fail(c, http.StatusBadRequest, "Invalid notification ID format", parseErr)
			return
		}
		count, err = h.repo.MarkRead(c.Request.Context(), userID, ids)
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to mark notifications read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "marked_read": count})
}
