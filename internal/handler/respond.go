package handler

import (
	"errors"
	"net/http"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/middleware"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/repository"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// errAuthz помечает отказ в доступе внутри транзакционного замыкания, чтобы
// наружу ушел 403, а не 500.
var errAuthz = errors.New("forbidden")

// fail отправляет структурированный ответ об ошибке. Наружу уходит только
// текст сообщения, внутренние детали не протекают.
func fail(c *gin.Context, status int, message string, err error) {
	body := gin.H{"success": false, "message": message}
	if err != nil {
		body["error"] = err.Error()
	}
	c.JSON(status, body)
}

// failFor подбирает HTTP-статус по таксономии ошибок: NotFound - 404,
// нарушенные предусловия машины состояний - 400, остальное - 500.
func failFor(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, repository.ErrTaskNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrNotificationNotFound),
		errors.Is(err, repository.ErrLeaveNotFound),
		errors.Is(err, repository.ErrLaborShareNotFound):
		fail(c, http.StatusNotFound, message, err)
	case errors.Is(err, workflow.ErrNotAssignee):
		fail(c, http.StatusForbidden, message, err)
	case errors.Is(err, workflow.ErrAlreadyRequested),
		errors.Is(err, workflow.ErrNothingToReview),
		errors.Is(err, workflow.ErrTaskCompleted),
		errors.Is(err, workflow.ErrInvalidStatus),
		errors.Is(err, repository.ErrQuotaExceeded),
		errors.Is(err, repository.ErrMissingFields):
		fail(c, http.StatusBadRequest, message, err)
	default:
		fail(c, http.StatusInternalServerError, message, err)
	}
}

// authedUserID достает ID аутентифицированного пользователя из контекста.
func authedUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		fail(c, http.StatusUnauthorized, "Not authenticated", nil)
		return uuid.Nil, false
	}

	userID, ok := value.(uuid.UUID)
	if !ok {
		fail(c, http.StatusInternalServerError, "Invalid user ID format", nil)
		return uuid.Nil, false
	}
	return userID, true
}
