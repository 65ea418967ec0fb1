package repository_test

import (
	"context"
	"testing"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNotificationRepository_MarkRead(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	notificationRepo := repository.NewNotificationRepository(gormDB)

	recipientID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	// Обновление затрагивает только уведомления получателя
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "notifications" SET .*"is_read"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	// Act
	count, err := notificationRepo.MarkRead(context.Background(), recipientID, ids)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_MarkRead_EmptyIDs(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	notificationRepo := repository.NewNotificationRepository(gormDB)

	// Act: пустой список - запроса к БД нет
	count, err := notificationRepo.MarkRead(context.Background(), uuid.New(), nil)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_MarkAllRead(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	notificationRepo := repository.NewNotificationRepository(gormDB)

	recipientID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "notifications" SET .*"is_read"`).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	// Act
	count, err := notificationRepo.MarkAllRead(context.Background(), recipientID)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(5), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
