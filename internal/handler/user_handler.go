package handler

import (
	"net/http"
	"strings"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/auth"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/config"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserHandler struct {
	repo repository.UserRepositoryInterface
	cfg  *config.Config
}

func NewUserHandler(repo repository.UserRepositoryInterface, cfg *config.Config) *UserHandler {
	return &UserHandler{repo: repo, cfg: cfg}
}

// RegisterRequest представляет запрос на регистрацию пользователя
type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name" binding:"required,min=2"`
	Password   string `json:"password" binding:"required,min=6"`
	Department string `json:"department"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse представляет ответ с данными пользователя
type UserResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

// AuthResponse представляет ответ с токеном и данными пользователя
type AuthResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:         u.ID.String(),
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		Department: u.Department,
	}
}

// Register регистрирует нового пользователя
// @Summary  Register a new user
// @Tags     Users
// @Accept   json
// @Produce  json
// @Param    request body RegisterRequest true "Registration data"
// @Success  201 {object} AuthResponse
// @Router   /register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	req.Email = strings.ToLower(req.Email)

	existing, err := h.repo.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to check existing user", err)
		return
	}
	if existing != nil {
		fail(c, http.StatusConflict, "User already exists", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to hash password", nil)
		return
	}

	user := &model.User{
		ID:             uuid.New(),
		Email:          req.Email,
		Name:           req.Name,
		HashedPassword: string(hash),
		Role:           model.RoleEmployee,
		Department:     req.Department,
	}

	if err := h.repo.Create(c.Request.Context(), user); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	token, err := auth.GenerateToken(user.ID.String(), h.cfg.JWTSecret, h.cfg.JWTExpiryHours)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		Success: true,
		Token:   token,
		User:    toUserResponse(user),
	})
}

// Login аутентифицирует пользователя и выдает токен
// @Summary  Log in
// @Tags     Users
// @Accept   json
// @Produce  json
// @Param    request body LoginRequest true "Credentials"
// @Success  200 {object} AuthResponse
// @Router   /login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	req.Email = strings.ToLower(req.Email)

	user, err := h.repo.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to look up user", err)
		return
	}
	if user == nil {
		fail(c, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		fail(c, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}

	token, err := auth.GenerateToken(user.ID.String(), h.cfg.JWTSecret, h.cfg.JWTExpiryHours)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Token:   token,
		User:    toUserResponse(user),
	})
}

// Me возвращает профиль текущего пользователя
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}
	if user == nil {
		fail(c, http.StatusNotFound, "User not found", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": toUserResponse(user)})
}

// List возвращает всех пользователей
func (h *UserHandler) List(c *gin.Context) {
	if _, ok := authedUserID(c); !ok {
		return
	}

	users, err := h.repo.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve users", err)
		return
	}

	response := make([]UserResponse, len(users))
	for i := range users {
		response[i] = toUserResponse(&users[i])
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": response})
}

// GetByID возвращает пользователя по ID
func (h *UserHandler) GetByID(c *gin.Context) {
	if _, ok := authedUserID(c); !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID format", err)
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}
	if user == nil {
		fail(c, http.StatusNotFound, "User not found", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": toUserResponse(user)})
}

// UpdateRequest представляет запрос на изменение профиля
type UserUpdateRequest struct {
	Name       *string `json:"name" binding:"omitempty,min=2"`
	Department *string `json:"department"`
	Role       *string `json:"role" binding:"omitempty,oneof=employee manager admin"`
}

// Update изменяет профиль: сам пользователь - имя и отдел, админ - еще и роль
func (h *UserHandler) Update(c *gin.Context) {
	actorID, ok := authedUserID(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID format", err)
		return
	}

	actor, err := h.repo.GetByID(c.Request.Context(), actorID)
	if err != nil || actor == nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}

	// Профиль может менять сам пользователь или админ
	if actorID != id && actor.Role != model.RoleAdmin {
		fail(c, http.StatusForbidden, "You don't have permission to update this user", nil)
		return
	}

	var req UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		return
	}
	if user == nil {
		fail(c, http.StatusNotFound, "User not found", nil)
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.Role != nil {
		// Роли меняет только админ
		if actor.Role != model.RoleAdmin {
			fail(c, http.StatusForbidden, "Only admins can change roles", nil)
			return
		}
		user.Role = *req.Role
	}

	if err := h.repo.Update(c.Request.Context(), user); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to update user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": toUserResponse(user)})
}
