package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RathodAnilT/ETS-Final-sub001/internal/config"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/handler"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/middleware"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/model"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/notify"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config
}

func Init(cfg *config.Config) (*Server, error) {
	// Setup GORM
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	log.Println("✅ Connected to database")

	if err := db.AutoMigrate(
		&model.User{},
		&model.Task{},
		&model.AssigneeCompletion{},
		&model.TaskHistory{},
		&model.TaskComment{},
		&model.Notification{},
		&model.LeaveRequest{},
		&model.LaborShareRequest{},
	); err != nil {
		return nil, fmt.Errorf("❌ failed to run migrations: %w", err)
	}
	log.Println("✅ Database migrated")

	// Setup Gin
	r := gin.Default()
	registerValidators()

	notifyLog := zerolog.New(os.Stdout).With().Timestamp().Str("component", "notify").Logger()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	laborShareRepo := repository.NewLaborShareRepository(db)

	dispatcher := notify.NewDispatcher(notificationRepo, userRepo, notifyLog)

	// Initialize handlers
	userHandler := handler.NewUserHandler(userRepo, cfg)
	taskHandler := handler.NewTaskHandler(taskRepo, userRepo, dispatcher)
	workflowHandler := handler.NewWorkflowHandler(taskRepo, userRepo, dispatcher)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)
	leaveHandler := handler.NewLeaveHandler(leaveRepo, userRepo, dispatcher)
	laborShareHandler := handler.NewLaborShareHandler(laborShareRepo, userRepo, dispatcher, cfg)

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		// User routes
		authorized.GET("/users/me", userHandler.Me)
		authorized.GET("/users", userHandler.List)
		authorized.GET("/users/:id", userHandler.GetByID)
		authorized.PUT("/users/:id", userHandler.Update)

		// Task routes
		authorized.POST("/tasks", taskHandler.Create)
		authorized.GET("/tasks", taskHandler.List)
		authorized.GET("/tasks/:id", taskHandler.GetByID)
		authorized.PUT("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)
		authorized.PATCH("/tasks/:id/status", taskHandler.SetStatus)
		authorized.POST("/tasks/:id/comments", taskHandler.AddComment)
		authorized.GET("/tasks/:id/history", taskHandler.GetHistory)

		// Completion workflow routes
		authorized.POST("/tasks/:id/completion-request", workflowHandler.RequestCompletion)
		authorized.PATCH("/tasks/:id/review-completion", workflowHandler.ReviewCompletion)

		// Notification routes
		authorized.GET("/notifications", notificationHandler.List)
		authorized.PATCH("/notifications/read", notificationHandler.MarkRead)
		authorized.POST("/notifications/batch-review", workflowHandler.BatchReview)

		// Leave routes
		authorized.POST("/leaves", leaveHandler.Create)
		authorized.GET("/leaves", leaveHandler.List)
		authorized.PATCH("/leaves/:id/decision", leaveHandler.Decide)

		// Labor sharing routes
		authorized.POST("/labor-shares", laborShareHandler.Create)
		authorized.GET("/labor-shares", laborShareHandler.List)
		authorized.PATCH("/labor-shares/:id/decision", laborShareHandler.Decide)
	}
	return &Server{
		Engine: r,
		DB:     db,
		Config: cfg,
	}, nil
}

// registerValidators добавляет кастомные binding-теги для DTO задач
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("taskpriority", func(fl validator.FieldLevel) bool {
		return model.ValidPriority(fl.Field().String())
	})
	v.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
		return model.ValidStatus(fl.Field().String())
	})
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		log.Printf("🚀 Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %s", err)
	}

	log.Println("✅ Server exited properly")
}
