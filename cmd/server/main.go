package main

import (
	"log"

	_ "github.com/RathodAnilT/ETS-Final-sub001/docs"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/config"
	"github.com/RathodAnilT/ETS-Final-sub001/internal/server"
)

// @title           Employee Task System API
// @version         1.0
// @description     API for employee task management, completion review and notifications.

// @host      localhost:8000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()

	s, err := server.Init(cfg)
	if err != nil {
		log.Fatalf("❌ Server initialization failed: %v", err)
	}

	s.Run()
}
