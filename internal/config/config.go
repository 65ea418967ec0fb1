package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	ServerPort      string
	JWTSecret       string
	JWTExpiryHours  int
	LaborShareQuota int
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	return &Config{
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          getEnv("DB_USER", "ets_user"),
		DBPassword:      getEnv("DB_PASSWORD", "ets_pass"),
		DBName:          getEnv("DB_NAME", "ets_db"),
		ServerPort:      getEnv("SERVER_PORT", "8000"),
		JWTSecret:       getEnv("JWT_SECRET", "supersecretkey"),
		JWTExpiryHours:  getEnvInt("JWT_EXPIRY_HOURS", 24),
		LaborShareQuota: getEnvInt("LABOR_SHARE_QUOTA", 5),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}
