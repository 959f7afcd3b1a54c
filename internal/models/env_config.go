package models

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type EnvConfig struct {
	DatabaseURL   string
	Port          string
	SessionDays   int
	SecureCookies bool
	Debug         bool
}

func ReadEnvConfig() EnvConfig {
	// A missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	debug := os.Getenv("KUPOLLS_DEBUG") == "true"
	port := os.Getenv("KUPOLLS_PORT")
	if port == "" {
		port = "23495"
	}
	sessionDays, err := strconv.Atoi(os.Getenv("KUPOLLS_SESSION_DAYS"))
	if err != nil || sessionDays <= 0 {
		fmt.Println("Using default value for KUPOLLS_SESSION_DAYS")
		sessionDays = 14
	}
	return EnvConfig{
		DatabaseURL:   os.Getenv("KUPOLLS_DATABASE_URL"),
		Port:          port,
		SessionDays:   sessionDays,
		SecureCookies: os.Getenv("KUPOLLS_SECURE_COOKIES") == "true",
		Debug:         debug,
	}
}
