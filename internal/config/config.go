package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var (
	LogLevel           string
	ServerRunAddress   string
	DatabaseURI        string
	JWTSecret          string
	CORSAllowedOrigins []string
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	LogLevel = os.Getenv("LOG_LEVEL")
	if LogLevel == "" {
		LogLevel = "info"
	}

	ServerRunAddress = os.Getenv("SERVER_RUN_ADDRESS")
	if ServerRunAddress == "" {
		ServerRunAddress = "0.0.0.0:9000"
	}

	DatabaseURI = os.Getenv("DATABASE_URI")
	if DatabaseURI == "" {
		DatabaseURI = "host=db user=postgres password=password dbname=library sslmode=disable"
	}

	JWTSecret = os.Getenv("JWT_SECRET")
	if JWTSecret == "" {
		JWTSecret = "supersecretkey"
	}

	// Comma-separated list of front-end origins allowed to send
	// credentialed (cookie-bearing) cross-origin requests.
	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if origins == "" {
		origins = "http://localhost:5173"
	}
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			CORSAllowedOrigins = append(CORSAllowedOrigins, origin)
		}
	}
}
