package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/phillip/community-goals-go/logger"
	"github.com/phillip/community-goals-go/repository"
	"github.com/phillip/community-goals-go/services"
	"github.com/phillip/community-goals-go/utils"
)

// Config is the settings read from the environment plus the wired
// dependencies every handler needs.
type Config struct {
	Port        string
	Env         string
	MongoURI    string
	DBName      string
	GoalStore   string
	JWTSecret   string
	MaxRetries  int
	CORSOrigins []string

	RedisAddr    string
	RedisChannel string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	ZeptoAPIURL string
	ZeptoAPIKey string
	EmailFrom   string

	MongoClient *mongo.Client
	Logger      *logger.Logger
	Goals       *services.GoalService
	Users       repository.UserDirectory
	Uploader    utils.ProofUploader
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("APP_ENV", "development"),
		MongoURI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:              getEnv("DB_NAME", "barter"),
		GoalStore:           strings.ToLower(getEnv("GOAL_STORE", "mongo")),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		MaxRetries:          getEnvInt("CONTRIBUTION_MAX_RETRIES", 3),
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisChannel:        getEnv("REDIS_CHANNEL", "goal-events"),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		ZeptoAPIURL:         os.Getenv("ZEPTO_API_URL"),
		ZeptoAPIKey:         os.Getenv("ZEPTO_API_KEY"),
		EmailFrom:           os.Getenv("EMAIL_FROM"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.GoalStore != "mongo" && c.GoalStore != "memory" {
		return fmt.Errorf("GOAL_STORE must be mongo or memory, got %q", c.GoalStore)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("CONTRIBUTION_MAX_RETRIES must be at least 1")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
