package config

import (
	"context"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/community-goals-go/logger"
	"github.com/phillip/community-goals-go/services"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GOAL_STORE", "Memory")
	t.Setenv("CONTRIBUTION_MAX_RETRIES", "5")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GoalStore != "memory" || cfg.MaxRetries != 5 || cfg.Port != "8080" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.CORSOrigins, want) {
		t.Fatalf("origins = %v, want %v", cfg.CORSOrigins, want)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{JWTSecret: "x", GoalStore: "mongo", MaxRetries: 3}, true},
		{"missing secret", Config{GoalStore: "mongo", MaxRetries: 3}, false},
		{"unknown store", Config{JWTSecret: "x", GoalStore: "redis", MaxRetries: 3}, false},
		{"no retries", Config{JWTSecret: "x", GoalStore: "memory", MaxRetries: 0}, false},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); (err == nil) != tc.ok {
			t.Errorf("%s: Validate() = %v", tc.name, err)
		}
	}
}

func TestBootstrapMemoryAcceptsNewCallers(t *testing.T) {
	cfg := &Config{GoalStore: "memory", MaxRetries: 3}
	cleanup, err := cfg.Bootstrap(context.Background(), logger.Nop())
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer cleanup()

	caller := primitive.NewObjectID()
	goal, err := cfg.Goals.CreateGoal(context.Background(), caller, services.CreateGoalInput{Title: "Library shelves"})
	if err != nil {
		t.Fatalf("CreateGoal as a new caller: %v", err)
	}
	if goal.Creator != caller {
		t.Fatalf("creator = %s, want %s", goal.Creator.Hex(), caller.Hex())
	}
}
