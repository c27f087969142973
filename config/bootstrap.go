package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/community-goals-go/logger"
	"github.com/phillip/community-goals-go/repository"
	"github.com/phillip/community-goals-go/services"
	"github.com/phillip/community-goals-go/utils"
)

// Bootstrap connects the backing services and wires the goal engine. The
// returned cleanup closes whatever was opened.
func (c *Config) Bootstrap(ctx context.Context, log *logger.Logger) (func(), error) {
	c.Logger = log
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var store repository.GoalStore
	switch c.GoalStore {
	case "memory":
		log.Warn("using in-memory goal store; data is lost on restart")
		store = repository.NewMemoryGoalStore()
		log.Warn("in-memory user directory enrols unknown token subjects on first request")
		c.Users = repository.NewMemoryUserDirectory().EnrollUnknown()
	default:
		client, err := connectMongo(ctx, c.MongoURI)
		if err != nil {
			return cleanup, err
		}
		c.MongoClient = client
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		})
		db := client.Database(c.DBName)
		store = repository.NewMongoGoalStore(db)
		c.Users = repository.NewMongoUserDirectory(db)
		log.Info("connected to mongo", "db", c.DBName)
	}

	notifiers := services.MultiNotifier{}
	if c.RedisAddr != "" {
		rn, err := services.NewRedisNotifier(log, c.RedisAddr, c.RedisChannel)
		if err != nil {
			log.Warn("redis notifier disabled", "error", err)
		} else {
			notifiers = append(notifiers, rn)
			closers = append(closers, func() { _ = rn.Close() })
		}
	}
	if sender, err := utils.NewEmailSender(c.ZeptoAPIURL, c.ZeptoAPIKey, c.EmailFrom); err != nil {
		log.Warn("email notifier disabled", "error", err)
	} else {
		notifiers = append(notifiers, services.NewEmailNotifier(log, c.Users, sender))
	}

	if c.CloudinaryCloudName != "" {
		up, err := utils.NewUploader(c.CloudinaryCloudName, c.CloudinaryAPIKey, c.CloudinaryAPISecret)
		if err != nil {
			log.Warn("proof uploads disabled", "error", err)
		} else {
			c.Uploader = up
		}
	}

	c.Goals = services.NewGoalService(store, c.Users, notifiers, log, c.MaxRetries)
	return cleanup, nil
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}
