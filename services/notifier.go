package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phillip/community-goals-go/logger"
	models "github.com/phillip/community-goals-go/models"
	"github.com/phillip/community-goals-go/repository"
)

// Notifier receives goal events after they are persisted. Delivery is best
// effort; implementations log failures and never return them.
type Notifier interface {
	Notify(ctx context.Context, event models.GoalEvent)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, models.GoalEvent) {}

// MultiNotifier fans an event out to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, event models.GoalEvent) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

// =========================
// Redis
// =========================

type RedisNotifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisNotifier(log *logger.Logger, addr, channel string) (*RedisNotifier, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channel == "" {
		channel = "goal-events"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisNotifier{log: log.With("service", "RedisNotifier"), rdb: rdb, channel: channel}, nil
}

func (n *RedisNotifier) Notify(ctx context.Context, event models.GoalEvent) {
	if n == nil || n.rdb == nil {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		n.log.Warn("marshal goal event", "error", err)
		return
	}
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		n.log.Warn("publish goal event", "error", err, "goal_id", event.GoalID.Hex(), "type", event.Type)
	}
}

func (n *RedisNotifier) Close() error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Close()
}

// =========================
// Email
// =========================

type Mailer interface {
	Send(ctx context.Context, to, name, subject, htmlBody string) error
}

// EmailNotifier mails the recipient of verification and completion events.
// Submissions are left to the realtime channel.
type EmailNotifier struct {
	log    *logger.Logger
	users  repository.UserDirectory
	mailer Mailer
}

func NewEmailNotifier(log *logger.Logger, users repository.UserDirectory, mailer Mailer) *EmailNotifier {
	return &EmailNotifier{log: log.With("service", "EmailNotifier"), users: users, mailer: mailer}
}

func (n *EmailNotifier) Notify(ctx context.Context, event models.GoalEvent) {
	if n == nil || n.mailer == nil {
		return
	}
	subject, body, ok := emailFor(event)
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		user, err := n.users.Get(ctx, event.Recipient)
		if err != nil || user.Email == "" {
			return
		}
		if err := n.mailer.Send(ctx, user.Email, user.Name, subject, body); err != nil {
			n.log.Warn("send goal email", "error", err, "goal_id", event.GoalID.Hex(), "type", event.Type)
		}
	}()
}

func emailFor(event models.GoalEvent) (string, string, bool) {
	title := html.EscapeString(event.GoalTitle)
	switch event.Type {
	case models.EventContributionApproved:
		body := fmt.Sprintf("<p>Your contribution to <b>%s</b> was approved.</p>", title)
		if event.Notes != "" {
			body += fmt.Sprintf("<p>Notes: %s</p>", html.EscapeString(event.Notes))
		}
		return "Your contribution was approved", body, true
	case models.EventContributionRejected:
		return "Your contribution was not accepted",
			fmt.Sprintf("<p>Your contribution to <b>%s</b> was rejected and removed from the goal.</p>", title), true
	case models.EventGoalCompleted:
		return "Your community goal is complete",
			fmt.Sprintf("<p><b>%s</b> reached 100%%. Thank you for organising it!</p>", title), true
	}
	return "", "", false
}
