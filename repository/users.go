package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/phillip/community-goals-go/models"
)

// UserDirectory resolves user references owned by the identity service.
type UserDirectory interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Profiles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Profile, error)
}

type MongoUserDirectory struct {
	col *mongo.Collection
}

func NewMongoUserDirectory(db *mongo.Database) *MongoUserDirectory {
	return &MongoUserDirectory{col: db.Collection("users")}
}

func (d *MongoUserDirectory) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var user models.User
	err := d.col.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (d *MongoUserDirectory) Profiles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Profile, error) {
	out := make(map[primitive.ObjectID]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"name": 1, "picture": 1})
	cursor, err := d.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u.Profile()
	}
	return out, nil
}

type MemoryUserDirectory struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
	// enroll registers unknown callers on first lookup.
	enroll bool
}

func NewMemoryUserDirectory(users ...models.User) *MemoryUserDirectory {
	d := &MemoryUserDirectory{users: make(map[primitive.ObjectID]models.User)}
	for _, u := range users {
		d.Put(u)
	}
	return d
}

// EnrollUnknown makes Get register any id it has not seen, named after the
// id's hex prefix. Memory mode has no user collection to sign up against.
func (d *MemoryUserDirectory) EnrollUnknown() *MemoryUserDirectory {
	d.mu.Lock()
	d.enroll = true
	d.mu.Unlock()
	return d
}

func (d *MemoryUserDirectory) Put(u models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *MemoryUserDirectory) Get(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	d.mu.RLock()
	u, ok := d.users[id]
	enroll := d.enroll
	d.mu.RUnlock()
	if ok {
		return &u, nil
	}
	if !enroll || id.IsZero() {
		return nil, ErrUserNotFound
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok = d.users[id]; !ok {
		u = models.User{ID: id, Name: "user-" + id.Hex()[:8]}
		d.users[id] = u
	}
	return &u, nil
}

func (d *MemoryUserDirectory) Profiles(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[primitive.ObjectID]models.Profile, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u.Profile()
		}
	}
	return out, nil
}
