package repository

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/community-goals-go/models"
)

func TestMemoryUserDirectoryUnknownUser(t *testing.T) {
	ctx := context.Background()
	id := primitive.NewObjectID()

	strict := NewMemoryUserDirectory()
	if _, err := strict.Get(ctx, id); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Get unknown = %v, want ErrUserNotFound", err)
	}

	open := NewMemoryUserDirectory(models.User{ID: primitive.NewObjectID(), Name: "Known"}).EnrollUnknown()
	u, err := open.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get with enrolment: %v", err)
	}
	if u.ID != id || u.Name != "user-"+id.Hex()[:8] {
		t.Fatalf("enrolled user = %+v", u)
	}
	profiles, err := open.Profiles(ctx, []primitive.ObjectID{id})
	if err != nil || profiles[id].Name != u.Name {
		t.Fatalf("enrolled user missing from Profiles: %v %v", profiles, err)
	}
	if _, err := open.Get(ctx, primitive.NilObjectID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Get nil id = %v, want ErrUserNotFound", err)
	}
}
