package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/neurolearn/marketplace/internal/core/domain"
)

func TestUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("duplicate email maps to ErrUserExists", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: neurolearn.users index: email_1",
		}))

		_, err := NewUserRepository(mt.DB).Create(ctx, &domain.User{
			Email: "a@x.it",
			Roles: domain.Roles{domain.RoleStudent},
		})
		if !errors.Is(err, domain.ErrUserExists) {
			t.Fatalf("expected ErrUserExists, got %v", err)
		}
	})

	mt.Run("other insert failures are wrapped", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Code: 2, Message: "bad value"}))

		_, err := NewUserRepository(mt.DB).Create(ctx, &domain.User{Email: "a@x.it"})
		if err == nil || errors.Is(err, domain.ErrUserExists) {
			t.Fatalf("expected a wrapped insert error, got %v", err)
		}
	})

	mt.Run("create assigns an id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		created, err := NewUserRepository(mt.DB).Create(ctx, &domain.User{Email: "a@x.it"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := primitive.ObjectIDFromHex(created.ID); err != nil {
			t.Fatalf("expected an object id, got %q", created.ID)
		}
	})

	mt.Run("find decodes the stored user", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "neurolearn.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "email", Value: "a@x.it"},
			{Key: "name", Value: "Ada"},
			{Key: "roles", Value: bson.A{"tutor", "retired"}},
			{Key: "is_active", Value: true},
			{Key: "created_at", Value: created.Unix()},
		}))

		u, err := NewUserRepository(mt.DB).FindByEmail(ctx, "a@x.it")
		if err != nil {
			t.Fatalf("FindByEmail: %v", err)
		}
		if u.ID != oid.Hex() || u.Name != "Ada" || !u.IsActive || !u.CreatedAt.Equal(created) {
			t.Fatalf("unexpected user: %+v", u)
		}
		if len(u.Roles) != 1 || u.Roles[0] != domain.RoleTutor {
			t.Fatalf("unknown stored roles must be dropped, got %v", u.Roles)
		}
	})

	mt.Run("missing user maps to ErrUserNotFound", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "neurolearn.users", mtest.FirstBatch))

		if _, err := NewUserRepository(mt.DB).FindByEmail(ctx, "ghost@x.it"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	mt.Run("malformed id never reaches the server", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		if _, err := repo.FindByID(ctx, "not-an-object-id"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
		if err := repo.Delete(ctx, "not-an-object-id"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	mt.Run("update of a missing user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := NewUserRepository(mt.DB).Update(ctx, &domain.User{ID: primitive.NewObjectID().Hex()})
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}
