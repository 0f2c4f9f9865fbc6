// Package owner makes sure the configured bot owner has a sender record with
// the owner role.
package owner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_monitor_bot/internal/domain"
	"tg_monitor_bot/internal/logging"
)

type userCollection interface {
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Outcome summarizes what EnsureOwner changed.
type Outcome struct {
	Demoted int64
	Created bool
}

// Registrar bootstraps the configured bot owner record.
type Registrar struct {
	users  userCollection
	logger *logrus.Entry
}

// NewRegistrar constructs a Registrar for the provided users collection.
func NewRegistrar(users userCollection, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		users:  users,
		logger: logger,
	}
}

// EnsureOwner upserts ownerID with role=owner and marks it authorized. Any
// other record still holding the owner role is demoted to member.
func (r *Registrar) EnsureOwner(ctx context.Context, ownerID int64) (Outcome, error) {
	if r == nil || r.users == nil {
		return Outcome{}, errors.New("owner registrar is not initialized")
	}
	if ctx == nil {
		return Outcome{}, errors.New("context is required")
	}
	if ownerID == 0 {
		return Outcome{}, errors.New("owner id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	demoted, err := r.users.UpdateMany(ctx,
		bson.M{"role": domain.RoleOwner, "user_id": bson.M{"$ne": ownerID}},
		bson.M{"$set": bson.M{
			"role":       domain.RoleMember,
			"updated_at": now,
		}},
	)
	if err != nil {
		return Outcome{}, fmt.Errorf("demote previous owners: %w", err)
	}

	upserted, err := r.users.UpdateOne(ctx,
		bson.M{"user_id": ownerID},
		bson.M{
			"$set": bson.M{
				"user_id":    ownerID,
				"chat_id":    ownerID,
				"role":       domain.RoleOwner,
				"authorized": true,
				"updated_at": now,
			},
			"$setOnInsert": bson.M{
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return Outcome{}, fmt.Errorf("ensure owner: %w", err)
	}

	out := Outcome{}
	if demoted != nil {
		out.Demoted = demoted.ModifiedCount
	}
	if upserted != nil {
		out.Created = upserted.UpsertedCount > 0
	}

	r.logger.WithFields(logging.Fields{
		"event":          "owner_bootstrap",
		"owner_id":       ownerID,
		"demoted_owners": out.Demoted,
		"created_owner":  out.Created,
	}).Info("ensured bot owner")

	return out, nil
}
