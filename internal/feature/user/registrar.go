// Package user records the senders that contact the bot.
package user

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
	"tg_monitor_bot/internal/update"
)

type userCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Registrar upserts a sender record on every gated update, keeping names, the
// authorization outcome and last_seen_at current.
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

// RecordSighting upserts the sender. New records get a role derived from
// authorized; existing roles are left alone so the owner stays the owner.
func (r *Registrar) RecordSighting(ctx context.Context, sender update.Sender, authorized bool) error {
	_, err := r.record(ctx, sender, authorized)
	return err
}

func (r *Registrar) record(ctx context.Context, sender update.Sender, authorized bool) (bool, error) {
	if r == nil || r.users == nil {
		return false, errors.New("user registrar is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if sender.ID == 0 {
		return false, errors.New("user id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"chat_id":      sender.ChatID,
		"authorized":   authorized,
		"updated_at":   now,
		"last_seen_at": now,
	}
	if sender.FirstName != "" {
		set["first_name"] = sender.FirstName
	}
	if sender.LastName != "" {
		set["last_name"] = sender.LastName
	}
	if sender.Username != "" {
		set["username"] = sender.Username
	}

	result, err := r.users.UpdateOne(ctx,
		bson.M{"user_id": sender.ID},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"user_id":    sender.ID,
				"role":       domain.RoleForAccess(authorized),
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("record sender: %w", err)
	}

	fields := logging.Fields{
		"user_id":    sender.ID,
		"chat_id":    sender.ChatID,
		"authorized": authorized,
	}

	if result != nil && result.UpsertedCount > 0 {
		fields["event"] = "user_registered"
		r.logger.WithFields(fields).Info("registered new sender")
		return true, nil
	}

	fields["event"] = "user_seen"
	r.logger.WithFields(fields).Debug("updated sender last seen")
	return false, nil
}
