package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/basecampy/authbackend/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserStore is the persistence collaborator for user records. Every mutation
// is a single-document operation; no cross-record transaction exists.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error)
	FindByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	FindByPasswordResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)

	SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error
	ClearRefreshToken(ctx context.Context, id bson.ObjectID) error
	SetVerificationToken(ctx context.Context, id bson.ObjectID, tokenHash string, expiry time.Time) error
	MarkEmailVerified(ctx context.Context, id bson.ObjectID) error
	SetPasswordResetToken(ctx context.Context, id bson.ObjectID, tokenHash string, expiry time.Time) error
	SetPassword(ctx context.Context, id bson.ObjectID, passwordHash string) error
	ResetPassword(ctx context.Context, id bson.ObjectID, passwordHash string) error
	SetAvatar(ctx context.Context, id bson.ObjectID, avatar models.Avatar) error
}

type MongoUserStore struct {
	col *mongo.Collection
}

func NewMongoUserStore() *MongoUserStore {
	return &MongoUserStore{col: OpenCollection("users")}
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	_, err := s.col.InsertOne(ctx, user)
	return err
}

func (s *MongoUserStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}})
}

func (s *MongoUserStore) FindByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return s.findOne(ctx, bson.M{
		"emailVerificationToken":  tokenHash,
		"emailVerificationExpiry": bson.M{"$gt": now},
	})
}

func (s *MongoUserStore) FindByPasswordResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return s.findOne(ctx, bson.M{
		"passwordResetToken":  tokenHash,
		"passwordResetExpiry": bson.M{"$gt": now},
	})
}

func (s *MongoUserStore) SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error {
	return s.updateByID(ctx, id, bson.M{
		"$set": bson.M{"refreshToken": token, "updatedAt": time.Now().UTC()},
	})
}

// ClearRefreshToken is idempotent: unsetting an already-absent token is a
// no-op, not an error.
func (s *MongoUserStore) ClearRefreshToken(ctx context.Context, id bson.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{
		"$unset": bson.M{"refreshToken": 1},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (s *MongoUserStore) SetVerificationToken(ctx context.Context, id bson.ObjectID, tokenHash string, expiry time.Time) error {
	return s.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"emailVerificationToken":  tokenHash,
			"emailVerificationExpiry": expiry,
			"updatedAt":               time.Now().UTC(),
		},
	})
}

func (s *MongoUserStore) MarkEmailVerified(ctx context.Context, id bson.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{
		"$set": bson.M{"isEmailVerified": true, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{
			"emailVerificationToken":  1,
			"emailVerificationExpiry": 1,
		},
	})
}

func (s *MongoUserStore) SetPasswordResetToken(ctx context.Context, id bson.ObjectID, tokenHash string, expiry time.Time) error {
	return s.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"passwordResetToken":  tokenHash,
			"passwordResetExpiry": expiry,
			"updatedAt":           time.Now().UTC(),
		},
	})
}

func (s *MongoUserStore) SetPassword(ctx context.Context, id bson.ObjectID, passwordHash string) error {
	return s.updateByID(ctx, id, bson.M{
		"$set": bson.M{"passwordHash": passwordHash, "updatedAt": time.Now().UTC()},
	})
}

// ResetPassword consumes the reset pair and kills the active session along
// with the credential change.
func (s *MongoUserStore) ResetPassword(ctx context.Context, id bson.ObjectID, passwordHash string) error {
	return s.updateByID(ctx, id, bson.M{
		"$set": bson.M{"passwordHash": passwordHash, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{
			"passwordResetToken":  1,
			"passwordResetExpiry": 1,
			"refreshToken":        1,
		},
	})
}

func (s *MongoUserStore) SetAvatar(ctx context.Context, id bson.ObjectID, avatar models.Avatar) error {
	return s.updateByID(ctx, id, bson.M{
		"$set": bson.M{"avatar": avatar, "updatedAt": time.Now().UTC()},
	})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) updateByID(ctx context.Context, id bson.ObjectID, update bson.M) error {
	res, err := s.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
