package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDoc is the stored form. Absent optional fields mean "not set"; they
// are removed with $unset rather than written as empty values.
type userDoc struct {
	ID                  string     `bson:"_id"`
	Email               string     `bson:"email"`
	PasswordDigest      string     `bson:"password_digest"`
	ResetToken          *string    `bson:"reset_token,omitempty"`
	ResetTokenCreatedAt *time.Time `bson:"reset_token_created_at,omitempty"`
	TwoFASecret         *string    `bson:"two_fa_secret,omitempty"`
	Version             int64      `bson:"version"`
	CreatedAt           time.Time  `bson:"created_at"`
	UpdatedAt           time.Time  `bson:"updated_at"`
}

func toDoc(u domain.User) userDoc {
	doc := userDoc{
		ID:             u.ID,
		Email:          u.Email,
		PasswordDigest: u.PasswordDigest,
		Version:        u.Version,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if u.PendingReset != nil {
		token := u.PendingReset.Token
		issued := u.PendingReset.CreatedAt
		doc.ResetToken = &token
		doc.ResetTokenCreatedAt = &issued
	}
	if u.IsMFAEnabled() {
		secret := u.SecretMFA()
		doc.TwoFASecret = &secret
	}
	return doc
}

func (d userDoc) toUser() domain.User {
	u := domain.User{
		ID:             d.ID,
		Email:          d.Email,
		PasswordDigest: d.PasswordDigest,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.ResetToken != nil && d.ResetTokenCreatedAt != nil {
		u.SetResetToken(*d.ResetToken, *d.ResetTokenCreatedAt)
	}
	if d.TwoFASecret != nil {
		u.SetSecretMFA(*d.TwoFASecret)
	}
	return u
}

type usersRepo struct {
	col *mongo.Collection
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var doc userDoc
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return doc.toUser(), nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	doc := toDoc(u)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) (domain.User, error) {
	doc := toDoc(u)

	set := bson.M{
		"password_digest": doc.PasswordDigest,
		"updated_at":      time.Now().UTC(),
	}
	unset := bson.M{}
	if doc.ResetToken != nil {
		set["reset_token"] = *doc.ResetToken
		set["reset_token_created_at"] = *doc.ResetTokenCreatedAt
	} else {
		unset["reset_token"] = ""
		unset["reset_token_created_at"] = ""
	}
	if doc.TwoFASecret != nil {
		set["two_fa_secret"] = *doc.TwoFASecret
	} else {
		unset["two_fa_secret"] = ""
	}

	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var updated userDoc
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"email": u.Email, "version": u.Version},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.GetUserByEmail(ctx, u.Email); getErr != nil {
			return domain.User{}, getErr
		}
		return domain.User{}, store.ErrConflict
	}
	if err != nil {
		return domain.User{}, err
	}
	return updated.toUser(), nil
}

func (r *usersRepo) ClearExpiredResets(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"reset_token_created_at": bson.M{"$lt": cutoff}},
		bson.M{
			"$unset": bson.M{"reset_token": "", "reset_token_created_at": ""},
			"$inc":   bson.M{"version": 1},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
