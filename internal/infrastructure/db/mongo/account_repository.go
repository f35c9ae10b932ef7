package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/africtivistes/adisa/internal/core/domain"
)

const (
	collectionAccounts = "accounts"
	indexUsername      = "username_unique"
	indexEmail         = "email_unique"
)

type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

type accountDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Username         string             `bson:"username,omitempty"`
	Email            string             `bson:"email"`
	PasswordHash     string             `bson:"password_hash,omitempty"`
	FirstName        string             `bson:"first_name,omitempty"`
	LastName         string             `bson:"last_name,omitempty"`
	ProfileImageURL  string             `bson:"profile_image_url,omitempty"`
	Role             string             `bson:"role"`
	IsActive         bool               `bson:"is_active"`
	TwoFactorEnabled bool               `bson:"two_factor_enabled"`
	TwoFactorSecret  string             `bson:"two_factor_secret,omitempty"`
	InvitedBy        string             `bson:"invited_by,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

func toAccountDoc(a *domain.Account) accountDoc {
	return accountDoc{
		Username:         a.Username,
		Email:            a.Email,
		PasswordHash:     a.PasswordHash,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		ProfileImageURL:  a.ProfileImageURL,
		Role:             string(a.Role),
		IsActive:         a.IsActive,
		TwoFactorEnabled: a.TwoFactorEnabled,
		TwoFactorSecret:  a.TwoFactorSecret,
		InvitedBy:        a.InvitedBy,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func (d *accountDoc) toDomain() *domain.Account {
	return &domain.Account{
		ID:               d.ID.Hex(),
		Username:         d.Username,
		Email:            d.Email,
		PasswordHash:     d.PasswordHash,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		ProfileImageURL:  d.ProfileImageURL,
		Role:             domain.Role(d.Role),
		IsActive:         d.IsActive,
		TwoFactorEnabled: d.TwoFactorEnabled,
		TwoFactorSecret:  d.TwoFactorSecret,
		InvitedBy:        d.InvitedBy,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

// Create inserts a new account and returns it with its generated id.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toAccountDoc(a)
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if violatesIndex(err, indexUsername) {
				return nil, domain.ErrUsernameTaken
			}
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, domain.StorageErr("insert account", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.StorageErr("find account", err)
	}
	return doc.toDomain(), nil
}

// List returns every account, newest first.
func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, domain.StorageErr("list accounts", err)
	}
	defer cursor.Close(ctx)

	var docs []accountDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.StorageErr("decode accounts", err)
	}

	accounts := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		accounts = append(accounts, docs[i].toDomain())
	}
	return accounts, nil
}

// SetTwoFactorSecret writes secret unless 2FA is already enabled.
func (r *AccountRepository) SetTwoFactorSecret(ctx context.Context, id, secret string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "two_factor_enabled": false},
		bson.M{"$set": bson.M{"two_factor_secret": secret, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return domain.StorageErr("set 2fa secret", err)
	}
	if res.MatchedCount == 0 {
		// Either the account is gone or 2FA got enabled in between.
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrTwoFactorAlreadyEnabled
	}
	return nil
}

// EnableTwoFactor turns 2FA on if the stored secret is still secret.
func (r *AccountRepository) EnableTwoFactor(ctx context.Context, id, secret string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "two_factor_secret": secret},
		bson.M{"$set": bson.M{"two_factor_enabled": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return domain.StorageErr("enable 2fa", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvalidCode
	}
	return nil
}

func (r *AccountRepository) Update(ctx context.Context, id string, update domain.AccountUpdate) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Role != nil {
		set["role"] = string(*update.Role)
	}
	if update.IsActive != nil {
		set["is_active"] = *update.IsActive
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc accountDoc
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.StorageErr("update account", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates the unique indexes on the accounts collection.
// Username uniqueness only applies to documents that carry a username.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetName(indexUsername).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"username": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(indexEmail).SetUnique(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// violatesIndex reports whether a duplicate key write error was raised by the
// unique index named index. Only the "index: <name> " part of the server
// message is inspected, so the duplicated value itself cannot match.
func violatesIndex(err error, index string) bool {
	var we mongo.WriteException
	if !errors.As(err, &we) {
		return false
	}
	for _, e := range we.WriteErrors {
		if e.Code == 11000 && strings.Contains(e.Message, "index: "+index+" ") {
			return true
		}
	}
	return false
}
