package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/africtivistes/adisa/internal/core/domain"
)

const collectionInvitations = "invitations"

type InvitationRepository struct {
	col *mongo.Collection
}

func NewInvitationRepository(db *mongo.Database) *InvitationRepository {
	return &InvitationRepository{col: db.Collection(collectionInvitations)}
}

type invitationDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Token     string             `bson:"token"`
	InvitedBy string             `bson:"invited_by,omitempty"`
	Used      bool               `bson:"used"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
	UsedAt    *time.Time         `bson:"used_at,omitempty"`
}

func (d *invitationDoc) toDomain() *domain.Invitation {
	inv := &domain.Invitation{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		Token:     d.Token,
		InvitedBy: d.InvitedBy,
		Used:      d.Used,
		CreatedAt: d.CreatedAt.UTC(),
		ExpiresAt: d.ExpiresAt.UTC(),
	}
	if d.UsedAt != nil {
		t := d.UsedAt.UTC()
		inv.UsedAt = &t
	}
	return inv
}

func (r *InvitationRepository) Create(ctx context.Context, inv *domain.Invitation) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := invitationDoc{
		Email:     inv.Email,
		Token:     inv.Token,
		InvitedBy: inv.InvitedBy,
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, domain.StorageErr("insert invitation", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *InvitationRepository) FindUnusedByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc invitationDoc
	if err := r.col.FindOne(ctx, bson.M{"token": token, "used": false}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidOrExpiredInvite
		}
		return nil, domain.StorageErr("find invitation", err)
	}
	return doc.toDomain(), nil
}

// Redeem claims the invitation with a single conditional update, so only one
// concurrent caller can match used=false.
func (r *InvitationRepository) Redeem(ctx context.Context, token string, now time.Time) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"token":      token,
		"used":       false,
		"expires_at": bson.M{"$gte": now},
	}
	update := bson.M{"$set": bson.M{"used": true, "used_at": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc invitationDoc
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidOrExpiredInvite
		}
		return nil, domain.StorageErr("redeem invitation", err)
	}
	return doc.toDomain(), nil
}

func (r *InvitationRepository) Release(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"token": token, "used": true},
		bson.M{"$set": bson.M{"used": false}, "$unset": bson.M{"used_at": ""}},
	)
	if err != nil {
		return domain.StorageErr("release invitation", err)
	}
	return nil
}

// EnsureIndexes creates the indexes on the invitations collection.
func (r *InvitationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetName("token_unique").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
