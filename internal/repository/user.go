package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
)

// userDoc — документ коллекции users. couple_id хранится как ObjectID-ссылка
// (nil, пока пользователь не в паре).
type userDoc struct {
	ID            bson.ObjectID  `bson:"_id,omitempty"`
	Email         string         `bson:"email"`
	PasswordHash  string         `bson:"password_hash"`
	Nickname      string         `bson:"nickname"`
	Preferences   []string       `bson:"preferences"`
	EmailVerified bool           `bson:"email_verified"`
	CoupleID      *bson.ObjectID `bson:"couple_id,omitempty"`
	CreatedAt     time.Time      `bson:"created_at"`
	UpdatedAt     time.Time      `bson:"updated_at"`
}

func (d *userDoc) toModel() *model.User {
	u := &model.User{
		ID:            d.ID.Hex(),
		Email:         d.Email,
		PasswordHash:  d.PasswordHash,
		Nickname:      d.Nickname,
		Preferences:   d.Preferences,
		EmailVerified: d.EmailVerified,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.CoupleID != nil {
		u.CoupleID = d.CoupleID.Hex()
	}
	return u
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection("users")}
}

// ErrDuplicateEmail — email уже занят (уникальный индекс по email).
var ErrDuplicateEmail = errors.New("email already registered")

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	defer logger.DeferLogDuration("user.Create", time.Now())()
	doc := userDoc{
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		Nickname:      u.Nickname,
		Preferences:   u.Preferences,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("userRepo.Create: %w", err)
	}
	u.ID = res.InsertedID.(bson.ObjectID).Hex()
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByID", time.Now())()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var doc userDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return doc.toModel(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByEmail", time.Now())()
	var doc userDoc
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByEmail: %w", err)
	}
	return doc.toModel(), nil
}

// UpdateProfile меняет nickname и/или preferences (nil — поле не трогаем).
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, nickname *string, preferences []string) (*model.User, error) {
	defer logger.DeferLogDuration("user.UpdateProfile", time.Now())()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	if nickname != nil {
		set["nickname"] = *nickname
	}
	if preferences != nil {
		set["preferences"] = preferences
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("userRepo.UpdateProfile: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// SetCouple привязывает пользователя к паре. Пустой coupleID снимает привязку
// (выход из пары).
func (r *UserRepository) SetCouple(ctx context.Context, userID, coupleID string) error {
	defer logger.DeferLogDuration("user.SetCouple", time.Now())()
	oid, err := parseID(userID)
	if err != nil {
		return err
	}
	var update bson.M
	if coupleID == "" {
		update = bson.M{
			"$unset": bson.M{"couple_id": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		}
	} else {
		cid, err := parseID(coupleID)
		if err != nil {
			return err
		}
		update = bson.M{"$set": bson.M{"couple_id": cid, "updated_at": time.Now().UTC()}}
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("userRepo.SetCouple: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByIDs возвращает пользователей по списку id (участники пары).
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	defer logger.DeferLogDuration("user.GetByIDs", time.Now())()
	oids := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := bson.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return nil, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByIDs: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("userRepo.GetByIDs decode: %w", err)
	}
	out := make([]model.User, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}
