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

type coupleDoc struct {
	ID         bson.ObjectID   `bson:"_id,omitempty"`
	InviteCode string          `bson:"invite_code"`
	MemberIDs  []bson.ObjectID `bson:"member_ids"`
	Prefs      couplePrefsDoc  `bson:"preferences"`
	Points     int             `bson:"points"`
	Badges     []string        `bson:"badges"`
	CreatedAt  time.Time       `bson:"created_at"`
	UpdatedAt  time.Time       `bson:"updated_at"`
}

type couplePrefsDoc struct {
	Tags         []string `bson:"tags"`
	EmotionGoals []string `bson:"emotion_goals"`
	Budget       string   `bson:"budget"`
}

func (d *coupleDoc) toModel() *model.Couple {
	members := make([]string, 0, len(d.MemberIDs))
	for _, m := range d.MemberIDs {
		members = append(members, m.Hex())
	}
	badges := d.Badges
	if badges == nil {
		badges = []string{}
	}
	return &model.Couple{
		ID:         d.ID.Hex(),
		InviteCode: d.InviteCode,
		MemberIDs:  members,
		Preferences: model.CouplePreferences{
			Tags:         d.Prefs.Tags,
			EmotionGoals: d.Prefs.EmotionGoals,
			Budget:       d.Prefs.Budget,
		},
		Points:    d.Points,
		Badges:    badges,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type CoupleRepository struct {
	coll *mongo.Collection
}

func NewCoupleRepository(db *mongo.Database) *CoupleRepository {
	return &CoupleRepository{coll: db.Collection("couples")}
}

// ErrCoupleFull — в паре уже два участника.
var ErrCoupleFull = errors.New("couple is full")

func (r *CoupleRepository) Create(ctx context.Context, c *model.Couple) error {
	defer logger.DeferLogDuration("couple.Create", time.Now())()
	members := make([]bson.ObjectID, 0, len(c.MemberIDs))
	for _, id := range c.MemberIDs {
		oid, err := parseID(id)
		if err != nil {
			return err
		}
		members = append(members, oid)
	}
	doc := coupleDoc{
		InviteCode: c.InviteCode,
		MemberIDs:  members,
		Prefs: couplePrefsDoc{
			Tags:         c.Preferences.Tags,
			EmotionGoals: c.Preferences.EmotionGoals,
			Budget:       c.Preferences.Budget,
		},
		Points:    c.Points,
		Badges:    c.Badges,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("coupleRepo.Create: %w", err)
	}
	c.ID = res.InsertedID.(bson.ObjectID).Hex()
	return nil
}

func (r *CoupleRepository) GetByID(ctx context.Context, id string) (*model.Couple, error) {
	defer logger.DeferLogDuration("couple.GetByID", time.Now())()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *CoupleRepository) GetByInviteCode(ctx context.Context, code string) (*model.Couple, error) {
	defer logger.DeferLogDuration("couple.GetByInviteCode", time.Now())()
	return r.findOne(ctx, bson.M{"invite_code": code})
}

func (r *CoupleRepository) findOne(ctx context.Context, filter bson.M) (*model.Couple, error) {
	var doc coupleDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("coupleRepo.findOne: %w", err)
	}
	return doc.toModel(), nil
}

// AddMember добавляет участника, только если в паре ещё есть место
// (атомарный фильтр по размеру member_ids закрывает гонку двойного join).
func (r *CoupleRepository) AddMember(ctx context.Context, coupleID, userID string) error {
	defer logger.DeferLogDuration("couple.AddMember", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": cid, "member_ids": bson.M{"$not": bson.M{"$size": 2}}},
		bson.M{
			"$addToSet": bson.M{"member_ids": uid},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("coupleRepo.AddMember: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrCoupleFull
	}
	return nil
}

func (r *CoupleRepository) RemoveMember(ctx context.Context, coupleID, userID string) error {
	defer logger.DeferLogDuration("couple.RemoveMember", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": cid},
		bson.M{
			"$pull": bson.M{"member_ids": uid},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("coupleRepo.RemoveMember: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CoupleRepository) UpdateInviteCode(ctx context.Context, coupleID, code string) error {
	defer logger.DeferLogDuration("couple.UpdateInviteCode", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": cid},
		bson.M{"$set": bson.M{"invite_code": code, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("coupleRepo.UpdateInviteCode: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CoupleRepository) UpdatePreferences(ctx context.Context, coupleID string, prefs model.CouplePreferences) error {
	defer logger.DeferLogDuration("couple.UpdatePreferences", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": cid},
		bson.M{"$set": bson.M{
			"preferences": couplePrefsDoc{
				Tags:         prefs.Tags,
				EmotionGoals: prefs.EmotionGoals,
				Budget:       prefs.Budget,
			},
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("coupleRepo.UpdatePreferences: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GrantBadge начисляет бейдж и очки атомарно и идемпотентно: фильтр по
// отсутствию бейджа гарантирует, что очки за один бейдж не начислятся дважды.
// Возвращает true, если награда была выдана этим вызовом.
func (r *CoupleRepository) GrantBadge(ctx context.Context, coupleID, badge string, points int) (bool, error) {
	defer logger.DeferLogDuration("couple.GrantBadge", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return false, err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": cid, "badges": bson.M{"$ne": badge}},
		bson.M{
			"$addToSet": bson.M{"badges": badge},
			"$inc":      bson.M{"points": points},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, fmt.Errorf("coupleRepo.GrantBadge: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// AddPoints начисляет очки без бейджа (повторный визит челлендж-места).
func (r *CoupleRepository) AddPoints(ctx context.Context, coupleID string, points int) error {
	defer logger.DeferLogDuration("couple.AddPoints", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": cid},
		bson.M{
			"$inc": bson.M{"points": points},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("coupleRepo.AddPoints: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CoupleRepository) Delete(ctx context.Context, coupleID string) error {
	defer logger.DeferLogDuration("couple.Delete", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": cid})
	if err != nil {
		return fmt.Errorf("coupleRepo.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
