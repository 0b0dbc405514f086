package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
)

type visitDoc struct {
	ID               bson.ObjectID  `bson:"_id,omitempty"`
	CoupleID         bson.ObjectID  `bson:"couple_id"`
	UserID           bson.ObjectID  `bson:"user_id"`
	PlanID           *bson.ObjectID `bson:"plan_id,omitempty"`
	PlaceID          string         `bson:"place_id"`
	PlaceName        string         `bson:"place_name,omitempty"`
	VisitedAt        string         `bson:"visited_at"`
	Emotion          string         `bson:"emotion,omitempty"`
	Tags             []string       `bson:"tags"`
	Memo             string         `bson:"memo,omitempty"`
	Rating           *float64       `bson:"rating,omitempty"`
	ChallengePlaceID string         `bson:"challenge_place_id,omitempty"`
	LocationVerified bool           `bson:"location_verified"`
	ReviewCompleted  bool           `bson:"review_completed"`
	CreatedAt        time.Time      `bson:"created_at"`
}

func (d *visitDoc) toModel() *model.Visit {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	v := &model.Visit{
		ID:               d.ID.Hex(),
		CoupleID:         d.CoupleID.Hex(),
		UserID:           d.UserID.Hex(),
		PlaceID:          d.PlaceID,
		PlaceName:        d.PlaceName,
		VisitedAt:        d.VisitedAt,
		Emotion:          d.Emotion,
		Tags:             tags,
		Memo:             d.Memo,
		Rating:           d.Rating,
		ChallengePlaceID: d.ChallengePlaceID,
		LocationVerified: d.LocationVerified,
		ReviewCompleted:  d.ReviewCompleted,
		CreatedAt:        d.CreatedAt,
	}
	if d.PlanID != nil {
		v.PlanID = d.PlanID.Hex()
	}
	return v
}

func (d *visitDoc) fromModel(v *model.Visit) error {
	cid, err := parseID(v.CoupleID)
	if err != nil {
		return err
	}
	uid, err := parseID(v.UserID)
	if err != nil {
		return err
	}
	*d = visitDoc{
		CoupleID:         cid,
		UserID:           uid,
		PlaceID:          v.PlaceID,
		PlaceName:        v.PlaceName,
		VisitedAt:        v.VisitedAt,
		Emotion:          v.Emotion,
		Tags:             v.Tags,
		Memo:             v.Memo,
		Rating:           v.Rating,
		ChallengePlaceID: v.ChallengePlaceID,
		LocationVerified: v.LocationVerified,
		ReviewCompleted:  v.ReviewCompleted,
		CreatedAt:        v.CreatedAt,
	}
	if v.PlanID != "" {
		pid, err := parseID(v.PlanID)
		if err != nil {
			return err
		}
		d.PlanID = &pid
	}
	return nil
}

type VisitRepository struct {
	coll *mongo.Collection
}

func NewVisitRepository(db *mongo.Database) *VisitRepository {
	return &VisitRepository{coll: db.Collection("visits")}
}

func (r *VisitRepository) Create(ctx context.Context, v *model.Visit) error {
	defer logger.DeferLogDuration("visit.Create", time.Now())()
	var doc visitDoc
	if err := doc.fromModel(v); err != nil {
		return err
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("visitRepo.Create: %w", err)
	}
	v.ID = res.InsertedID.(bson.ObjectID).Hex()
	return nil
}

func (r *VisitRepository) GetByID(ctx context.Context, coupleID, visitID string) (*model.Visit, error) {
	defer logger.DeferLogDuration("visit.GetByID", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return nil, err
	}
	vid, err := parseID(visitID)
	if err != nil {
		return nil, err
	}
	var doc visitDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": vid, "couple_id": cid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("visitRepo.GetByID: %w", err)
	}
	return doc.toModel(), nil
}

// ListByCouple возвращает визиты пары, новые первыми. month (формат YYYY-MM)
// фильтрует по префиксу visited_at, пустой — без фильтра.
func (r *VisitRepository) ListByCouple(ctx context.Context, coupleID, month string, limit int) ([]model.Visit, error) {
	defer logger.DeferLogDuration("visit.ListByCouple", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"couple_id": cid}
	if month != "" {
		filter["visited_at"] = bson.M{"$regex": "^" + month}
	}
	opts := options.Find().SetSort(bson.D{{Key: "visited_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("visitRepo.ListByCouple: %w", err)
	}
	var docs []visitDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("visitRepo.ListByCouple decode: %w", err)
	}
	out := make([]model.Visit, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

// Update перезаписывает изменяемые поля визита (memo, rating, emotion, tags,
// review_completed пересчитывается сервисом).
func (r *VisitRepository) Update(ctx context.Context, v *model.Visit) error {
	defer logger.DeferLogDuration("visit.Update", time.Now())()
	vid, err := parseID(v.ID)
	if err != nil {
		return err
	}
	cid, err := parseID(v.CoupleID)
	if err != nil {
		return err
	}
	set := bson.M{
		"emotion":          v.Emotion,
		"tags":             v.Tags,
		"memo":             v.Memo,
		"rating":           v.Rating,
		"location_verified": v.LocationVerified,
		"review_completed": v.ReviewCompleted,
		"visited_at":       v.VisitedAt,
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": vid, "couple_id": cid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("visitRepo.Update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VisitRepository) Delete(ctx context.Context, coupleID, visitID string) error {
	defer logger.DeferLogDuration("visit.Delete", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return err
	}
	vid, err := parseID(visitID)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": vid, "couple_id": cid})
	if err != nil {
		return fmt.Errorf("visitRepo.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
