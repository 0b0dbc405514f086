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

type planDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	CoupleID    bson.ObjectID `bson:"couple_id"`
	Title       string        `bson:"title"`
	Date        *time.Time    `bson:"date,omitempty"`
	EmotionGoal string        `bson:"emotion_goal,omitempty"`
	BudgetRange string        `bson:"budget_range,omitempty"`
	Notes       string        `bson:"notes,omitempty"`
	Stops       []planStopDoc `bson:"stops"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
}

type planStopDoc struct {
	PlaceID      string `bson:"place_id"`
	PlaceName    string `bson:"place_name,omitempty"`
	Note         string `bson:"note,omitempty"`
	ExpectedTime string `bson:"expected_time,omitempty"`
	Order        int    `bson:"order"`
}

func (d *planDoc) toModel() *model.Plan {
	stops := make([]model.PlanStop, 0, len(d.Stops))
	for _, s := range d.Stops {
		stops = append(stops, model.PlanStop(s))
	}
	return &model.Plan{
		ID:          d.ID.Hex(),
		CoupleID:    d.CoupleID.Hex(),
		Title:       d.Title,
		Date:        d.Date,
		EmotionGoal: d.EmotionGoal,
		BudgetRange: d.BudgetRange,
		Notes:       d.Notes,
		Stops:       stops,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func stopsToDocs(stops []model.PlanStop) []planStopDoc {
	out := make([]planStopDoc, 0, len(stops))
	for _, s := range stops {
		out = append(out, planStopDoc(s))
	}
	return out
}

type PlanRepository struct {
	coll *mongo.Collection
}

func NewPlanRepository(db *mongo.Database) *PlanRepository {
	return &PlanRepository{coll: db.Collection("plans")}
}

func (r *PlanRepository) Create(ctx context.Context, p *model.Plan) error {
	defer logger.DeferLogDuration("plan.Create", time.Now())()
	cid, err := parseID(p.CoupleID)
	if err != nil {
		return err
	}
	doc := planDoc{
		CoupleID:    cid,
		Title:       p.Title,
		Date:        p.Date,
		EmotionGoal: p.EmotionGoal,
		BudgetRange: p.BudgetRange,
		Notes:       p.Notes,
		Stops:       stopsToDocs(p.Stops),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("planRepo.Create: %w", err)
	}
	p.ID = res.InsertedID.(bson.ObjectID).Hex()
	return nil
}

func (r *PlanRepository) GetByID(ctx context.Context, coupleID, planID string) (*model.Plan, error) {
	defer logger.DeferLogDuration("plan.GetByID", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return nil, err
	}
	pid, err := parseID(planID)
	if err != nil {
		return nil, err
	}
	var doc planDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": pid, "couple_id": cid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("planRepo.GetByID: %w", err)
	}
	return doc.toModel(), nil
}

// ListByCouple возвращает планы пары: предстоящие по дате, затем без даты.
func (r *PlanRepository) ListByCouple(ctx context.Context, coupleID string) ([]model.Plan, error) {
	defer logger.DeferLogDuration("plan.ListByCouple", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return nil, err
	}
	cur, err := r.coll.Find(ctx,
		bson.M{"couple_id": cid},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("planRepo.ListByCouple: %w", err)
	}
	var docs []planDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("planRepo.ListByCouple decode: %w", err)
	}
	out := make([]model.Plan, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

func (r *PlanRepository) Update(ctx context.Context, p *model.Plan) error {
	defer logger.DeferLogDuration("plan.Update", time.Now())()
	pid, err := parseID(p.ID)
	if err != nil {
		return err
	}
	cid, err := parseID(p.CoupleID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": pid, "couple_id": cid},
		bson.M{"$set": bson.M{
			"title":        p.Title,
			"date":         p.Date,
			"emotion_goal": p.EmotionGoal,
			"budget_range": p.BudgetRange,
			"notes":        p.Notes,
			"stops":        stopsToDocs(p.Stops),
			"updated_at":   time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("planRepo.Update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PlanRepository) Delete(ctx context.Context, coupleID, planID string) error {
	defer logger.DeferLogDuration("plan.Delete", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return err
	}
	pid, err := parseID(planID)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": pid, "couple_id": cid})
	if err != nil {
		return fmt.Errorf("planRepo.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
