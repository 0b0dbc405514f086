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

type savedReportDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	CoupleID  bson.ObjectID `bson:"couple_id"`
	Name      string        `bson:"name"`
	Month     string        `bson:"month"`
	Payload   bson.Raw      `bson:"payload"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

func (d *savedReportDoc) toModel() (*model.SavedReport, error) {
	var rep model.Report
	if err := bson.Unmarshal(d.Payload, &rep); err != nil {
		return nil, fmt.Errorf("reportRepo decode payload: %w", err)
	}
	return &model.SavedReport{
		ID:        d.ID.Hex(),
		CoupleID:  d.CoupleID.Hex(),
		Name:      d.Name,
		Report:    rep,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// ReportRepository — сохранённые месячные отчёты. Сам отчёт лежит как
// вложенный payload: его форма эволюционирует вместе с агрегатами,
// и жёсткая bson-схема тут только мешала бы.
type ReportRepository struct {
	coll *mongo.Collection
}

func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{coll: db.Collection("saved_reports")}
}

func (r *ReportRepository) Create(ctx context.Context, sr *model.SavedReport) error {
	defer logger.DeferLogDuration("report.Create", time.Now())()
	cid, err := parseID(sr.CoupleID)
	if err != nil {
		return err
	}
	payload, err := bson.Marshal(sr.Report)
	if err != nil {
		return fmt.Errorf("reportRepo.Create marshal: %w", err)
	}
	doc := savedReportDoc{
		CoupleID:  cid,
		Name:      sr.Name,
		Month:     sr.Month,
		Payload:   payload,
		CreatedAt: sr.CreatedAt,
		UpdatedAt: sr.UpdatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("reportRepo.Create: %w", err)
	}
	sr.ID = res.InsertedID.(bson.ObjectID).Hex()
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, coupleID, reportID string) (*model.SavedReport, error) {
	defer logger.DeferLogDuration("report.GetByID", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return nil, err
	}
	rid, err := parseID(reportID)
	if err != nil {
		return nil, err
	}
	var doc savedReportDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": rid, "couple_id": cid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reportRepo.GetByID: %w", err)
	}
	return doc.toModel()
}

func (r *ReportRepository) ListByCouple(ctx context.Context, coupleID string) ([]model.SavedReport, error) {
	defer logger.DeferLogDuration("report.ListByCouple", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return nil, err
	}
	cur, err := r.coll.Find(ctx,
		bson.M{"couple_id": cid},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("reportRepo.ListByCouple: %w", err)
	}
	var docs []savedReportDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("reportRepo.ListByCouple decode: %w", err)
	}
	out := make([]model.SavedReport, 0, len(docs))
	for i := range docs {
		sr, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *sr)
	}
	return out, nil
}

func (r *ReportRepository) Delete(ctx context.Context, coupleID, reportID string) error {
	defer logger.DeferLogDuration("report.Delete", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return err
	}
	rid, err := parseID(reportID)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": rid, "couple_id": cid})
	if err != nil {
		return fmt.Errorf("reportRepo.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
