package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
)

type placeDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Name        string        `bson:"name"`
	Description string        `bson:"description,omitempty"`
	Location    geoPoint      `bson:"location"`
	Tags        []string      `bson:"tags"`
	Category    string        `bson:"category,omitempty"`
	Rating      *float64      `bson:"rating,omitempty"`
	Source      string        `bson:"source,omitempty"`
}

func (d *placeDoc) toModel() *model.Place {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return &model.Place{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Coordinates: model.Coordinates{
			Latitude:  d.Location.Coordinates[1],
			Longitude: d.Location.Coordinates[0],
		},
		Tags:     tags,
		Category: d.Category,
		Rating:   d.Rating,
		Source:   d.Source,
	}
}

// PlaceRepository — пул мест для рекомендаций. Коллекция с 2dsphere-индексом
// по location.
type PlaceRepository struct {
	coll *mongo.Collection
}

func NewPlaceRepository(db *mongo.Database) *PlaceRepository {
	return &PlaceRepository{coll: db.Collection("places")}
}

func (r *PlaceRepository) Create(ctx context.Context, p *model.Place) error {
	defer logger.DeferLogDuration("place.Create", time.Now())()
	doc := placeDoc{
		Name:        p.Name,
		Description: p.Description,
		Location:    newGeoPoint(p.Coordinates.Latitude, p.Coordinates.Longitude),
		Tags:        p.Tags,
		Category:    p.Category,
		Rating:      p.Rating,
		Source:      p.Source,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("placeRepo.Create: %w", err)
	}
	p.ID = res.InsertedID.(bson.ObjectID).Hex()
	return nil
}

// Nearby возвращает места в радиусе radiusM метров от точки, ближние первыми
// ($near сортирует по расстоянию сам). Непустой tags сужает выдачу ($in).
func (r *PlaceRepository) Nearby(ctx context.Context, lat, lon float64, radiusM, limit int, tags []string) ([]model.Place, error) {
	defer logger.DeferLogDuration("place.Nearby", time.Now())()
	filter := bson.M{
		"location": bson.M{
			"$near": bson.M{
				"$geometry":    newGeoPoint(lat, lon),
				"$maxDistance": radiusM,
			},
		},
	}
	if len(tags) > 0 {
		filter["tags"] = bson.M{"$in": tags}
	}
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("placeRepo.Nearby: %w", err)
	}
	var docs []placeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("placeRepo.Nearby decode: %w", err)
	}
	out := make([]model.Place, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

// ListAll — весь пул мест (для скоринга рекомендаций; пул небольшой).
func (r *PlaceRepository) ListAll(ctx context.Context, limit int) ([]model.Place, error) {
	defer logger.DeferLogDuration("place.ListAll", time.Now())()
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("placeRepo.ListAll: %w", err)
	}
	var docs []placeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("placeRepo.ListAll decode: %w", err)
	}
	out := make([]model.Place, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

// Count нужен для ленивого сидинга пула при старте.
func (r *PlaceRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("placeRepo.Count: %w", err)
	}
	return n, nil
}
