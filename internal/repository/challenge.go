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

type challengePlaceDoc struct {
	ID           bson.ObjectID  `bson:"_id,omitempty"`
	Name         string         `bson:"name"`
	Description  string         `bson:"description,omitempty"`
	Location     geoPoint       `bson:"location"`
	Address      string         `bson:"address,omitempty"`
	CategoryID   *bson.ObjectID `bson:"category_id,omitempty"`
	Tags         []string       `bson:"tags"`
	BadgeReward  string         `bson:"badge_reward"`
	PointsReward int            `bson:"points_reward"`
	Active       bool           `bson:"active"`
	CreatedAt    time.Time      `bson:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at"`
}

func (d *challengePlaceDoc) toModel() *model.ChallengePlace {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	p := &model.ChallengePlace{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Description:  d.Description,
		Latitude:     d.Location.Coordinates[1],
		Longitude:    d.Location.Coordinates[0],
		Address:      d.Address,
		Tags:         tags,
		BadgeReward:  d.BadgeReward,
		PointsReward: d.PointsReward,
		Active:       d.Active,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.CategoryID != nil {
		p.CategoryID = d.CategoryID.Hex()
	}
	return p
}

type challengeCategoryDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Name        string        `bson:"name"`
	Description string        `bson:"description,omitempty"`
	Icon        string        `bson:"icon,omitempty"`
	Color       string        `bson:"color,omitempty"`
	Active      bool          `bson:"active"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
}

func (d *challengeCategoryDoc) toModel() *model.ChallengeCategory {
	return &model.ChallengeCategory{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Icon:        d.Icon,
		Color:       d.Color,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// ChallengeRepository — челлендж-места и их категории (коллекции
// challenge_places и challenge_categories).
type ChallengeRepository struct {
	places     *mongo.Collection
	categories *mongo.Collection
}

func NewChallengeRepository(db *mongo.Database) *ChallengeRepository {
	return &ChallengeRepository{
		places:     db.Collection("challenge_places"),
		categories: db.Collection("challenge_categories"),
	}
}

func (r *ChallengeRepository) CreatePlace(ctx context.Context, p *model.ChallengePlace) error {
	defer logger.DeferLogDuration("challenge.CreatePlace", time.Now())()
	doc := challengePlaceDoc{
		Name:         p.Name,
		Description:  p.Description,
		Location:     newGeoPoint(p.Latitude, p.Longitude),
		Address:      p.Address,
		Tags:         p.Tags,
		BadgeReward:  p.BadgeReward,
		PointsReward: p.PointsReward,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.CategoryID != "" {
		cid, err := parseID(p.CategoryID)
		if err != nil {
			return err
		}
		doc.CategoryID = &cid
	}
	res, err := r.places.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("challengeRepo.CreatePlace: %w", err)
	}
	p.ID = res.InsertedID.(bson.ObjectID).Hex()
	return nil
}

func (r *ChallengeRepository) GetPlace(ctx context.Context, id string) (*model.ChallengePlace, error) {
	defer logger.DeferLogDuration("challenge.GetPlace", time.Now())()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var doc challengePlaceDoc
	err = r.places.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("challengeRepo.GetPlace: %w", err)
	}
	return doc.toModel(), nil
}

// ListPlaces возвращает челлендж-места; activeOnly скрывает выключенные
// (публичная выдача). Админка передаёт false и видит всё.
func (r *ChallengeRepository) ListPlaces(ctx context.Context, activeOnly bool) ([]model.ChallengePlace, error) {
	defer logger.DeferLogDuration("challenge.ListPlaces", time.Now())()
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	cur, err := r.places.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("challengeRepo.ListPlaces: %w", err)
	}
	var docs []challengePlaceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("challengeRepo.ListPlaces decode: %w", err)
	}
	out := make([]model.ChallengePlace, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

func (r *ChallengeRepository) UpdatePlace(ctx context.Context, p *model.ChallengePlace) error {
	defer logger.DeferLogDuration("challenge.UpdatePlace", time.Now())()
	oid, err := parseID(p.ID)
	if err != nil {
		return err
	}
	set := bson.M{
		"name":          p.Name,
		"description":   p.Description,
		"location":      newGeoPoint(p.Latitude, p.Longitude),
		"address":       p.Address,
		"tags":          p.Tags,
		"badge_reward":  p.BadgeReward,
		"points_reward": p.PointsReward,
		"active":        p.Active,
		"updated_at":    time.Now().UTC(),
	}
	if p.CategoryID != "" {
		cid, err := parseID(p.CategoryID)
		if err != nil {
			return err
		}
		set["category_id"] = cid
	}
	res, err := r.places.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("challengeRepo.UpdatePlace: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePlace — софт-удаление: место выключается, история наград остаётся валидной.
func (r *ChallengeRepository) DeletePlace(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("challenge.DeletePlace", time.Now())()
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.places.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"active": false, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("challengeRepo.DeletePlace: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ChallengeRepository) CreateCategory(ctx context.Context, c *model.ChallengeCategory) error {
	defer logger.DeferLogDuration("challenge.CreateCategory", time.Now())()
	doc := challengeCategoryDoc{
		Name:        c.Name,
		Description: c.Description,
		Icon:        c.Icon,
		Color:       c.Color,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	res, err := r.categories.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("challengeRepo.CreateCategory: %w", err)
	}
	c.ID = res.InsertedID.(bson.ObjectID).Hex()
	return nil
}

func (r *ChallengeRepository) ListCategories(ctx context.Context, activeOnly bool) ([]model.ChallengeCategory, error) {
	defer logger.DeferLogDuration("challenge.ListCategories", time.Now())()
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	cur, err := r.categories.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("challengeRepo.ListCategories: %w", err)
	}
	var docs []challengeCategoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("challengeRepo.ListCategories decode: %w", err)
	}
	out := make([]model.ChallengeCategory, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

func (r *ChallengeRepository) UpdateCategory(ctx context.Context, c *model.ChallengeCategory) error {
	defer logger.DeferLogDuration("challenge.UpdateCategory", time.Now())()
	oid, err := parseID(c.ID)
	if err != nil {
		return err
	}
	res, err := r.categories.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"name":        c.Name,
			"description": c.Description,
			"icon":        c.Icon,
			"color":       c.Color,
			"active":      c.Active,
			"updated_at":  time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("challengeRepo.UpdateCategory: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ChallengeRepository) DeleteCategory(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("challenge.DeleteCategory", time.Now())()
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.categories.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"active": false, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("challengeRepo.DeleteCategory: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
