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

type bookmarkDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	CoupleID  bson.ObjectID `bson:"couple_id"`
	UserID    bson.ObjectID `bson:"user_id"`
	PlaceID   string        `bson:"place_id"`
	PlaceName string        `bson:"place_name,omitempty"`
	Address   string        `bson:"address,omitempty"`
	Note      string        `bson:"note,omitempty"`
	Tags      []string      `bson:"tags"`
	CreatedAt time.Time     `bson:"created_at"`
}

func (d *bookmarkDoc) toModel() *model.Bookmark {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return &model.Bookmark{
		ID:        d.ID.Hex(),
		CoupleID:  d.CoupleID.Hex(),
		UserID:    d.UserID.Hex(),
		PlaceID:   d.PlaceID,
		PlaceName: d.PlaceName,
		Address:   d.Address,
		Note:      d.Note,
		Tags:      tags,
		CreatedAt: d.CreatedAt,
	}
}

type BookmarkRepository struct {
	coll *mongo.Collection
}

func NewBookmarkRepository(db *mongo.Database) *BookmarkRepository {
	return &BookmarkRepository{coll: db.Collection("bookmarks")}
}

// ErrDuplicateBookmark — место уже в закладках этой пары.
var ErrDuplicateBookmark = errors.New("place already bookmarked")

func (r *BookmarkRepository) Create(ctx context.Context, b *model.Bookmark) error {
	defer logger.DeferLogDuration("bookmark.Create", time.Now())()
	cid, err := parseID(b.CoupleID)
	if err != nil {
		return err
	}
	uid, err := parseID(b.UserID)
	if err != nil {
		return err
	}
	// Дубликат ловим по уникальному индексу (couple_id, place_id).
	doc := bookmarkDoc{
		CoupleID:  cid,
		UserID:    uid,
		PlaceID:   b.PlaceID,
		PlaceName: b.PlaceName,
		Address:   b.Address,
		Note:      b.Note,
		Tags:      b.Tags,
		CreatedAt: b.CreatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateBookmark
		}
		return fmt.Errorf("bookmarkRepo.Create: %w", err)
	}
	b.ID = res.InsertedID.(bson.ObjectID).Hex()
	return nil
}

// ListByCouple возвращает закладки пары, новые первыми. Непустой tag фильтрует по тегу.
func (r *BookmarkRepository) ListByCouple(ctx context.Context, coupleID, tag string) ([]model.Bookmark, error) {
	defer logger.DeferLogDuration("bookmark.ListByCouple", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"couple_id": cid}
	if tag != "" {
		filter["tags"] = tag
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("bookmarkRepo.ListByCouple: %w", err)
	}
	var docs []bookmarkDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("bookmarkRepo.ListByCouple decode: %w", err)
	}
	out := make([]model.Bookmark, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

// Delete удаляет закладку пары; чужой или несуществующий id — ErrNotFound.
func (r *BookmarkRepository) Delete(ctx context.Context, coupleID, bookmarkID string) error {
	defer logger.DeferLogDuration("bookmark.Delete", time.Now())()
	cid, err := parseID(coupleID)
	if err != nil {
		return err
	}
	bid, err := parseID(bookmarkID)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": bid, "couple_id": cid})
	if err != nil {
		return fmt.Errorf("bookmarkRepo.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
