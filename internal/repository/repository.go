// Package repository — доступ к MongoDB. Каждая коллекция обёрнута в свой
// репозиторий; наружу отдаются model-структуры со строковыми id,
// bson-документы не покидают пакет.
package repository

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var ErrNotFound = errors.New("not found")

// parseID конвертирует строковый id в ObjectID; невалидный id считаем
// отсутствующим документом, а не ошибкой сервера.
func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%w: bad id %q", ErrNotFound, id)
	}
	return oid, nil
}

// geoPoint — GeoJSON Point для 2dsphere-индекса: порядок [lon, lat].
type geoPoint struct {
	Type        string     `bson:"type"`
	Coordinates [2]float64 `bson:"coordinates"`
}

func newGeoPoint(lat, lon float64) geoPoint {
	return geoPoint{Type: "Point", Coordinates: [2]float64{lon, lat}}
}
