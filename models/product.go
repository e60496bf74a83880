package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TryOnAsset describes the product-supplied overlay used for try-on
type TryOnAsset struct {
	Enabled    bool            `bson:"enabled" json:"enabled"`
	Image      string          `bson:"image" json:"image"` // S3 key or absolute URL of the overlay raster
	Dimensions TryOnDimensions `bson:"dimensions" json:"dimensions"`
}

// Product represents a catalog product. The catalog is managed
// elsewhere; this service only reads the fields the try-on pipeline
// needs.
type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Brand     string             `bson:"brand" json:"brand"`
	Price     float64            `bson:"price" json:"price"`
	Images    []string           `bson:"images" json:"images"`
	TryOn     TryOnAsset         `bson:"try_on" json:"try_on"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
