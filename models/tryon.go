package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Try-on session states. A session is written exactly once and never
// transitions out of a terminal state.
const (
	TryOnStatusProcessing = "PROCESSING"
	TryOnStatusCompleted  = "COMPLETED"
	TryOnStatusFailed     = "FAILED"
)

// TryOnMetadata captures how the composite was produced
type TryOnMetadata struct {
	ProcessedAt    time.Time       `bson:"processed_at" json:"processed_at"`
	Dimensions     TryOnDimensions `bson:"dimensions" json:"dimensions"`
	FaceConfidence float64         `bson:"face_confidence" json:"face_confidence"`
	ProcessingMs   int64           `bson:"processing_ms" json:"processing_ms"`
}

// TryOnDimensions is the overlay rectangle actually rendered, in pixels
type TryOnDimensions struct {
	Width  float64 `bson:"width" json:"width"`
	Height float64 `bson:"height" json:"height"`
}

// TryOnFailure is populated only on FAILED sessions
type TryOnFailure struct {
	Code    string `bson:"code" json:"code"`
	Message string `bson:"message" json:"message"`
}

// TryOn represents a virtual try-on session and result
type TryOn struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	ProductID   string             `bson:"product_id" json:"product_id"`
	UserImage   string             `bson:"user_image" json:"user_image"`                       // S3 key of the input photo
	ResultImage string             `bson:"result_image,omitempty" json:"result_image,omitempty"` // S3 key of the composited image
	Status      string             `bson:"status" json:"status"`
	Metadata    TryOnMetadata      `bson:"metadata" json:"metadata"`
	Failure     *TryOnFailure      `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
