package tryon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lensora/tryon-backend/models"
)

// Detector turns a photo into facial landmarks
type Detector interface {
	Detect(ctx context.Context, photo []byte) (Landmarks, error)
}

// Compositor renders the overlay onto the photo
type Compositor interface {
	Composite(ctx context.Context, photo []byte, landmarks Landmarks, asset OverlayAsset) (Composite, error)
}

// ProductStore is the read surface of the catalog collaborator.
// A nil product with nil error means the product does not exist.
type ProductStore interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
}

// SessionStore persists try-on sessions.
// FindByID returns (nil, nil) for unknown ids.
type SessionStore interface {
	Create(ctx context.Context, session *models.TryOn) error
	FindByID(ctx context.Context, id string) (*models.TryOn, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, page, limit int) ([]models.TryOn, int64, error)
}

// ObjectStorage stores image bytes durably and resolves stored keys to
// fetchable URLs.
type ObjectStorage interface {
	Store(ctx context.Context, data []byte, key, contentType string) (string, error)
	Presign(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Service orchestrates the try-on pipeline: preconditions, landmark
// detection, compositing, uploads and session persistence. All
// collaborators are injected so tests can substitute fakes.
type Service struct {
	Detector   Detector
	Compositor Compositor
	Products   ProductStore
	Sessions   SessionStore
	Storage    ObjectStorage
}

func NewService(d Detector, c Compositor, p ProductStore, s SessionStore, o ObjectStorage) *Service {
	return &Service{Detector: d, Compositor: c, Products: p, Sessions: s, Storage: o}
}

// Run executes one try-on request end to end and returns the persisted
// session. Failures short-circuit; no session record is written on
// failure (failed attempts are not durably recorded).
func (s *Service) Run(ctx context.Context, userID, productID string, photo []byte) (*models.TryOn, error) {
	if len(photo) == 0 {
		return nil, NewError(CodeMissingInput, "user image is required", nil)
	}
	if productID == "" {
		return nil, NewError(CodeMissingInput, "product id is required", nil)
	}

	product, err := s.Products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, stageError("product lookup", err)
	}
	if product == nil {
		return nil, NewError(CodeProductNotFound, "product not found", nil)
	}
	if !product.TryOn.Enabled {
		return nil, NewError(CodeNotAvailable, "virtual try-on not available for this product", nil)
	}

	overlayURL, err := s.resolveOverlayURL(ctx, product.TryOn.Image)
	if err != nil {
		return nil, stageError("overlay asset", err)
	}
	asset := OverlayAsset{
		ImageURL: overlayURL,
		Width:    product.TryOn.Dimensions.Width,
		Height:   product.TryOn.Dimensions.Height,
	}

	started := time.Now()
	budget := stageTimeout(len(photo))

	var landmarks Landmarks
	err = s.runStage(ctx, "detect", budget, func(stageCtx context.Context) error {
		var stageErr error
		landmarks, stageErr = s.Detector.Detect(stageCtx, photo)
		return stageErr
	})
	if err != nil {
		return nil, err
	}

	var result Composite
	err = s.runStage(ctx, "composite", budget, func(stageCtx context.Context) error {
		var stageErr error
		result, stageErr = s.Compositor.Composite(stageCtx, photo, landmarks, asset)
		return stageErr
	})
	if err != nil {
		return nil, err
	}

	inputKey := fmt.Sprintf("tryon/inputs/%s%s", uuid.New().String(), extensionFor(photo))
	resultKey := fmt.Sprintf("tryon/results/%s.jpg", uuid.New().String())

	// The two uploads are independent, so they run concurrently. Either
	// failure fails the whole request before anything is persisted.
	g, uploadCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, uploadErr := s.Storage.Store(uploadCtx, photo, inputKey, http.DetectContentType(photo))
		return uploadErr
	})
	g.Go(func() error {
		_, uploadErr := s.Storage.Store(uploadCtx, result.Image, resultKey, "image/jpeg")
		return uploadErr
	})
	if err := g.Wait(); err != nil {
		return nil, stageError("upload", NewError(CodeStorage, "failed to store try-on images", err))
	}

	session := &models.TryOn{
		UserID:      userID,
		ProductID:   productID,
		UserImage:   inputKey,
		ResultImage: resultKey,
		Status:      models.TryOnStatusCompleted,
		Metadata: models.TryOnMetadata{
			ProcessedAt: time.Now(),
			Dimensions: models.TryOnDimensions{
				Width:  result.Placement.Width,
				Height: result.Placement.Height,
			},
			FaceConfidence: landmarks.Confidence,
			ProcessingMs:   time.Since(started).Milliseconds(),
		},
		CreatedAt: time.Now(),
	}

	if err := s.Sessions.Create(ctx, session); err != nil {
		return nil, stageError("persist", err)
	}

	return session, nil
}

// Get returns a session if it exists and belongs to the requester
func (s *Service) Get(ctx context.Context, userID, sessionID string) (*models.TryOn, error) {
	session, err := s.Sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, stageError("session lookup", err)
	}
	if session == nil {
		return nil, NewError(CodeSessionNotFound, "virtual try-on session not found", nil)
	}
	if session.UserID != userID {
		return nil, NewError(CodeForbidden, "unauthorized access to virtual try-on session", nil)
	}
	return session, nil
}

// List returns the requester's sessions, newest first
func (s *Service) List(ctx context.Context, userID string, page, limit int) ([]models.TryOn, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	sessions, total, err := s.Sessions.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, stageError("session list", err)
	}
	return sessions, total, nil
}

// Delete removes a session owned by the requester along with its
// stored images. Image cleanup is best effort; the record removal is
// what must succeed.
func (s *Service) Delete(ctx context.Context, userID, sessionID string) error {
	session, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	for _, key := range []string{session.UserImage, session.ResultImage} {
		if key == "" || strings.HasPrefix(key, "http") {
			continue
		}
		if err := s.Storage.Delete(ctx, key); err != nil {
			log.Printf("failed to delete try-on image %s: %v", key, err)
		}
	}

	if err := s.Sessions.Delete(ctx, sessionID); err != nil {
		return stageError("session delete", err)
	}
	return nil
}

// resolveOverlayURL turns a stored overlay reference into a fetchable
// URL. Absolute URLs pass through; storage keys are presigned.
func (s *Service) resolveOverlayURL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", NewError(CodeNotAvailable, "product has no overlay asset", nil)
	}
	if strings.HasPrefix(ref, "http") {
		return ref, nil
	}
	url, err := s.Storage.Presign(ctx, ref)
	if err != nil {
		return "", NewError(CodeStorage, "failed to resolve overlay asset", err)
	}
	return url, nil
}

// runStage runs fn under a deadline and converts an elapsed deadline
// into a timeout error instead of whatever the stage was about to
// report.
func (s *Service) runStage(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) error {
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(stageCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			if stageCtx.Err() == context.DeadlineExceeded {
				return NewError(CodeTimeout, fmt.Sprintf("%s stage timed out", name), err)
			}
			return stageError(name, err)
		}
		return nil
	case <-stageCtx.Done():
		if stageCtx.Err() == context.DeadlineExceeded {
			return NewError(CodeTimeout, fmt.Sprintf("%s stage timed out", name), stageCtx.Err())
		}
		return stageError(name, stageCtx.Err())
	}
}

// stageTimeout scales the per-stage budget with input size: 10s base
// plus 1s per 256KiB, capped at 60s.
func stageTimeout(photoBytes int) time.Duration {
	d := 10*time.Second + time.Duration(photoBytes/(256<<10))*time.Second
	if d > 60*time.Second {
		d = 60 * time.Second
	}
	return d
}

// extensionFor picks a storage key extension from the sniffed content
// type of the uploaded photo.
func extensionFor(photo []byte) string {
	switch http.DetectContentType(photo) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
