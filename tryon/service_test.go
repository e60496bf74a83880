package tryon

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lensora/tryon-backend/models"
)

type fakeDetector struct {
	landmarks Landmarks
	err       error
	calls     int
}

func (f *fakeDetector) Detect(ctx context.Context, photo []byte) (Landmarks, error) {
	f.calls++
	if f.err != nil {
		return Landmarks{}, f.err
	}
	return f.landmarks, nil
}

type fakeCompositor struct {
	result    Composite
	err       error
	calls     int
	lastAsset OverlayAsset
}

func (f *fakeCompositor) Composite(ctx context.Context, photo []byte, landmarks Landmarks, asset OverlayAsset) (Composite, error) {
	f.calls++
	f.lastAsset = asset
	if f.err != nil {
		return Composite{}, f.err
	}
	return f.result, nil
}

type fakeProducts struct {
	products map[string]*models.Product
}

func (f *fakeProducts) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return f.products[id], nil
}

type fakeSessions struct {
	mu        sync.Mutex
	created   []*models.TryOn
	deleted   []string
	createErr error
}

func (f *fakeSessions) Create(ctx context.Context, session *models.TryOn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	f.created = append(f.created, session)
	return nil
}

func (f *fakeSessions) FindByID(ctx context.Context, id string) (*models.TryOn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.created {
		if s.ID.Hex() == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeSessions) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	kept := f.created[:0]
	for _, s := range f.created {
		if s.ID.Hex() != id {
			kept = append(kept, s)
		}
	}
	f.created = kept
	return nil
}

func (f *fakeSessions) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.TryOn, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TryOn
	for _, s := range f.created {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

type fakeStorage struct {
	mu         sync.Mutex
	stored     map[string][]byte
	deleted    []string
	failPrefix string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{stored: map[string][]byte{}}
}

func (f *fakeStorage) Store(ctx context.Context, data []byte, key, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPrefix != "" && strings.HasPrefix(key, f.failPrefix) {
		return "", fmt.Errorf("upload refused for %s", key)
	}
	f.stored[key] = data
	return key, nil
}

func (f *fakeStorage) Presign(ctx context.Context, key string) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	delete(f.stored, key)
	return nil
}

func enabledProduct(overlayRef string) *models.Product {
	return &models.Product{
		ID:   primitive.NewObjectID(),
		Name: "Aviator Classic",
		TryOn: models.TryOnAsset{
			Enabled:    true,
			Image:      overlayRef,
			Dimensions: models.TryOnDimensions{Width: 500, Height: 200},
		},
	}
}

func newTestService(d *fakeDetector, c *fakeCompositor, products map[string]*models.Product) (*Service, *fakeSessions, *fakeStorage) {
	sessions := &fakeSessions{}
	storage := newFakeStorage()
	svc := NewService(d, c, &fakeProducts{products: products}, sessions, storage)
	return svc, sessions, storage
}

func TestRunCompletedSession(t *testing.T) {
	det := &fakeDetector{landmarks: Landmarks{
		LeftEye:    Point{X: 100, Y: 200},
		RightEye:   Point{X: 180, Y: 200},
		Confidence: 0.92,
	}}
	comp := &fakeCompositor{result: Composite{
		Image:     []byte("jpeg-bytes"),
		Placement: Placement{X: 50, Y: 160, Width: 200, Height: 80},
	}}
	svc, sessions, storage := newTestService(det, comp, map[string]*models.Product{
		"p1": enabledProduct("https://assets.example.com/overlay.png"),
	})

	session, err := svc.Run(context.Background(), "u1", "p1", []byte("photo-bytes"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if session.Status != models.TryOnStatusCompleted {
		t.Errorf("status = %q, want %q", session.Status, models.TryOnStatusCompleted)
	}
	if session.UserImage == "" || session.ResultImage == "" {
		t.Errorf("completed session must have both image refs, got %q / %q", session.UserImage, session.ResultImage)
	}
	if session.Failure != nil {
		t.Errorf("completed session must not carry failure info, got %+v", session.Failure)
	}
	if !strings.HasPrefix(session.UserImage, "tryon/inputs/") {
		t.Errorf("input key = %q, want tryon/inputs/ prefix", session.UserImage)
	}
	if !strings.HasPrefix(session.ResultImage, "tryon/results/") {
		t.Errorf("result key = %q, want tryon/results/ prefix", session.ResultImage)
	}
	if session.Metadata.Dimensions.Width != 200 || session.Metadata.Dimensions.Height != 80 {
		t.Errorf("metadata dimensions = %+v, want 200x80", session.Metadata.Dimensions)
	}
	if session.Metadata.FaceConfidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", session.Metadata.FaceConfidence)
	}
	if len(sessions.created) != 1 {
		t.Fatalf("persisted %d sessions, want 1", len(sessions.created))
	}
	if len(storage.stored) != 2 {
		t.Errorf("stored %d objects, want 2", len(storage.stored))
	}
	if string(storage.stored[session.ResultImage]) != "jpeg-bytes" {
		t.Errorf("result object content mismatch")
	}
}

func TestRunResolvesOverlayKeyToSignedURL(t *testing.T) {
	det := &fakeDetector{landmarks: Landmarks{LeftEye: Point{X: 10, Y: 10}, RightEye: Point{X: 40, Y: 10}}}
	comp := &fakeCompositor{result: Composite{Image: []byte("x")}}
	svc, _, _ := newTestService(det, comp, map[string]*models.Product{
		"p1": enabledProduct("overlays/p1.png"),
	})

	if _, err := svc.Run(context.Background(), "u1", "p1", []byte("photo")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := "https://signed.example.com/overlays/p1.png"
	if comp.lastAsset.ImageURL != want {
		t.Errorf("overlay URL = %q, want %q", comp.lastAsset.ImageURL, want)
	}
}

func TestRunPreconditions(t *testing.T) {
	products := map[string]*models.Product{
		"enabled": enabledProduct("https://assets.example.com/o.png"),
		"disabled": {
			ID:    primitive.NewObjectID(),
			TryOn: models.TryOnAsset{Enabled: false, Image: "https://assets.example.com/o.png"},
		},
	}

	tests := []struct {
		name      string
		productID string
		photo     []byte
		wantCode  string
	}{
		{"empty photo", "enabled", nil, CodeMissingInput},
		{"empty product id", "", []byte("photo"), CodeMissingInput},
		{"unknown product", "missing", []byte("photo"), CodeProductNotFound},
		{"try-on disabled", "disabled", []byte("photo"), CodeNotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &fakeDetector{}
			comp := &fakeCompositor{}
			svc, sessions, storage := newTestService(det, comp, products)

			_, err := svc.Run(context.Background(), "u1", tt.productID, tt.photo)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := CodeOf(err); code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
			if det.calls != 0 || comp.calls != 0 {
				t.Errorf("pipeline ran on failed precondition: detect=%d composite=%d", det.calls, comp.calls)
			}
			if len(storage.stored) != 0 || len(sessions.created) != 0 {
				t.Errorf("side effects on failed precondition")
			}
		})
	}
}

func TestRunDetectorFailureKeepsCode(t *testing.T) {
	det := &fakeDetector{err: NewError(CodeNoFaceDetected, "no face detected in the image", nil)}
	svc, sessions, _ := newTestService(det, &fakeCompositor{}, map[string]*models.Product{
		"p1": enabledProduct("https://assets.example.com/o.png"),
	})

	_, err := svc.Run(context.Background(), "u1", "p1", []byte("photo"))
	if err == nil {
		t.Fatal("expected error")
	}
	if code := CodeOf(err); code != CodeNoFaceDetected {
		t.Errorf("code = %q, want %q", code, CodeNoFaceDetected)
	}
	if !strings.Contains(MessageOf(err), "detect") {
		t.Errorf("message %q should name the stage", MessageOf(err))
	}
	if len(sessions.created) != 0 {
		t.Error("failed pipeline must not persist a session")
	}
}

func TestRunUploadFailure(t *testing.T) {
	det := &fakeDetector{landmarks: Landmarks{LeftEye: Point{X: 10, Y: 10}, RightEye: Point{X: 40, Y: 10}}}
	comp := &fakeCompositor{result: Composite{Image: []byte("x")}}
	svc, sessions, storage := newTestService(det, comp, map[string]*models.Product{
		"p1": enabledProduct("https://assets.example.com/o.png"),
	})
	storage.failPrefix = "tryon/results/"

	_, err := svc.Run(context.Background(), "u1", "p1", []byte("photo"))
	if err == nil {
		t.Fatal("expected error")
	}
	if code := CodeOf(err); code != CodeStorage {
		t.Errorf("code = %q, want %q", code, CodeStorage)
	}
	if len(sessions.created) != 0 {
		t.Error("no session may be persisted when an upload fails")
	}
}

func TestGetAndDeleteOwnership(t *testing.T) {
	det := &fakeDetector{landmarks: Landmarks{LeftEye: Point{X: 10, Y: 10}, RightEye: Point{X: 40, Y: 10}}}
	comp := &fakeCompositor{result: Composite{Image: []byte("x")}}
	svc, sessions, storage := newTestService(det, comp, map[string]*models.Product{
		"p1": enabledProduct("https://assets.example.com/o.png"),
	})

	session, err := svc.Run(context.Background(), "u1", "p1", []byte("photo"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	id := session.ID.Hex()

	if _, err := svc.Get(context.Background(), "u1", id); err != nil {
		t.Errorf("owner Get failed: %v", err)
	}

	if _, err := svc.Get(context.Background(), "u2", id); CodeOf(err) != CodeForbidden {
		t.Errorf("foreign Get code = %q, want %q", CodeOf(err), CodeForbidden)
	}
	if err := svc.Delete(context.Background(), "u2", id); CodeOf(err) != CodeForbidden {
		t.Errorf("foreign Delete code = %q, want %q", CodeOf(err), CodeForbidden)
	}
	if len(sessions.deleted) != 0 {
		t.Error("forbidden delete must not modify the session")
	}

	if _, err := svc.Get(context.Background(), "u1", "aaaaaaaaaaaaaaaaaaaaaaaa"); CodeOf(err) != CodeSessionNotFound {
		t.Errorf("unknown id code = %q, want %q", CodeOf(err), CodeSessionNotFound)
	}

	if err := svc.Delete(context.Background(), "u1", id); err != nil {
		t.Fatalf("owner Delete failed: %v", err)
	}
	if len(storage.deleted) != 2 {
		t.Errorf("deleted %d stored images, want 2", len(storage.deleted))
	}
	if found, _ := svc.Sessions.FindByID(context.Background(), id); found != nil {
		t.Error("session still present after delete")
	}
}

func TestListNormalizesPaging(t *testing.T) {
	svc, sessions, _ := newTestService(&fakeDetector{}, &fakeCompositor{}, nil)
	sessions.created = []*models.TryOn{
		{ID: primitive.NewObjectID(), UserID: "u1"},
		{ID: primitive.NewObjectID(), UserID: "u2"},
	}

	got, total, err := svc.List(context.Background(), "u1", 0, -5)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(got) != 1 {
		t.Errorf("got %d/%d sessions, want 1/1", len(got), total)
	}
}

func TestRunStageTimeout(t *testing.T) {
	svc := &Service{}
	err := svc.runStage(context.Background(), "detect", 30*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if code := CodeOf(err); code != CodeTimeout {
		t.Errorf("code = %q, want %q", code, CodeTimeout)
	}
}

func TestStageTimeoutScalesWithInput(t *testing.T) {
	if got := stageTimeout(1024); got != 10*time.Second {
		t.Errorf("small input budget = %v, want 10s", got)
	}
	if got := stageTimeout(5 << 20); got != 30*time.Second {
		t.Errorf("5MiB budget = %v, want 30s", got)
	}
	if got := stageTimeout(1 << 30); got != 60*time.Second {
		t.Errorf("huge input budget = %v, want 60s cap", got)
	}
}
