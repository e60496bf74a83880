package detector

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/lensora/tryon-backend/tryon"
)

var (
	ortInitMu      sync.Mutex
	ortInitialized bool
)

// initRuntime sets up the ONNX Runtime environment (process-wide, once)
func initRuntime() error {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()

	if ortInitialized {
		return nil
	}

	if libPath := os.Getenv("ONNXRUNTIME_SHARED_LIB"); libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	ortInitialized = true
	return nil
}

// modelSession wraps a loaded ONNX inference session
type modelSession struct {
	session *ort.DynamicAdvancedSession
}

func (s *modelSession) run(inputs, outputs []ort.Value) error {
	return s.session.Run(inputs, outputs)
}

// ModelManager owns the process-wide face detection model. The model is
// loaded lazily on first use; concurrent callers serialize on the mutex
// so exactly one load happens, and a failed load is not cached — the
// next caller retries.
type ModelManager struct {
	mu   sync.Mutex
	sess *modelSession
	load func() (*modelSession, error)
}

// NewModelManager prepares a manager for the SCRFD model at modelPath.
// Nothing is loaded until the first detection.
func NewModelManager(modelPath string) *ModelManager {
	return &ModelManager{
		load: func() (*modelSession, error) {
			return loadModel(modelPath)
		},
	}
}

// EnsureReady loads the model if it is not loaded yet. Idempotent.
func (m *ModelManager) EnsureReady(ctx context.Context) error {
	_, err := m.ensureReady(ctx)
	return err
}

func (m *ModelManager) ensureReady(ctx context.Context) (*modelSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess != nil {
		return m.sess, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, tryon.NewError(tryon.CodeModelInit, "model load canceled", err)
	}

	sess, err := m.load()
	if err != nil {
		return nil, tryon.NewError(tryon.CodeModelInit, "failed to initialize face detection model", err)
	}
	m.sess = sess
	return sess, nil
}

func loadModel(modelPath string) (*modelSession, error) {
	if err := initRuntime(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		scrfdInputNames,
		scrfdOutputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}

	return &modelSession{session: session}, nil
}
