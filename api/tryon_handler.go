package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lensora/tryon-backend/models"
	"github.com/lensora/tryon-backend/utils"
)

const maxUploadBytes = 10 << 20 // 10 MB photo limit

// TryOnService is the pipeline surface the HTTP layer consumes
type TryOnService interface {
	Run(ctx context.Context, userID, productID string, photo []byte) (*models.TryOn, error)
	Get(ctx context.Context, userID, sessionID string) (*models.TryOn, error)
	List(ctx context.Context, userID string, page, limit int) ([]models.TryOn, int64, error)
	Delete(ctx context.Context, userID, sessionID string) error
}

// TryOnHandler exposes the virtual try-on endpoints
type TryOnHandler struct {
	Service TryOnService
}

func NewTryOnHandler(service TryOnService) *TryOnHandler {
	return &TryOnHandler{Service: service}
}

// Create handles POST /api/tryon: multipart form with a user_image file
// and a product_id field. Responds 201 with the completed session.
func (h *TryOnHandler) Create(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Virtual Try-On API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Error parsing form data", http.StatusBadRequest)
		return
	}

	productID := r.FormValue("product_id")
	if productID == "" {
		utils.RespondError(w, &logMessageBuilder, "product_id is required", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("user_image")
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "user_image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Error reading uploaded image", http.StatusBadRequest)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Try-On Request: UserID=%s, ProductID=%s, PhotoBytes=%d", userID, productID, len(photo)))

	session, err := h.Service.Run(r.Context(), userID, productID, photo)
	if err != nil {
		respondPipelineError(w, &logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Try-on completed: session=%s in %dms", session.ID.Hex(), session.Metadata.ProcessingMs))

	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Virtual try-on completed successfully",
		"session": presignSession(r.Context(), *session),
	})
}

// presignSession swaps stored S3 keys for presigned URLs on the way out
func presignSession(ctx context.Context, session models.TryOn) models.TryOn {
	session.UserImage = utils.PresignImageURL(ctx, session.UserImage)
	session.ResultImage = utils.PresignImageURL(ctx, session.ResultImage)
	return session
}
