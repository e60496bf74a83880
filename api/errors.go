package api

import (
	"net/http"
	"strings"

	"github.com/lensora/tryon-backend/tryon"
	"github.com/lensora/tryon-backend/utils"
)

// statusByCode is the single place where pipeline error kinds become
// HTTP statuses. The core never decides statuses itself.
var statusByCode = map[string]int{
	tryon.CodeModelInit:       http.StatusInternalServerError,
	tryon.CodeInvalidImage:    http.StatusBadRequest,
	tryon.CodeNoFaceDetected:  http.StatusBadRequest,
	tryon.CodeCompositing:     http.StatusInternalServerError,
	tryon.CodeTimeout:         http.StatusGatewayTimeout,
	tryon.CodeStorage:         http.StatusInternalServerError,
	tryon.CodeProductNotFound: http.StatusNotFound,
	tryon.CodeNotAvailable:    http.StatusBadRequest,
	tryon.CodeMissingInput:    http.StatusBadRequest,
	tryon.CodeSessionNotFound: http.StatusNotFound,
	tryon.CodeForbidden:       http.StatusForbidden,
	tryon.CodeProcessing:      http.StatusInternalServerError,
}

func statusForCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondPipelineError maps a pipeline error to its HTTP status and
// writes the client-safe message plus the error code, so clients can
// tell "fix your photo" apart from "try again later".
func respondPipelineError(w http.ResponseWriter, logger *strings.Builder, err error) {
	code := tryon.CodeOf(err)
	if logger != nil {
		utils.AddToLogMessage(logger, err.Error())
	}
	utils.RespondJSON(w, statusForCode(code), map[string]string{
		"error": tryon.MessageOf(err),
		"code":  code,
	})
}
