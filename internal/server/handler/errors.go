package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Noofbiz/textcat/simple"
)

// ErrNoPredictor is returned when the server starts without a model.
var ErrNoPredictor = errors.New("no model loaded")

// APIError is an error mapped to its HTTP representation.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// MapPredictError maps predictor errors to HTTP error responses.
func MapPredictError(err error) APIError {
	switch {
	case errors.Is(err, ErrNoPredictor):
		return APIError{
			StatusCode: http.StatusServiceUnavailable,
			Code:       "NOT_READY",
			Message:    "model not loaded",
		}
	case errors.Is(err, simple.ErrUnknownIndex):
		return APIError{
			StatusCode: http.StatusInternalServerError,
			Code:       "LABEL_MAPPING_ERROR",
			Message:    "predicted label is missing from the label index",
		}
	default:
		return APIError{
			StatusCode: http.StatusInternalServerError,
			Code:       "INTERNAL_ERROR",
			Message:    "internal server error",
		}
	}
}

// HandlePredictError sends the error envelope for err.
func HandlePredictError(c *gin.Context, err error) {
	_ = c.Error(err)
	apiErr := MapPredictError(err)
	respondError(c, apiErr.StatusCode, apiErr.Code, apiErr.Message)
}
