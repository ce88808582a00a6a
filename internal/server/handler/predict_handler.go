package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Predictor ranks labels for texts. *simple.Predictor implements it.
type Predictor interface {
	Predict(texts []string) ([][]int, error)
	Labels(indexes []int) ([]string, error)
	LabelList() []string
}

// PredictHandler serves predictions for a fixed input text.
type PredictHandler struct {
	predictor Predictor
	inputText string
}

// NewPredictHandler creates a new predict handler
func NewPredictHandler(predictor Predictor, inputText string) *PredictHandler {
	return &PredictHandler{
		predictor: predictor,
		inputText: inputText,
	}
}

// PredictResponse is the body of GET /predict.
type PredictResponse struct {
	InputText   string   `json:"input_text"`
	Predictions []string `json:"predictions"`
}

// Predict handles GET /predict
func (h *PredictHandler) Predict(c *gin.Context) {
	if h.predictor == nil {
		HandlePredictError(c, ErrNoPredictor)
		return
	}

	ranked, err := h.predictor.Predict([]string{h.inputText})
	if err != nil {
		HandlePredictError(c, err)
		return
	}
	if len(ranked) != 1 {
		HandlePredictError(c, fmt.Errorf("predictor returned %d rows for 1 text", len(ranked)))
		return
	}

	labels, err := h.predictor.Labels(ranked[0])
	if err != nil {
		HandlePredictError(c, err)
		return
	}

	c.JSON(http.StatusOK, PredictResponse{
		InputText:   h.inputText,
		Predictions: labels,
	})
}
