package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/textcat/simple"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockPredictor is a mock implementation of Predictor
type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(texts []string) ([][]int, error) {
	args := m.Called(texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]int), args.Error(1)
}

func (m *MockPredictor) Labels(indexes []int) ([]string, error) {
	args := m.Called(indexes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPredictor) LabelList() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

const question = "Is it possible to execute the procedure of a function in the scope of the caller?"

func setupTestRouter(p Predictor) *gin.Engine {
	r := gin.New()
	r.GET("/predict", NewPredictHandler(p, question).Predict)
	r.GET("/health", NewHealthHandler(p, "/srv/artefacts/2024-01-09-10-57-13").Health)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPredict_Success(t *testing.T) {
	mockP := new(MockPredictor)
	mockP.On("Predict", []string{question}).Return([][]int{{2, 0, 1}}, nil)
	mockP.On("Labels", []int{2, 0, 1}).Return([]string{"javascript", "php", "python"}, nil)

	w := get(setupTestRouter(mockP), "/predict")

	assert.Equal(t, http.StatusOK, w.Code)
	var response PredictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, question, response.InputText)
	assert.Equal(t, []string{"javascript", "php", "python"}, response.Predictions)
	assert.JSONEq(t, `{"input_text": "`+question+`", "predictions": ["javascript", "php", "python"]}`, w.Body.String())
	mockP.AssertExpectations(t)
}

func TestPredict_PredictorError(t *testing.T) {
	mockP := new(MockPredictor)
	mockP.On("Predict", mock.Anything).Return(nil, errors.New("input has 3 dims, model expects 1024"))

	w := get(setupTestRouter(mockP), "/predict")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Success)
	require.NotNil(t, response.Error)
	assert.Equal(t, "INTERNAL_ERROR", response.Error.Code)
	require.NotNil(t, response.Meta)
	assert.NotEmpty(t, response.Meta.RequestID)
	mockP.AssertNotCalled(t, "Labels", mock.Anything)
}

func TestPredict_UnknownIndex(t *testing.T) {
	mockP := new(MockPredictor)
	mockP.On("Predict", mock.Anything).Return([][]int{{7}}, nil)
	mockP.On("Labels", []int{7}).Return(nil, fmt.Errorf("%w: 7", simple.ErrUnknownIndex))

	w := get(setupTestRouter(mockP), "/predict")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "LABEL_MAPPING_ERROR")
}

func TestPredict_WrongRowCount(t *testing.T) {
	mockP := new(MockPredictor)
	mockP.On("Predict", mock.Anything).Return([][]int{}, nil)

	w := get(setupTestRouter(mockP), "/predict")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestPredict_NoPredictor(t *testing.T) {
	w := get(setupTestRouter(nil), "/predict")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_READY")
}

func TestHealthHandler_Health(t *testing.T) {
	t.Run("healthy when labels are loaded", func(t *testing.T) {
		mockP := new(MockPredictor)
		mockP.On("LabelList").Return([]string{"php", "python"})

		w := get(setupTestRouter(mockP), "/health")

		assert.Equal(t, http.StatusOK, w.Code)
		var status HealthStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, 2, status.NumLabels)
		assert.Equal(t, "/srv/artefacts/2024-01-09-10-57-13", status.Artefacts)
	})

	t.Run("unhealthy without a model", func(t *testing.T) {
		w := get(setupTestRouter(nil), "/health")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "unhealthy")
	})
}

func TestRespondError(t *testing.T) {
	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		c.Set("request_id", "test-request-id")
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "bad input")
	})

	w := get(router, "/test")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "INVALID_REQUEST", response.Error.Code)
	assert.Equal(t, "bad input", response.Error.Message)
	assert.Equal(t, "test-request-id", response.Meta.RequestID)
}

func TestMapPredictError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{ErrNoPredictor, http.StatusServiceUnavailable, "NOT_READY"},
		{fmt.Errorf("wrap: %w", simple.ErrUnknownIndex), http.StatusInternalServerError, "LABEL_MAPPING_ERROR"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		got := MapPredictError(tt.err)
		assert.Equal(t, tt.status, got.StatusCode, tt.err.Error())
		assert.Equal(t, tt.code, got.Code, tt.err.Error())
	}
}
