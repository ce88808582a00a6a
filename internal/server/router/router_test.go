package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Noofbiz/textcat/datasets"
	"github.com/Noofbiz/textcat/internal/config"
	"github.com/Noofbiz/textcat/internal/server/handler"
	"github.com/Noofbiz/textcat/simple"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// trainArtefacts trains a tiny model on two tags and saves it under a
// timestamped directory, the way cmd/train does.
func trainArtefacts(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("post_id,tag_name,tag_id,tag_position,title\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "a%d,php,1,0,php array function scope %d\n", i, i)
		fmt.Fprintf(&sb, "b%d,python,2,0,python list comprehension %d\n", i, i)
	}
	ds, err := datasets.NewLocalDatasetFromReader(strings.NewReader(sb.String()), datasets.LocalConfig{
		BatchSize: 4, TrainRatio: 0.8, MinSamplesPerLabel: 1, Seed: 3,
	})
	require.NoError(t, err)

	model, err := simple.NewModel(simple.Config{InputDim: 64, NumLabels: ds.NumLabels(), Epochs: 5, Seed: 3})
	require.NoError(t, err)
	_, err = model.TrainWithSequence(ds.TrainSequence())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "2024-01-09-10-57-13")
	require.NoError(t, model.SaveArtefacts(dir, ds.IndexToLabel()))
	return dir
}

func TestSetup(t *testing.T) {
	dir := trainArtefacts(t)
	pred, err := simple.LoadArtefacts(dir)
	require.NoError(t, err)

	cfg := &config.PredictConfig{ArtefactsPath: dir, InputText: config.DefaultInputText, TopK: 5}
	r := Setup(pred, cfg, zap.NewNop())

	t.Run("predict returns every label ranked", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/predict", http.NoBody)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

		var response handler.PredictResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, config.DefaultInputText, response.InputText)
		// top 5 is capped at the two known labels
		assert.ElementsMatch(t, []string{"php", "python"}, response.Predictions)
	})

	t.Run("health reports artefacts", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/health", http.NoBody)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var status handler.HealthStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, dir, status.Artefacts)
		assert.Equal(t, 2, status.NumLabels)
	})

	t.Run("unknown route is 404", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/nope", http.NoBody)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSetupWithoutModel(t *testing.T) {
	r := Setup(nil, &config.PredictConfig{ArtefactsPath: filepath.Join(os.TempDir(), "missing")}, zap.NewNop())

	req, _ := http.NewRequest("GET", "/predict", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
