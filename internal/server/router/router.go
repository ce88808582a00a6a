package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Noofbiz/textcat/internal/config"
	"github.com/Noofbiz/textcat/internal/server/handler"
	"github.com/Noofbiz/textcat/internal/server/middleware"
)

// Setup creates and configures the Gin router. predictor may be nil, in which
// case /predict answers 503 until the process is restarted with a model.
func Setup(predictor handler.Predictor, cfg *config.PredictConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	healthHandler := handler.NewHealthHandler(predictor, cfg.ArtefactsPath)
	router.GET("/health", healthHandler.Health)

	predictHandler := handler.NewPredictHandler(predictor, cfg.InputText)
	router.GET("/predict", predictHandler.Predict)

	return router
}
