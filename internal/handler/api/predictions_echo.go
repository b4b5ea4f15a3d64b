package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"LearnCast/internal/domain/models"
	domrepo "LearnCast/internal/domain/repository"
	servicemetrics "LearnCast/internal/service/metrics"
	"LearnCast/internal/usecase"
	xhttp "LearnCast/pkg/http"
	applogger "LearnCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Predictor is the use case behind the prediction endpoints.
type Predictor interface {
	Predict(ctx context.Context, p usecase.PredictParams) (*models.PredictionResult, error)
}

// PredictionsEchoHandler serves predictions over Echo.
type PredictionsEchoHandler struct {
	logger    *applogger.Logger
	predictor Predictor
	store     domrepo.ActivityStore
	apiMW     []echo.MiddlewareFunc
}

// NewPredictionsEchoHandler wires the handler; mw applies to the /api group only.
func NewPredictionsEchoHandler(logger *applogger.Logger, predictor Predictor, store domrepo.ActivityStore, mw ...echo.MiddlewareFunc) *PredictionsEchoHandler {
	if logger == nil {
		logger = applogger.NewNop()
	}
	servicemetrics.Register()
	return &PredictionsEchoHandler{logger: logger, predictor: predictor, store: store, apiMW: mw}
}

func (h *PredictionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.apiMW...)
	g.POST("/predictions", h.Predict)
	g.GET("/learners/:id/predictions", h.LearnerPredictions)
	e.GET("/healthz", h.Health)
}

// Predict handles POST /api/predictions.
func (h *PredictionsEchoHandler) Predict(c echo.Context) error {
	return h.predict(c, "predict")
}

// LearnerPredictions handles GET /api/learners/:id/predictions.
func (h *PredictionsEchoHandler) LearnerPredictions(c echo.Context) error {
	return h.predict(c, "learner_predictions")
}

func (h *PredictionsEchoHandler) predict(c echo.Context, endpoint string) error {
	start := time.Now()
	defer func() {
		servicemetrics.PredictionLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req := &models.PredictionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		servicemetrics.PredictionErrors.WithLabelValues(endpoint, string(models.KindInvalidRequest)).Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.predictor.Predict(c.Request().Context(), usecase.PredictParams{
		UserID:    req.UserID,
		Timeframe: req.Timeframe,
		Flags:     req.Flags(),
	})
	if err != nil {
		kind := models.KindOf(err)
		servicemetrics.PredictionErrors.WithLabelValues(endpoint, string(kind)).Inc()
		appErr := toAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("prediction failed",
				applogger.String("endpoint", endpoint),
				applogger.String("learner_id", req.UserID),
				applogger.String("kind", string(kind)),
				applogger.Error(err),
			)
		}
		return xhttp.AppErrorResponse(c, appErr)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, models.NewPredictionResponse(res))
}

// Health reports whether the activity store is reachable.
func (h *PredictionsEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Health(ctx); err != nil {
		h.logger.Warn("health check failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("activity store unreachable").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"store": "ok"})
}

func toAppError(err error) *xhttp.AppError {
	var pe *models.PredictionError
	if !errors.As(err, &pe) {
		return xhttp.InternalError("prediction failed").WithError(err)
	}
	switch pe.Kind {
	case models.KindInvalidRequest:
		return xhttp.NewAppError("ERR_INVALID_REQUEST", pe.Field, "invalid "+pe.Field, http.StatusBadRequest).
			WithParam("reason", pe.Reason).WithError(err)
	case models.KindLearnerNotFound:
		return xhttp.NotFoundErrorf("learner %s not found", pe.Reason).WithError(err)
	case models.KindCanceled:
		return xhttp.ServiceUnavailableError("prediction canceled").WithError(err)
	case models.KindAggregation:
		return xhttp.NewAppError("ERR_AGGREGATION", "", "could not load learner activity", http.StatusInternalServerError).WithError(err)
	}
	return xhttp.InternalError("prediction failed").WithError(err)
}
