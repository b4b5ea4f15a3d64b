package usecase

import (
	"context"
	"testing"

	"LearnCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) attribute.Value {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestPredictRecordsComputeSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	uc := newUseCase(u1Store(), useCaseDeps{}, WithTracer(tp.Tracer("test")))
	_, err := uc.Predict(context.Background(), allFlags("u1", "30d"))
	require.NoError(t, err)
	_, err = uc.Predict(context.Background(), allFlags("ghost", "30d"))
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "PredictionUseCase.compute", ok.Name())
	assert.Equal(t, "u1", spanAttr(ok, "learner.id").AsString())
	assert.Equal(t, int64(30), spanAttr(ok, "horizon.days").AsInt64())
	assert.Equal(t, string(models.StatusOK), spanAttr(ok, "prediction.status").AsString())

	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, string(models.KindLearnerNotFound), failed.Status().Description)
	require.NotEmpty(t, failed.Events())
	assert.Equal(t, "exception", failed.Events()[0].Name)
}
