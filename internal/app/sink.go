package service

import (
	"context"

	"github.com/okian/hotpath/internal/domain/model"
	"github.com/okian/hotpath/pkg/logger"
	"github.com/okian/hotpath/pkg/metrics"
)

// ackSink acknowledges tasks without performing them.
type ackSink struct {
	logger logger.Logger
}

func newAckSink(l logger.Logger) *ackSink {
	return &ackSink{logger: l}
}

func (a *ackSink) Acknowledge(ctx context.Context, t model.Task) error { //nolint:gocritic // hugeParam: matches worker.Sink
	metrics.RecordAck(string(t.Kind))
	a.logger.Debug(ctx, "acknowledged task",
		logger.String("kind", string(t.Kind)),
		logger.Any("task", t),
	)
	return nil
}
