package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/events"
	"github.com/maynagashev/flowkeeper/internal/metrics"
)

// publishEvent публикует событие. Ошибка публикации только логируется.
func publishEvent(ctx context.Context, p events.Publisher, logger *zap.Logger, e events.Event) {
	if err := p.Publish(ctx, e); err != nil {
		metrics.EventPublishFailures.WithLabelValues(e.Type).Inc()
		logger.Warn("Не удалось опубликовать событие", zap.String("type", e.Type), zap.Error(err))
	}
}
