package notify

import (
	"context"

	"go.uber.org/zap"

	"grifttracker/internal/models"
)

// Notifier receives material suggestion changes: a flipped recommendation
// or a confidence move past the configured step.
type Notifier interface {
	SuggestionChanged(ctx context.Context, prev, next *models.Suggestion)
}

// LogNotifier is the default sink; downstream delivery channels implement
// the same interface.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SuggestionChanged(_ context.Context, prev, next *models.Suggestion) {
	fields := []zap.Field{
		zap.String("entity_id", next.EntityID),
		zap.String("recommendation", next.Recommendation),
		zap.Float64("score", next.AggregateScore),
		zap.Float64("confidence", next.Confidence),
	}
	if prev != nil {
		fields = append(fields,
			zap.String("previous_recommendation", prev.Recommendation),
			zap.Float64("previous_confidence", prev.Confidence))
	}
	n.logger.Info("suggestion changed", fields...)
}
