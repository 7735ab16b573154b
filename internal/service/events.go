package service

import (
	"context"
	"time"

	"catalog/internal/event"
	"catalog/internal/model"

	"github.com/sirupsen/logrus"
)

func newEvent(eventType string, product *model.Product, approval *model.ApprovalRequest) event.Event {
	evt := event.Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
	if product != nil {
		evt.ProductID = product.ID.String()
		evt.Status = product.Status
	}
	if approval != nil {
		evt.ApprovalRequestID = approval.ID.String()
		if evt.ProductID == "" {
			evt.ProductID = approval.ProductID.String()
		}
	}
	return evt
}

// publishEvent runs after commit; delivery failures never fail the request.
func publishEvent(ctx context.Context, publisher event.Publisher, log *logrus.Entry, evt event.Event) {
	if err := publisher.Publish(ctx, evt); err != nil {
		log.WithError(err).WithField("event", evt.Type).Warn("failed to publish event")
	}
}
