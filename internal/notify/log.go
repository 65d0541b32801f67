package notify

import (
	"context"

	"github.com/storefront/commerce-backend/pkg/logger"
)

// LogNotifier writes notifications to the application log. It is the
// default sink for development.
type LogNotifier struct {
	from string
}

func NewLogNotifier(from string) *LogNotifier {
	return &LogNotifier{from: from}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	logger.Info("Notification", map[string]interface{}{
		"kind":        msg.Kind,
		"business_id": msg.BusinessID,
		"from":        n.from,
		"to":          msg.To,
		"subject":     msg.Subject,
	})
	return nil
}

func (n *LogNotifier) Close() error { return nil }
