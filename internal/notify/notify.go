package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/storefront/commerce-backend/config"
	"github.com/storefront/commerce-backend/pkg/logger"
)

type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindOrderCancelled    Kind = "order_cancelled"
	KindOTP               Kind = "otp"
	KindPasswordReset     Kind = "password_reset"
	KindLowStockDigest    Kind = "low_stock_digest"
)

// Message is one outbound notification. Delivery is the sink's concern.
type Message struct {
	Kind       Kind              `json:"kind"`
	BusinessID uint              `json:"business_id,omitempty"`
	To         string            `json:"to"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// sendTimeout bounds one background delivery.
const sendTimeout = 10 * time.Second

// Dispatch sends msg in the background. Failures are logged and never
// reach the caller.
func Dispatch(n Notifier, msg Message) {
	if n == nil {
		return
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := n.Send(ctx, msg); err != nil {
			logger.Error("Failed to deliver notification", err, map[string]interface{}{
				"kind":        msg.Kind,
				"business_id": msg.BusinessID,
				"to":          msg.To,
			})
		}
	}()
}

// New builds the notifier selected by cfg.Driver.
func New(cfg config.NotifierConfig) (Notifier, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogNotifier(cfg.From), nil
	case "kafka":
		return NewKafkaNotifier(cfg.Brokers, cfg.Topic, cfg.From)
	default:
		return nil, fmt.Errorf("unknown notifier driver %q", cfg.Driver)
	}
}
