package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/service"
	"github.com/storefront/commerce-backend/internal/notify"
	"github.com/storefront/commerce-backend/pkg/logger"
)

// DefaultLowStockSpec runs the digest every day at 08:00.
const DefaultLowStockSpec = "0 8 * * *"

const runTimeout = 5 * time.Minute

// LowStockScheduler sends each active business a digest of the items at
// or below their minimum stock.
type LowStockScheduler struct {
	cron       *cron.Cron
	spec       string
	businesses service.BusinessService
	items      service.ItemService
	notifier   notify.Notifier
}

func NewLowStockScheduler(spec string, businesses service.BusinessService, items service.ItemService, notifier notify.Notifier) *LowStockScheduler {
	if spec == "" {
		spec = DefaultLowStockSpec
	}
	return &LowStockScheduler{
		cron:       cron.New(),
		spec:       spec,
		businesses: businesses,
		items:      items,
		notifier:   notifier,
	}
}

// Start registers the job and starts the cron loop.
func (s *LowStockScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		logger.Info("Starting scheduled low-stock digest", nil)
		sent, err := s.RunOnce(ctx)
		if err != nil {
			logger.Error("Low-stock digest failed", err)
			return
		}
		logger.Info("Low-stock digest finished", map[string]interface{}{
			"digests": sent,
		})
	})
	if err != nil {
		logger.Error("Failed to add cron job for low-stock digest", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Low-stock scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// Stop waits for a running job to finish.
func (s *LowStockScheduler) Stop() {
	logger.Info("Stopping low-stock scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Low-stock scheduler stopped", nil)
}

// RunOnce builds and sends the digest for every active business that has
// low-stock items. It returns the number of digests sent. A failure for one
// business is logged and does not stop the others.
func (s *LowStockScheduler) RunOnce(ctx context.Context) (int, error) {
	businesses, err := s.businesses.ListActive()
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range businesses {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		b := &businesses[i]
		items, err := s.items.LowStock(b.ID)
		if err != nil {
			logger.Error("Failed to load low-stock items", err, map[string]interface{}{
				"business_id": b.ID,
			})
			continue
		}
		if len(items) == 0 {
			continue
		}

		if err := s.notifier.Send(ctx, digestMessage(b, items)); err != nil {
			logger.Error("Failed to send low-stock digest", err, map[string]interface{}{
				"business_id": b.ID,
			})
			continue
		}
		sent++
	}
	return sent, nil
}

func digestMessage(b *model.BusinessEntity, items []model.Item) notify.Message {
	var body strings.Builder
	fmt.Fprintf(&body, "%d item(s) at or below minimum stock:\n", len(items))
	for _, it := range items {
		fmt.Fprintf(&body, "- %s: %d on hand (min %d)\n", it.Name, it.Quantity, it.MinStock)
	}

	return notify.Message{
		Kind:       notify.KindLowStockDigest,
		BusinessID: b.ID,
		To:         b.Email,
		Subject:    fmt.Sprintf("%s: low stock report", b.Name),
		Body:       body.String(),
		Data: map[string]string{
			"business_slug": b.Slug,
			"count":         fmt.Sprintf("%d", len(items)),
		},
	}
}
