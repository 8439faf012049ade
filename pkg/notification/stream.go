package notification

import (
	"context"
	"encoding/json"

	"github.com/jordanlanch/prospectroute/pkg/cache"
	"github.com/jordanlanch/prospectroute/pkg/logger"
	"github.com/jordanlanch/prospectroute/pkg/models"
)

// Signals streams broadcast refresh signals to a connected user
type Signals struct {
	cache  *cache.Client
	prefix string
	logger logger.Logger
}

// NewSignals creates a signal stream source
func NewSignals(c *cache.Client, prefix string, log logger.Logger) *Signals {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &Signals{cache: c, prefix: prefix, logger: logger.OrDefault(log)}
}

// Stream subscribes to userID's channel. The returned channel is closed once
// ctx is done or the subscription ends.
func (s *Signals) Stream(ctx context.Context, userID int) (<-chan models.NotificationSignal, error) {
	sub, err := s.cache.Subscribe(ctx, Channel(s.prefix, userID))
	if err != nil {
		return nil, err
	}

	out := make(chan models.NotificationSignal)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Messages()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var signal models.NotificationSignal
				if err := json.Unmarshal([]byte(msg.Payload), &signal); err != nil {
					s.logger.Warn("dropping malformed notification signal", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- signal:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
