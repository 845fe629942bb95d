package notifications

import (
	"context"

	"labwatch/internal/config"
	"labwatch/internal/evaluate"
	"labwatch/internal/sink"
)

// Consumer publishes rejections and streak milestones from the result sink.
// It is driven by a single fanout goroutine and is not safe for concurrent use.
type Consumer struct {
	svc        Service
	rejections bool
	milestone  int
	lastStreak int
}

// NewConsumer adapts svc into a sink consumer using the configured triggers.
func NewConsumer(svc Service, cfg config.Notifications) *Consumer {
	return &Consumer{svc: svc, rejections: cfg.NotifyRejections, milestone: cfg.StreakMilestone}
}

// Consume implements sink.Consumer.
func (c *Consumer) Consume(ctx context.Context, msg sink.Message) error {
	previous := c.lastStreak
	streak := msg.CumulativeValue()
	c.lastStreak = streak

	if !msg.Accepted {
		if !c.rejections {
			return nil
		}
		return c.svc.Publish(ctx, EventFileRejected, Payload{
			"file":            msg.FileName(),
			"category":        msg.Category,
			"previous_streak": previous,
			"summary":         evaluate.Summary(msg.Stats),
		})
	}
	if c.milestone > 0 && streak > 0 && streak%c.milestone == 0 {
		return c.svc.Publish(ctx, EventStreakMilestone, Payload{
			"file":   msg.FileName(),
			"streak": streak,
		})
	}
	return nil
}
