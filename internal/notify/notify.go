// Package notify delivers alert lifecycle events to downstream consumers.
package notify

import (
	"context"
	"errors"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

type Notifier interface {
	Notify(ctx context.Context, ev models.AlertEvent) error
}

// Multi delivers each event to every notifier, even after one fails.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev models.AlertEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
