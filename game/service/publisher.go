package service

import (
	"context"
	"errors"
)

// Publishers fans an event out to several publishers. Every publisher is
// tried; their errors are joined.
type Publishers []EventPublisher

// Publish implements EventPublisher
func (p Publishers) Publish(ctx context.Context, event GameEvent) error {
	var errs []error
	for _, pub := range p {
		if pub == nil {
			continue
		}
		if err := pub.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
