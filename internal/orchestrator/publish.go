package orchestrator

import (
	"context"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/flatironinstitute/viswall-prom/internal/publisher"
)

// Publish runs the wall and writes it to path, then re-points the latest
// link when configured. A failed run leaves any previous image untouched.
func (o *Orchestrator) Publish(ctx context.Context, path string) error {
	logger := log.FromContext(ctx).WithName("orchestrator")
	start := time.Now()

	err := o.publish(ctx, path)

	if o.RunMetrics != nil {
		report := publisher.RunReport{
			Duration: time.Since(start),
			Panels:   len(o.spec.Panels),
			Success:  err == nil,
			Finished: time.Now(),
		}
		if pushErr := o.RunMetrics.Push(ctx, report); pushErr != nil {
			logger.Error(pushErr, "Failed to push run metrics")
		}
	}
	return err
}

func (o *Orchestrator) publish(ctx context.Context, path string) error {
	img, err := o.Run(ctx)
	if err != nil {
		return err
	}
	if err := publisher.WritePNG(ctx, path, img); err != nil {
		return err
	}
	if link := o.spec.Output.LatestLink; link != "" {
		if err := publisher.LinkLatest(ctx, link, path); err != nil {
			return err
		}
	}
	return nil
}
