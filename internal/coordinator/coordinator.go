// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coordinator runs the pipeline once per configured platform and
// merges the per-platform buckets in platform order.
package coordinator

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/source-scout/internal/llm"
	"github.com/pdiddy/source-scout/internal/logging"
	"github.com/pdiddy/source-scout/internal/pipeline"
	"github.com/pdiddy/source-scout/internal/source"
)

// AdapterFactory constructs the adapter for a platform name.
type AdapterFactory func(name string) (source.Adapter, error)

// Skipped records a platform that produced no output and why.
type Skipped struct {
	Platform string `json:"platform" yaml:"platform"`
	Reason   string `json:"reason" yaml:"reason"`
}

// Output is the merged result of a run across platforms.
type Output struct {
	pipeline.Result

	// Platforms lists the platforms that ran, in order.
	Platforms []string

	// Skipped lists platforms that could not run.
	Skipped []Skipped
}

// Coordinator fans a run out across platforms.
type Coordinator struct {
	factory    AdapterFactory
	summarizer llm.Summarizer
	opts       pipeline.Options
	log        *logrus.Entry
}

// New returns a Coordinator that builds adapters with factory.
func New(factory AdapterFactory, summarizer llm.Summarizer, opts pipeline.Options) *Coordinator {
	return &Coordinator{
		factory:    factory,
		summarizer: summarizer,
		opts:       opts,
		log:        logging.Component("coordinator"),
	}
}

// Run processes platforms strictly one after another and merges their
// buckets in that order, so a later platform wins any collision. A
// platform whose adapter cannot be built, or whose run fails, is logged
// and recorded in Skipped; the others still produce output. Platform
// names are lower-cased and repeats are run once.
func (c *Coordinator) Run(ctx context.Context, platforms []string, params pipeline.Params) Output {
	ctx, span := otel.Tracer("github.com/pdiddy/source-scout/internal/coordinator").Start(ctx, "coordinator.Run",
		trace.WithAttributes(attribute.StringSlice("platforms", platforms)))
	defer span.End()

	out := Output{Result: pipeline.NewResult()}
	seen := make(map[string]bool)
	for _, raw := range platforms {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if ctx.Err() != nil {
			out.Skipped = append(out.Skipped, Skipped{Platform: name, Reason: ctx.Err().Error()})
			continue
		}

		log := c.log.WithField("platform", name)
		adapter, err := c.factory(name)
		if err != nil {
			log.Warnf("skipping platform: %v", err)
			out.Skipped = append(out.Skipped, Skipped{Platform: name, Reason: err.Error()})
			continue
		}

		log.Info("running platform")
		res, err := pipeline.New(adapter, c.summarizer, c.opts).Run(ctx, params)
		if err != nil {
			log.Errorf("platform run failed: %v", err)
			out.Skipped = append(out.Skipped, Skipped{Platform: name, Reason: err.Error()})
			continue
		}
		out.Result.Merge(res)
		out.Platforms = append(out.Platforms, name)
	}
	span.SetAttributes(attribute.Int("skipped", len(out.Skipped)))
	return out
}
