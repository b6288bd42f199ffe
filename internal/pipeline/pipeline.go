// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the per-platform stage sequence: fetch, quality
// filter, top-k select, detail collection, content split, LLM tagging,
// relevance filter, rank, and quota split.
//
// The stages are written once against source.Adapter and llm.Summarizer
// so every platform goes through the same sequence. Queries run strictly
// in order and their stores are merged in query order, so a later query's
// item wins on a title collision. Within one query, detail fetches and
// per-item tagging may run concurrently because items never share state
// before the merge.
package pipeline

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/source-scout/internal/llm"
	"github.com/pdiddy/source-scout/internal/logging"
	"github.com/pdiddy/source-scout/internal/source"
	"github.com/pdiddy/source-scout/internal/store"
	"github.com/pdiddy/source-scout/pkg/types"
)

// ErrInvalidParams is returned by Run for parameters no run can honour.
var ErrInvalidParams = errors.New("invalid pipeline parameters")

const (
	// DefaultOverfetchFactor gives the quality filter room to discard
	// candidates without starving the top-k.
	DefaultOverfetchFactor = 2

	tracerName = "github.com/pdiddy/source-scout/internal/pipeline"
)

// Params are the per-run inputs.
type Params struct {
	Queries               []string
	SourcesPerQuery       int
	Questions             []string
	MaxOutputsPerPlatform int
}

// Options tune how a run executes without changing its meaning.
type Options struct {
	// OverfetchFactor multiplies SourcesPerQuery for raw fetches
	// (0 means DefaultOverfetchFactor).
	OverfetchFactor int

	// Parallelism bounds concurrent tagging within a platform (minimum 1).
	Parallelism int
}

// Pipeline binds the stage sequence to one adapter and summarizer.
type Pipeline struct {
	adapter    source.Adapter
	summarizer llm.Summarizer
	opts       Options
	log        *logrus.Entry
	tracer     trace.Tracer
}

// New returns a pipeline for adapter.
func New(adapter source.Adapter, summarizer llm.Summarizer, opts Options) *Pipeline {
	if opts.OverfetchFactor == 0 {
		opts.OverfetchFactor = DefaultOverfetchFactor
	}
	opts.Parallelism = max(opts.Parallelism, 1)
	return &Pipeline{
		adapter:    adapter,
		summarizer: summarizer,
		opts:       opts,
		log:        logging.Component("pipeline").WithField("platform", adapter.Name()),
		tracer:     otel.Tracer(tracerName),
	}
}

func (p *Pipeline) validate(params Params) error {
	switch {
	case params.SourcesPerQuery < 1:
		return errors.Wrapf(ErrInvalidParams, "sources_per_query must be at least 1, got %d", params.SourcesPerQuery)
	case params.MaxOutputsPerPlatform < 0:
		return errors.Wrapf(ErrInvalidParams, "max_outputs_per_platform must not be negative, got %d", params.MaxOutputsPerPlatform)
	case p.opts.OverfetchFactor < 1:
		return errors.Wrapf(ErrInvalidParams, "overfetch factor must be at least 1, got %d", p.opts.OverfetchFactor)
	}
	return nil
}

// Run executes every stage for params. It returns an error only for
// invalid parameters or a cancelled context; per-item failures are
// absorbed into bucket placement.
func (p *Pipeline) Run(ctx context.Context, params Params) (Result, error) {
	if err := p.validate(params); err != nil {
		return Result{}, err
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("platform", p.adapter.Name()),
		attribute.Int("queries", len(params.Queries)),
		attribute.Int("questions", len(params.Questions)),
	))
	defer span.End()

	merged := p.CollectQueries(ctx, params.Queries, params.SourcesPerQuery)
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	withContent, noContent := SplitByContent(merged)
	if err := p.Tag(ctx, withContent, params.Questions); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	relevant, low := FilterRelevant(withContent)
	top, rejected := ChooseTop(Rank(relevant), params.MaxOutputsPerPlatform)

	res := Result{Top: top, NoContent: noContent, LowRelevance: low, Rejected: rejected}
	counts := res.Counts()
	for b, n := range counts {
		span.SetAttributes(attribute.Int("bucket."+string(b), n))
	}
	p.log.WithField("top", counts[BucketTop]).
		WithField("no_content", counts[BucketNoContent]).
		WithField("low_relevance", counts[BucketLowRelevance]).
		WithField("rejected", counts[BucketRejected]).
		Info("platform done")
	return res, nil
}

// CollectQueries runs ProcessQuery for each query in order and merges the
// per-query stores left to right.
func (p *Pipeline) CollectQueries(ctx context.Context, queries []string, sourcesPerQuery int) *store.Store {
	perQuery := make([]*store.Store, 0, len(queries))
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		perQuery = append(perQuery, p.ProcessQuery(ctx, q, sourcesPerQuery))
	}
	return store.MergeAll(perQuery...)
}

// ProcessQuery fetches OverfetchFactor*n candidates for query, drops low
// quality ones, keeps the first n in adapter order, and collects their
// details. A fetch failure yields an empty store; a detail collection
// failure yields the kept items without content.
func (p *Pipeline) ProcessQuery(ctx context.Context, query string, n int) *store.Store {
	ctx, span := p.tracer.Start(ctx, "pipeline.ProcessQuery", trace.WithAttributes(
		attribute.String("platform", p.adapter.Name()),
		attribute.String("query", query),
	))
	defer span.End()
	log := p.log.WithField("query", query)

	raw, err := p.adapter.Fetch(ctx, query, p.opts.OverfetchFactor*n)
	if err != nil {
		log.Warnf("fetch failed: %v", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return store.New()
	}

	kept := p.adapter.FilterLowQuality(raw)
	if len(kept) > n {
		kept = kept[:n]
	}
	span.SetAttributes(
		attribute.Int("fetched", len(raw)),
		attribute.Int("kept", len(kept)),
	)
	log.Debugf("fetched %d, kept %d", len(raw), len(kept))
	if len(kept) == 0 {
		return store.New()
	}

	s, err := p.adapter.CollectDetails(ctx, kept)
	if err != nil {
		log.Warnf("detail collection failed: %v", err)
		span.RecordError(err)
		return source.StoreFromRaw(p.adapter.Name(), kept)
	}
	return s
}

// SplitByContent partitions s into items with non-empty content and the
// rest. Items are copied, so both results are independent of s.
func SplitByContent(s *store.Store) (withContent, noContent *store.Store) {
	withContent, noContent = store.New(), store.New()
	s.Each(func(platform, title string, item *types.Item) {
		if item.HasContent() {
			withContent.Add(platform, title, item)
		} else {
			noContent.Add(platform, title, item)
		}
	})
	return withContent, noContent
}

// Tag summarizes every item in s and scores it against questions, in
// place. Items are tagged concurrently up to Options.Parallelism. Only a
// cancelled context is returned as an error.
func (p *Pipeline) Tag(ctx context.Context, s *store.Store, questions []string) error {
	type entry struct {
		title string
		item  *types.Item
	}
	var items []entry
	s.Each(func(_, title string, item *types.Item) {
		items = append(items, entry{title, item})
	})

	ctx, span := p.tracer.Start(ctx, "pipeline.Tag", trace.WithAttributes(
		attribute.String("platform", p.adapter.Name()),
		attribute.Int("items", len(items)),
	))
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Parallelism)
	for _, e := range items {
		g.Go(func() error {
			p.tagItem(gctx, e.title, e.item, questions)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// tagItem sets summary, optional detailed_summary, accepted Q&A, and
// relevance_score on item. A failed summary scores the item 0.
func (p *Pipeline) tagItem(ctx context.Context, title string, item *types.Item, questions []string) {
	log := p.log.WithField("title", title)
	content := item.ContentText()

	summary, combined, err := p.summarizer.Summarize(ctx, content)
	if err != nil {
		log.Warnf("summarization failed: %v", err)
		item.Set(types.FieldRelevanceScore, 0)
		return
	}
	if combined {
		organized, err := p.summarizer.OrganizeIntoOne(ctx, summary)
		if err != nil {
			log.Warnf("organizing sectioned summary failed, keeping it as is: %v", err)
			organized = summary
		}
		item.Set(types.FieldDetailedSummary, summary)
		item.Set(types.FieldSummary, organized)
	} else {
		item.Set(types.FieldSummary, summary)
	}

	score := 0
	for _, q := range questions {
		if p.accepted(ctx, log, item, q, content, summary) {
			score++
		}
	}
	item.Set(types.FieldRelevanceScore, score)
}

// accepted asks q and records the answer when both validations pass.
func (p *Pipeline) accepted(ctx context.Context, log *logrus.Entry, item *types.Item, q, content, summary string) bool {
	log = log.WithField("question", q)
	answer, err := p.summarizer.AskQuestion(ctx, q, content, summary)
	if err != nil {
		log.Warnf("question failed: %v", err)
		return false
	}
	ok, err := p.summarizer.ValidateAgainstContent(ctx, q, answer)
	if err != nil {
		log.Warnf("content validation failed: %v", err)
	}
	if !ok {
		return false
	}
	ok, err = p.summarizer.ValidateAgainstKnowledge(ctx, q, answer)
	if err != nil {
		log.Warnf("knowledge validation failed: %v", err)
	}
	if !ok {
		return false
	}
	item.AddAnswer(q, answer)
	return true
}

// FilterRelevant splits s into items with a positive relevance_score and
// the rest. The low-relevance items lose their score field; platforms
// left without items do not appear in either result.
func FilterRelevant(s *store.Store) (relevant, low *store.Store) {
	relevant, low = store.New(), store.New()
	s.Each(func(platform, title string, item *types.Item) {
		if score, _ := item.RelevanceScore(); score > 0 {
			relevant.Add(platform, title, item)
			return
		}
		c := item.Clone()
		c.Delete(types.FieldRelevanceScore)
		low.Add(platform, title, c)
	})
	return relevant, low
}

// Rank orders each platform's items by relevance_score, highest first,
// keeping the prior order among equal scores, and strips the score.
func Rank(s *store.Store) *store.Store {
	out := store.New()
	for _, platform := range s.Platforms() {
		titles := s.Titles(platform)
		scores := make(map[string]int, len(titles))
		for _, t := range titles {
			it, _ := s.Get(platform, t)
			scores[t], _ = it.RelevanceScore()
		}
		sort.SliceStable(titles, func(i, j int) bool {
			return scores[titles[i]] > scores[titles[j]]
		})
		for _, t := range titles {
			it, _ := s.Get(platform, t)
			c := it.Clone()
			c.Delete(types.FieldRelevanceScore)
			out.Add(platform, t, c)
		}
	}
	return out
}

// ChooseTop sends the first quota items of each platform to top and the
// remainder to rejected.
func ChooseTop(s *store.Store, quota int) (top, rejected *store.Store) {
	top, rejected = store.New(), store.New()
	for _, platform := range s.Platforms() {
		for i, t := range s.Titles(platform) {
			it, _ := s.Get(platform, t)
			if i < quota {
				top.Add(platform, t, it)
			} else {
				rejected.Add(platform, t, it)
			}
		}
	}
	return top, rejected
}
