package filter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/directory/internal/domain"
	domfilter "github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/logger"
	"github.com/kailas-cloud/directory/internal/metrics"
)

// Executor runs Definitions against a record store. It is stateless
// between calls.
type Executor struct {
	store Store
}

// New creates an Executor.
func New(store Store) *Executor {
	return &Executor{store: store}
}

// Execute runs def and returns one page of records.
func (e *Executor) Execute(ctx context.Context, def domfilter.Definition) (domfilter.Result, error) {
	start := time.Now()
	proximity := strconv.FormatBool(def.Location.IsSet())

	res, err := e.execute(ctx, def)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.FilterExecutionsTotal.WithLabelValues(proximity, status).Inc()
	metrics.FilterExecutionDuration.WithLabelValues(proximity).Observe(time.Since(start).Seconds())

	if err != nil {
		logger.FromContext(ctx).Warn("filter execution failed",
			zap.Int("filters", len(def.Filters)),
			zap.Bool("proximity", def.Location.IsSet()),
			zap.Error(err),
		)
		return domfilter.Result{}, err
	}
	return res, nil
}

func (e *Executor) execute(ctx context.Context, def domfilter.Definition) (domfilter.Result, error) {
	preds := domfilter.Compile(def.Filters)
	for _, p := range preds {
		if _, ok := builders[p.Operator]; !ok {
			return domfilter.Result{}, &domain.MalformedQueryError{
				Reason: fmt.Sprintf("operator %q is not supported on field %q", p.Operator, p.Field),
			}
		}
	}

	var distances map[string]float64
	var ids []string
	if def.Location.IsSet() {
		hits, err := e.store.Near(ctx, *def.Location.Coordinate, def.Location.MaxDistanceMeters)
		if err != nil {
			return domfilter.Result{}, domain.NewExecutionError("near", err)
		}
		metrics.FilterCandidates.Observe(float64(len(hits)))
		if len(hits) == 0 {
			return domfilter.NewResult(0, def.Page, def.Limit, nil), nil
		}
		distances = make(map[string]float64, len(hits))
		ids = make([]string, 0, len(hits))
		for _, h := range hits {
			if _, dup := distances[h.ID]; dup {
				continue
			}
			distances[h.ID] = h.Distance
			ids = append(ids, h.ID)
		}
	}

	q := e.store.NewQuery()
	for _, p := range preds {
		q = builders[p.Operator](q, p)
	}
	if ids != nil {
		q = q.WhereIDIn(ids)
	}

	sort := sortOrder(def.Sorting, ids != nil)

	var (
		total int
		list  []domfilter.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.store.Count(gctx, q)
		if err != nil {
			return domain.NewExecutionError("count", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		recs, err := e.store.Fetch(gctx, q, sort, def.Skip(), def.Limit)
		if errors.Is(err, domain.ErrInvalidParameter) {
			return err //nolint:wrapcheck // store rejected the page window, a client error
		}
		if err != nil {
			return domain.NewExecutionError("fetch", err)
		}
		list = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		return domfilter.Result{}, err //nolint:wrapcheck // ExecutionError or ParameterError
	}

	if distances != nil {
		for i := range list {
			if d, ok := distances[list[i].ID]; ok {
				list[i] = list[i].WithDistance(d)
			}
		}
	}

	return domfilter.NewResult(total, def.Page, def.Limit, list), nil
}

// sortOrder returns the explicit sorting, or distance order for proximity
// queries, or most-recently-modified first. An id tiebreaker is always
// appended so pages are stable.
func sortOrder(explicit []domfilter.SortField, proximity bool) []domfilter.SortField {
	out := make([]domfilter.SortField, 0, len(explicit)+2)
	hasID := false
	for _, s := range explicit {
		if s.Field == domfilter.FieldDistance && !proximity {
			continue
		}
		if s.Field == domfilter.FieldID {
			hasID = true
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		if proximity {
			out = append(out, domfilter.SortField{Field: domfilter.FieldDistance, Direction: domfilter.Asc})
		} else {
			out = append(out, domfilter.SortField{Field: domfilter.FieldModified, Direction: domfilter.Desc})
		}
	}
	if !hasID {
		out = append(out, domfilter.SortField{Field: domfilter.FieldID, Direction: domfilter.Asc})
	}
	return out
}
