// Package series manages many named round-robin stores.
//
// A Registry shards its stores by an xxhash of the series name. Each shard
// owns a mutex guarding its map and every store in it, so pushes to series in
// different shards proceed in parallel. Stores are created on first push with
// the layout the configuration assigns to the name.
package series

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/xtxerr/roundrobin/internal/errors"
	"github.com/xtxerr/roundrobin/internal/logging"
	"github.com/xtxerr/roundrobin/internal/storage/config"
	"github.com/xtxerr/roundrobin/internal/storage/reduce"
	"github.com/xtxerr/roundrobin/internal/storage/rrd"
	"github.com/xtxerr/roundrobin/internal/storage/types"
	"github.com/xtxerr/roundrobin/internal/validation"
)

// Registry holds one float64 store per series name.
type Registry struct {
	cfg    *config.Config
	shards []*shard
	create singleflight.Group
	logger *slog.Logger

	series  atomic.Int64
	pushes  atomic.Uint64
	skipped atomic.Uint64
	created atomic.Uint64
	removed atomic.Uint64
	batches atomic.Uint64
}

type shard struct {
	mu     sync.Mutex
	stores map[string]*rrd.Store[float64]
}

// Stats holds registry counters.
type Stats struct {
	Series  int64
	Pushes  uint64
	Skipped uint64
	Created uint64
	Removed uint64
}

// NewRegistry creates a registry. A nil cfg uses config.DefaultConfig.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "registry config")
	}

	r := &Registry{
		cfg:    cfg,
		shards: make([]*shard, cfg.Registry.Shards),
		logger: logging.Component("registry"),
	}
	for i := range r.shards {
		r.shards[i] = &shard{stores: make(map[string]*rrd.Store[float64])}
	}
	return r, nil
}

func (r *Registry) shardIndex(name string) int {
	return int(xxhash.Sum64String(name) % uint64(len(r.shards)))
}

func (r *Registry) shardFor(name string) *shard {
	return r.shards[r.shardIndex(name)]
}

// Push appends value to the named series, creating it if needed.
func (r *Registry) Push(name string, value float64) error {
	return r.pushValues(context.Background(), name, []float64{value})
}

// PushSample pushes a sample. Invalid samples are counted and skipped.
func (r *Registry) PushSample(s types.Sample) error {
	if !s.Valid {
		r.skipped.Add(1)
		return nil
	}
	return r.Push(s.Series, s.Value)
}

// PushBatch pushes every valid sample of batch, keeping push order within
// each series. Shards are processed concurrently by at most
// Registry.Workers goroutines. Cancelling ctx stops the batch between
// series; values already pushed stay pushed.
func (r *Registry) PushBatch(ctx context.Context, batch *types.SampleBatch) error {
	values, skipped := batch.BySeries()
	r.skipped.Add(uint64(skipped))

	byShard := make(map[int][]string)
	for name := range values {
		idx := r.shardIndex(name)
		byShard[idx] = append(byShard[idx], name)
	}

	ctx = logging.ContextWithBatchID(ctx, r.batches.Add(1))
	log := logging.WithContext(ctx, r.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Registry.Workers)

	for _, names := range byShard {
		sort.Strings(names)
		g.Go(func() error {
			for _, name := range names {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := r.pushValues(ctx, name, values[name]); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn("batch aborted", "error", err)
		return err
	}

	log.Debug("batch pushed", "samples", batch.Len(), "series", len(values), "skipped", skipped)
	return nil
}

func (r *Registry) pushValues(ctx context.Context, name string, values []float64) error {
	sh := r.shardFor(name)
	for {
		sh.mu.Lock()
		if st, ok := sh.stores[name]; ok {
			for _, v := range values {
				st.Push(v)
			}
			sh.mu.Unlock()
			r.pushes.Add(uint64(len(values)))
			return nil
		}
		sh.mu.Unlock()

		// A concurrent Remove may drop the new store before we lock again;
		// the loop creates it anew in that case.
		if err := r.ensure(ctx, name); err != nil {
			return err
		}
	}
}

// ensure creates the named store if it does not exist. Concurrent callers
// for the same name share one creation.
func (r *Registry) ensure(ctx context.Context, name string) error {
	_, err, _ := r.create.Do(name, func() (any, error) {
		sh := r.shardFor(name)
		sh.mu.Lock()
		_, exists := sh.stores[name]
		sh.mu.Unlock()
		if exists {
			return nil, nil
		}

		if err := validation.ValidateSeriesName(name); err != nil {
			return nil, err
		}
		if !r.reserve() {
			return nil, errors.Wrapf(errors.ErrSeriesLimit, "series %q: limit %d", name, r.cfg.Registry.MaxSeries)
		}

		st, layout, err := r.build(name)
		if err != nil {
			r.series.Add(-1)
			return nil, err
		}

		sh.mu.Lock()
		sh.stores[name] = st
		sh.mu.Unlock()

		r.created.Add(1)
		log := logging.WithContext(logging.ContextWithSeries(ctx, name), r.logger)
		log.Debug("series created",
			"levels", layout.Levels,
			"data_points", layout.DataPoints,
			"reducing_factor", layout.ReducingFactor,
			"reducer", layout.Reducer)
		return nil, nil
	})
	return err
}

// reserve claims one slot of the MaxSeries budget.
func (r *Registry) reserve() bool {
	limit := int64(r.cfg.Registry.MaxSeries)
	for {
		n := r.series.Load()
		if limit > 0 && n >= limit {
			return false
		}
		if r.series.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (r *Registry) build(name string) (*rrd.Store[float64], config.Layout, error) {
	layout := r.cfg.LayoutFor(name)

	reducer, err := reduce.ByName(layout.Reducer, layout.PercentileAccuracy)
	if err != nil {
		return nil, layout, errors.Wrapf(err, "series %q", name)
	}

	st, err := rrd.New[float64](layout.Levels, layout.DataPoints, layout.ReducingFactor, reducer)
	if err != nil {
		return nil, layout, errors.Wrapf(err, "series %q", name)
	}
	return st, layout, nil
}

// view runs fn on the named store while holding its shard lock.
func (r *Registry) view(name string, fn func(st *rrd.Store[float64]) error) error {
	sh := r.shardFor(name)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.stores[name]
	if !ok {
		return errors.NewNotFound(name)
	}
	return fn(st)
}

// Sample returns Sample(ago) of the named series.
func (r *Registry) Sample(name string, ago int) (float64, error) {
	var v float64
	err := r.view(name, func(st *rrd.Store[float64]) (err error) {
		v, err = st.Sample(ago)
		return err
	})
	return v, err
}

// DataPoint returns DataPoint(index) of the named series.
func (r *Registry) DataPoint(name string, index int) (float64, error) {
	var v float64
	err := r.view(name, func(st *rrd.Store[float64]) (err error) {
		v, err = st.DataPoint(index)
		return err
	})
	return v, err
}

// Samples returns the whole sample axis of the named series.
func (r *Registry) Samples(name string) ([]float64, error) {
	var out []float64
	err := r.view(name, func(st *rrd.Store[float64]) error {
		out = st.Samples()
		return nil
	})
	return out, err
}

// DataPoints returns every stored value of the named series.
func (r *Registry) DataPoints(name string) ([]float64, error) {
	var out []float64
	err := r.view(name, func(st *rrd.Store[float64]) error {
		out = st.DataPoints()
		return nil
	})
	return out, err
}

// Levels describes the levels of the named series, finest first.
func (r *Registry) Levels(name string) ([]rrd.LevelInfo, error) {
	var out []rrd.LevelInfo
	err := r.view(name, func(st *rrd.Store[float64]) error {
		out = st.Levels()
		return nil
	})
	return out, err
}

// Dump renders every level of the named series, coarsest first.
func (r *Registry) Dump(name string) (string, error) {
	var out string
	err := r.view(name, func(st *rrd.Store[float64]) error {
		out = st.String()
		return nil
	})
	return out, err
}

// Names returns all series names, sorted.
func (r *Registry) Names() []string {
	var names []string
	for _, sh := range r.shards {
		sh.mu.Lock()
		for name := range sh.stores {
			names = append(names, name)
		}
		sh.mu.Unlock()
	}
	sort.Strings(names)
	return names
}

// Remove drops the named series and frees its MaxSeries slot.
func (r *Registry) Remove(name string) error {
	sh := r.shardFor(name)
	sh.mu.Lock()
	_, ok := sh.stores[name]
	delete(sh.stores, name)
	sh.mu.Unlock()

	if !ok {
		return errors.NewNotFound(name)
	}
	r.series.Add(-1)
	r.removed.Add(1)
	log := logging.WithContext(logging.ContextWithSeries(context.Background(), name), r.logger)
	log.Debug("series removed")
	return nil
}

// Len returns the number of series.
func (r *Registry) Len() int {
	return int(r.series.Load())
}

// Config returns the configuration the registry was built with.
func (r *Registry) Config() *config.Config {
	return r.cfg
}

// Stats returns a snapshot of the registry counters.
func (r *Registry) Stats() Stats {
	return Stats{
		Series:  r.series.Load(),
		Pushes:  r.pushes.Load(),
		Skipped: r.skipped.Load(),
		Created: r.created.Load(),
		Removed: r.removed.Load(),
	}
}
