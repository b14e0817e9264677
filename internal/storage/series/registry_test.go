package series

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xtxerr/roundrobin/internal/errors"
	"github.com/xtxerr/roundrobin/internal/logging"
	"github.com/xtxerr/roundrobin/internal/storage/config"
	"github.com/xtxerr/roundrobin/internal/storage/reduce"
	"github.com/xtxerr/roundrobin/internal/storage/rrd"
	"github.com/xtxerr/roundrobin/internal/storage/types"
	testutil "github.com/xtxerr/roundrobin/internal/testing"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Defaults = config.Layout{
		Levels:             3,
		DataPoints:         3,
		ReducingFactor:     3,
		Reducer:            "average",
		PercentileAccuracy: 0.01,
	}
	cfg.Registry.Shards = 4
	cfg.Registry.Workers = 2
	return cfg
}

func newTestRegistry(t *testing.T, cfg *config.Config) *Registry {
	t.Helper()
	r, err := NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

// referenceStore builds a standalone store with the layout the registry
// assigns to name.
func referenceStore(t *testing.T, cfg *config.Config, name string) *rrd.Store[float64] {
	t.Helper()
	layout := cfg.LayoutFor(name)
	reducer, err := reduce.ByName(layout.Reducer, layout.PercentileAccuracy)
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	st, err := rrd.New[float64](layout.Levels, layout.DataPoints, layout.ReducingFactor, reducer)
	if err != nil {
		t.Fatalf("rrd.New: %v", err)
	}
	return st
}

func TestRegistry_PushAndRead(t *testing.T) {
	cfg := testConfig()
	r := newTestRegistry(t, cfg)
	ref := referenceStore(t, cfg, "router-01:cpu")

	for i := 0; i < 81; i++ {
		if err := r.Push("router-01:cpu", float64(i)); err != nil {
			t.Fatalf("Push: %v", err)
		}
		ref.Push(float64(i))
	}

	samples, err := r.Samples("router-01:cpu")
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if diff := cmp.Diff(ref.Samples(), samples); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}

	points, err := r.DataPoints("router-01:cpu")
	if err != nil {
		t.Fatalf("DataPoints: %v", err)
	}
	if diff := cmp.Diff(ref.DataPoints(), points); diff != "" {
		t.Errorf("data points mismatch (-want +got):\n%s", diff)
	}

	if v, err := r.Sample("router-01:cpu", 0); err != nil || v != 80 {
		t.Errorf("expected Sample(0)=80, got %v (%v)", v, err)
	}
	if v, err := r.DataPoint("router-01:cpu", 38); err != nil || v != 4 {
		t.Errorf("expected DataPoint(38)=4, got %v (%v)", v, err)
	}
	if _, err := r.Sample("router-01:cpu", 81); !errors.IsOutOfRange(err) {
		t.Errorf("expected out-of-range, got %v", err)
	}

	levels, err := r.Levels("router-01:cpu")
	if err != nil {
		t.Fatalf("Levels: %v", err)
	}
	if diff := cmp.Diff(ref.Levels(), levels); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}

	dump, err := r.Dump("router-01:cpu")
	if err != nil || dump != ref.String() {
		t.Errorf("expected dump %q, got %q (%v)", ref.String(), dump, err)
	}
}

func TestRegistry_LayoutOverride(t *testing.T) {
	cfg := testConfig()
	cfg.Series = []config.SeriesLayout{
		{Match: "*:errors", Layout: config.Layout{Levels: 1, DataPoints: 6, Reducer: "sum"}},
	}
	r := newTestRegistry(t, cfg)

	for i := 0; i < 10; i++ {
		if err := r.Push("switch-02:errors", float64(i)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	levels, err := r.Levels("switch-02:errors")
	if err != nil {
		t.Fatalf("Levels: %v", err)
	}
	if len(levels) != 1 || levels[0].DataPoints != 6 {
		t.Errorf("expected one level of 6 data points, got %+v", levels)
	}

	samples, _ := r.Samples("switch-02:errors")
	if diff := cmp.Diff([]float64{9, 8, 7, 6, 5, 4}, samples); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_NotFound(t *testing.T) {
	r := newTestRegistry(t, testConfig())

	if _, err := r.Sample("missing", 0); !errors.IsNotFound(err) {
		t.Errorf("Sample: expected not found, got %v", err)
	}
	if _, err := r.DataPoint("missing", 0); !errors.IsNotFound(err) {
		t.Errorf("DataPoint: expected not found, got %v", err)
	}
	if _, err := r.Samples("missing"); !errors.IsNotFound(err) {
		t.Errorf("Samples: expected not found, got %v", err)
	}
	if err := r.Remove("missing"); !errors.IsNotFound(err) {
		t.Errorf("Remove: expected not found, got %v", err)
	}
}

func TestRegistry_InvalidName(t *testing.T) {
	r := newTestRegistry(t, testConfig())

	for _, name := range []string{"", ".hidden", "a/b", "with space"} {
		if err := r.Push(name, 1); !errors.IsValidation(err) {
			t.Errorf("Push(%q): expected validation error, got %v", name, err)
		}
	}
	if len(r.Names()) != 0 {
		t.Errorf("expected no series, got %v", r.Names())
	}
}

func TestRegistry_MaxSeries(t *testing.T) {
	cfg := testConfig()
	cfg.Registry.MaxSeries = 2
	r := newTestRegistry(t, cfg)

	for _, name := range []string{"a", "b"} {
		if err := r.Push(name, 1); err != nil {
			t.Fatalf("Push(%q): %v", name, err)
		}
	}
	if err := r.Push("c", 1); !errors.IsLimit(err) {
		t.Fatalf("expected limit error, got %v", err)
	}

	// Existing series keep accepting values.
	if err := r.Push("a", 2); err != nil {
		t.Errorf("Push to existing series: %v", err)
	}

	if err := r.Remove("b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := r.Push("c", 1); err != nil {
		t.Errorf("expected room after remove, got %v", err)
	}

	if diff := cmp.Diff([]string{"a", "c"}, r.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	want := Stats{Series: 2, Pushes: 4, Created: 3, Removed: 1}
	if diff := cmp.Diff(want, r.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_PushSampleSkipsInvalid(t *testing.T) {
	r := newTestRegistry(t, testConfig())

	if err := r.PushSample(types.Sample{Series: "cpu", Value: 1, Valid: false}); err != nil {
		t.Fatalf("PushSample: %v", err)
	}
	if err := r.PushSample(types.Sample{Series: "cpu", Value: 2, Valid: true}); err != nil {
		t.Fatalf("PushSample: %v", err)
	}

	if v, _ := r.Sample("cpu", 0); v != 2 {
		t.Errorf("expected Sample(0)=2, got %v", v)
	}
	stats := r.Stats()
	if stats.Skipped != 1 || stats.Pushes != 1 {
		t.Errorf("expected skipped=1 pushes=1, got %+v", stats)
	}
}

func TestRegistry_PushBatch(t *testing.T) {
	cfg := testConfig()
	batched := newTestRegistry(t, cfg)
	sequential := newTestRegistry(t, cfg)

	names := []string{"r1:cpu", "r1:mem", "r2:cpu", "r2:mem", "r3:cpu"}
	batch := types.NewSampleBatch(500)
	for i := 0; i < 100; i++ {
		for j, name := range names {
			s := types.Sample{Series: name, Value: float64(i*10 + j), Valid: i%17 != 0}
			batch.Add(s)
			if err := sequential.PushSample(s); err != nil {
				t.Fatalf("PushSample: %v", err)
			}
		}
	}

	if err := batched.PushBatch(context.Background(), batch); err != nil {
		t.Fatalf("PushBatch: %v", err)
	}

	for _, name := range names {
		want, _ := sequential.Samples(name)
		got, err := batched.Samples(name)
		if err != nil {
			t.Fatalf("Samples(%q): %v", name, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s: samples mismatch (-want +got):\n%s", name, diff)
		}
	}

	if diff := cmp.Diff(sequential.Stats(), batched.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_PushBatchCancelled(t *testing.T) {
	r := newTestRegistry(t, testConfig())

	batch := types.NewSampleBatch(2)
	batch.Add(types.Sample{Series: "cpu", Value: 1, Valid: true})
	batch.Add(types.Sample{Series: "mem", Value: 1, Valid: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.PushBatch(ctx, batch); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if r.Stats().Pushes != 0 {
		t.Errorf("expected no pushes, got %d", r.Stats().Pushes)
	}
}

func TestRegistry_ConcurrentPush(t *testing.T) {
	r := newTestRegistry(t, testConfig())

	const writers = 8
	const perWriter = 200

	gt := testutil.NewGoroutineTest(t)
	for w := 0; w < writers; w++ {
		name := fmt.Sprintf("host-%d:cpu", w)
		gt.Go(func() error {
			for i := 0; i < perWriter; i++ {
				if err := testutil.AssertNoError(r.Push(name, float64(i)), name); err != nil {
					return err
				}
				if err := testutil.AssertNoError(r.Push("shared", float64(i)), "shared"); err != nil {
					return err
				}
			}
			v, err := r.Sample(name, 0)
			if err := testutil.AssertNoError(err, name); err != nil {
				return err
			}
			return testutil.AssertEqual(v, float64(perWriter-1), name)
		})
	}
	gt.Wait()

	stats := r.Stats()
	if stats.Pushes != writers*perWriter*2 {
		t.Errorf("expected %d pushes, got %d", writers*perWriter*2, stats.Pushes)
	}
	if stats.Created != writers+1 || stats.Series != writers+1 {
		t.Errorf("expected %d series created, got %+v", writers+1, stats)
	}
}

func TestNewRegistry_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Registry.Shards = 0
	if _, err := NewRegistry(cfg); !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}

	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry(nil): %v", err)
	}
	if r.Config().Registry.Shards != config.DefaultConfig().Registry.Shards {
		t.Errorf("expected default shards, got %d", r.Config().Registry.Shards)
	}
}

func TestRegistry_LogsSeriesContext(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(&buf, slog.LevelDebug, false)
	t.Cleanup(func() { logging.Init(os.Stderr, slog.LevelInfo, false) })

	r := newTestRegistry(t, testConfig())

	batch := types.NewSampleBatch(1)
	batch.Add(types.Sample{Series: "router-01:cpu", Value: 1, Valid: true})
	if err := r.PushBatch(context.Background(), batch); err != nil {
		t.Fatalf("PushBatch: %v", err)
	}
	if err := r.Remove("router-01:cpu"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	var created, removed string
	for _, line := range strings.Split(buf.String(), "\n") {
		switch {
		case strings.Contains(line, "series created"):
			created = line
		case strings.Contains(line, "series removed"):
			removed = line
		}
	}

	for _, want := range []string{"component=registry", "series=router-01:cpu", "batch_id=1", "levels=3"} {
		if !strings.Contains(created, want) {
			t.Errorf("expected %q in creation log %q", want, created)
		}
	}
	for _, want := range []string{"component=registry", "series=router-01:cpu"} {
		if !strings.Contains(removed, want) {
			t.Errorf("expected %q in removal log %q", want, removed)
		}
	}
}
