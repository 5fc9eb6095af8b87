package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/morezero/action-gateway/pkg/cache"
)

const testPrefix = "lookup:lookup_test"

type query struct {
	Text   string
	Region string
}

type answer struct {
	Value string `json:"value"`
	Call  int64  `json:"call"`
}

func newCounting(c cache.Cache, fail bool) (*Lookup[query, answer], *int64) {
	var calls int64
	l := New(Config[query, answer]{
		Namespace: "test",
		Cache:     c,
		Key: func(q query) ([]string, error) {
			if _, err := RequireText(q.Text); err != nil {
				return nil, err
			}
			return []string{q.Text, q.Region}, nil
		},
		Fetch: func(_ context.Context, q query) (answer, error) {
			n := atomic.AddInt64(&calls, 1)
			if fail {
				return answer{}, errors.New("upstream said no")
			}
			return answer{Value: Normalize(q.Text), Call: n}, nil
		},
		TTL: func(query) time.Duration { return time.Minute },
	})
	return l, &calls
}

func TestLookup_CachesNormalizedQueries(t *testing.T) {
	l, calls := newCounting(cache.NewMemory(), false)
	ctx := context.Background()

	first, out1, err := l.Get(ctx, query{Text: "  123 Main St  ", Region: "US"})
	if err != nil {
		t.Fatalf("%s - first Get: %v", testPrefix, err)
	}
	second, out2, err := l.Get(ctx, query{Text: "123 main st", Region: "us"})
	if err != nil {
		t.Fatalf("%s - second Get: %v", testPrefix, err)
	}

	if out1.Key != out2.Key || out1.Key != "test:123 main st:us" {
		t.Errorf("%s - keys = %q / %q", testPrefix, out1.Key, out2.Key)
	}
	if out1.Cached || !out2.Cached {
		t.Errorf("%s - cached flags = %v / %v", testPrefix, out1.Cached, out2.Cached)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("%s - results differ: %s vs %s", testPrefix, a, b)
	}
	if *calls != 1 {
		t.Errorf("%s - external calls = %d, want 1", testPrefix, *calls)
	}
}

func TestLookup_RejectsEmptyQuery(t *testing.T) {
	l, calls := newCounting(cache.NewMemory(), false)
	for _, text := range []string{"", "   ", "\t\n"} {
		if _, _, err := l.Get(context.Background(), query{Text: text}); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("%s - Get(%q) err = %v", testPrefix, text, err)
		}
	}
	if *calls != 0 {
		t.Errorf("%s - fetch called for invalid query", testPrefix)
	}
}

func TestLookup_FailuresNotCached(t *testing.T) {
	mem := cache.NewMemory()
	l, calls := newCounting(mem, true)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, _, err := l.Get(ctx, query{Text: "x"}); err == nil {
			t.Fatalf("%s - expected error", testPrefix)
		}
	}
	if *calls != 2 || mem.Len() != 0 {
		t.Errorf("%s - calls=%d entries=%d, failures must not be cached", testPrefix, *calls, mem.Len())
	}
}

func TestLookup_CorruptEntryRefetches(t *testing.T) {
	mem := cache.NewMemory()
	l, calls := newCounting(mem, false)
	ctx := context.Background()
	_ = mem.Put(ctx, BuildKey("test", "abc", ""), []byte("{{{"), time.Minute)

	got, out, err := l.Get(ctx, query{Text: "abc"})
	if err != nil || out.Cached || got.Value != "abc" || *calls != 1 {
		t.Errorf("%s - corrupt entry: got=%+v out=%+v err=%v calls=%d", testPrefix, got, out, err, *calls)
	}
}

func TestLookup_ExpiryRefetches(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	l, calls := newCounting(cache.NewMemoryWithClock(clock), false)
	ctx := context.Background()

	_, _, _ = l.Get(ctx, query{Text: "abc"})
	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	got, out, _ := l.Get(ctx, query{Text: "abc"})
	if out.Cached || got.Call != 2 || *calls != 2 {
		t.Errorf("%s - expired entry served: out=%+v got=%+v", testPrefix, out, got)
	}
}

func TestLookup_ConcurrentMissesShareFetch(t *testing.T) {
	mem := cache.NewMemory()
	var calls int64
	release := make(chan struct{})
	l := New(Config[query, answer]{
		Namespace: "test",
		Cache:     mem,
		Key:       func(q query) ([]string, error) { return []string{q.Text}, nil },
		Fetch: func(context.Context, query) (answer, error) {
			atomic.AddInt64(&calls, 1)
			<-release
			return answer{Value: "v"}, nil
		},
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = l.Get(context.Background(), query{Text: "same"})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if calls < 1 || calls > 8 {
		t.Errorf("%s - calls = %d", testPrefix, calls)
	}
	if _, ok, _ := mem.Get(context.Background(), "test:same"); !ok {
		t.Errorf("%s - result not cached", testPrefix)
	}
}

func TestLookup_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	mem := cache.NewMemory()
	started := make(chan struct{})
	release := make(chan struct{})
	l := New(Config[query, answer]{
		Namespace: "test",
		Cache:     mem,
		Key:       func(q query) ([]string, error) { return []string{q.Text}, nil },
		Fetch: func(ctx context.Context, _ query) (answer, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return answer{}, err
			}
			return answer{Value: "v"}, nil
		},
	})

	firstCtx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 2)
	go func() {
		_, _, err := l.Get(firstCtx, query{Text: "same"})
		errs <- err
	}()
	<-started
	cancel()
	go func() {
		_, _, err := l.Get(context.Background(), query{Text: "same"})
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Errorf("%s - caller %d failed after first caller cancelled: %v", testPrefix, i, err)
		}
	}
	if _, ok, _ := mem.Get(context.Background(), "test:same"); !ok {
		t.Errorf("%s - result not cached", testPrefix)
	}
}

func TestBuildKey_NormalizationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("case and surrounding whitespace do not change the key", prop.ForAll(
		func(s string, pad int) bool {
			padding := ""
			for i := 0; i < pad; i++ {
				padding += " "
			}
			variant := padding + strings.ToUpper(s) + padding + "\t"
			return BuildKey("geocode", s) == BuildKey("geocode", variant)
		},
		gen.AlphaString(),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}
