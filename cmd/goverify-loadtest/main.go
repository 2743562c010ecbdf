package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/MrEthical07/goVerify/lockout"
	"github.com/MrEthical07/goVerify/session"
	"github.com/MrEthical07/goVerify/sqlstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		accounts    = flag.Int("accounts", 64, "number of accounts attacked")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (fail + check)")
		backend     = flag.String("store", "redis", "lockout store: redis or sqlite")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		dsn         = flag.String("dsn", "file:loadtest?mode=memory&cache=shared", "sqlite dsn when -store=sqlite")
		prefix      = flag.String("prefix", "vl", "lockout key prefix")
		retries     = flag.Int("max-retries", 1000, "compare-and-swap retry budget")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	store, cleanup, err := openStore(ctx, *backend, *redisAddr, *dsn, *prefix, *retries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ids := make([]string, *accounts)
	for i := range ids {
		ids[i] = fmt.Sprintf("acct-%d", i)
		if err := store.DeleteLockout(ctx, ids[i]); err != nil {
			fmt.Fprintf(os.Stderr, "reset failed: %v\n", err)
			os.Exit(1)
		}
	}

	// A limit above ops keeps every failure counted.
	policy := lockout.Policy{MaxFailures: *ops + 1, LockTime: time.Hour}

	applied := make([]int64, len(ids))
	failStats := runFailPhase(ctx, store, policy, ids, applied, *ops, *concurrency)
	checkStats := runCheckPhase(ctx, store, policy, ids, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("fail", failStats)
	printStats("check", checkStats)

	lost := 0
	for i, id := range ids {
		rec, _, err := store.GetLockout(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read back failed: %v\n", err)
			os.Exit(1)
		}
		if int64(rec.Failures) != applied[i] {
			lost++
			fmt.Printf("%s: stored %d failures, applied %d\n", id, rec.Failures, applied[i])
		}
	}
	if lost > 0 {
		fmt.Printf("LOST UPDATES on %d accounts\n", lost)
		os.Exit(1)
	}
	fmt.Printf("all %d accounts consistent\n", len(ids))
}

func openStore(ctx context.Context, backend, redisAddr, dsn, prefix string, retries int) (goVerify.LockoutStore, func(), error) {
	switch backend {
	case "redis":
		addr := redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}

		var (
			cleanup func()
			client  redis.UniversalClient
		)
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				return nil, nil, fmt.Errorf("start miniredis: %w", err)
			}
			client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
			cleanup = func() {
				_ = client.Close()
				mr.Close()
			}
			fmt.Printf("using miniredis at %s\n", mr.Addr())
		} else {
			client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
			cleanup = func() { _ = client.Close() }
			fmt.Printf("using redis at %s\n", addr)
		}
		return session.NewStore(client, prefix, time.Hour).WithMaxRetries(retries), cleanup, nil

	case "sqlite":
		s, err := sqlstore.Open(ctx, sqlstore.SQLite, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		fmt.Printf("using sqlite at %s\n", dsn)
		return s.WithMaxRetries(retries), func() { _ = s.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", backend)
	}
}

func runFailPhase(ctx context.Context, store goVerify.LockoutStore, policy lockout.Policy, ids []string, applied []int64, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(ids))
				t0 := time.Now()
				_, err := store.UpdateLockout(ctx, ids[idx], func(rec lockout.Record, exists bool) (lockout.Record, error) {
					return policy.Fail(rec, exists, t0), nil
				})
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					atomic.AddInt64(&applied[idx], 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runCheckPhase(ctx context.Context, store goVerify.LockoutStore, policy lockout.Policy, ids []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(ids))
				t0 := time.Now()
				rec, exists, err := store.GetLockout(ctx, ids[idx])
				if err == nil {
					_ = policy.Evaluate(rec, exists, t0)
				}
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
