//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/MrEthical07/goVerify/lockout"
	"github.com/MrEthical07/goVerify/session"
	"github.com/MrEthical07/goVerify/signing"
)

// TestRedisCompat_LockoutRoundTrip validates record persistence across backends.
func TestRedisCompat_LockoutRoundTrip(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			store := session.NewStore(rdb, "vl-it", time.Hour)
			policy := lockout.DefaultPolicy()
			ctx := context.Background()
			now := time.Unix(1_700_000_000, 0)

			for i := 0; i < 4; i++ {
				_, err := store.UpdateLockout(ctx, "acct-rt", func(rec lockout.Record, exists bool) (lockout.Record, error) {
					return policy.Fail(rec, exists, now), nil
				})
				if err != nil {
					t.Fatalf("update %d: %v", i, err)
				}
			}

			rec, exists, err := store.GetLockout(ctx, "acct-rt")
			if err != nil || !exists {
				t.Fatalf("get: exists=%v err=%v", exists, err)
			}
			if rec.Failures != 4 || !rec.LockedAt.Equal(now) {
				t.Fatalf("unexpected record %+v", rec)
			}
			if d := policy.Evaluate(rec, true, now.Add(time.Minute)); d.State != lockout.Locked {
				t.Fatalf("expected locked, got %s", d.State)
			}
		})
	}
}

// TestRedisCompat_DeleteIdempotent validates that deleting twice does not error.
func TestRedisCompat_DeleteIdempotent(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			store := session.NewStore(rdb, "vl-it", 0)
			ctx := context.Background()

			_, err := store.UpdateLockout(ctx, "acct-del", func(rec lockout.Record, exists bool) (lockout.Record, error) {
				rec.Failures = 1
				return rec, nil
			})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if err := store.DeleteLockout(ctx, "acct-del"); err != nil {
				t.Fatalf("first delete: %v", err)
			}
			if err := store.DeleteLockout(ctx, "acct-del"); err != nil {
				t.Fatalf("second delete: %v", err)
			}
			if _, exists, err := store.GetLockout(ctx, "acct-del"); err != nil || exists {
				t.Fatalf("expected record gone, exists=%v err=%v", exists, err)
			}
		})
	}
}

// TestRedisCompat_ConcurrentFailures validates that no failure is lost under
// concurrent writers.
func TestRedisCompat_ConcurrentFailures(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			store := session.NewStore(rdb, "vl-it", time.Hour).WithMaxRetries(1000)
			ctx := context.Background()

			const workers, perWorker = 8, 5
			var wg sync.WaitGroup
			errs := make(chan error, workers*perWorker)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						_, err := store.UpdateLockout(ctx, "acct-race", func(rec lockout.Record, _ bool) (lockout.Record, error) {
							rec.Failures++
							return rec, nil
						})
						if err != nil {
							errs <- err
						}
					}
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				t.Fatalf("update: %v", err)
			}

			rec, _, err := store.GetLockout(ctx, "acct-race")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if rec.Failures != workers*perWorker {
				t.Fatalf("expected %d failures, got %d", workers*perWorker, rec.Failures)
			}
		})
	}
}

// TestRedisCompat_EngineLockout validates the engine guard end to end.
func TestRedisCompat_EngineLockout(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			engine := newIntegrationEngine(t, rdb)
			ctx := context.Background()

			bad := signing.Request{Method: "POST", Path: "/v1/a", Timestamp: time.Now().Unix()}
			engine.SignRequest(&bad)
			bad.Path = "/v1/b"
			for i := 0; i < 4; i++ {
				_ = engine.VerifySignedRequest(ctx, "acct-eng", bad)
			}

			good := signing.Request{Method: "POST", Path: "/v1/a", Timestamp: time.Now().Unix()}
			engine.SignRequest(&good)
			if err := engine.VerifySignedRequest(ctx, "acct-eng", good); !errors.Is(err, goVerify.ErrAccountLocked) {
				t.Fatalf("expected ErrAccountLocked, got %v", err)
			}
			if err := engine.Unlock(ctx, "acct-eng"); err != nil {
				t.Fatalf("unlock: %v", err)
			}
			if err := engine.VerifySignedRequest(ctx, "acct-eng", good); err != nil {
				t.Fatalf("expected accepted after unlock, got %v", err)
			}
		})
	}
}

// TestRedisCompat_AccessCodeSingleUse validates atomic redemption across backends.
func TestRedisCompat_AccessCodeSingleUse(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			engine := newIntegrationEngine(t, rdb)
			ctx := context.Background()

			issued, err := engine.IssueAccessCode(ctx, "acct-code", goVerify.ActionLogin, time.Minute)
			if err != nil {
				t.Fatalf("issue: %v", err)
			}

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				success int
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := engine.RedeemAccessCode(ctx, issued.Code, goVerify.ActionLogin); err == nil {
						mu.Lock()
						success++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			if success != 1 {
				t.Fatalf("expected exactly one redemption, got %d", success)
			}
		})
	}
}
