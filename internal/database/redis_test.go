package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// newTestRedis starts an in-process Redis server and opens a store on it.
func newTestRedis(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0", opts...)
	if err != nil {
		t.Fatalf("failed to open redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	t.Run("insert if absent", func(t *testing.T) {
		t.Parallel()

		store, mr := newTestRedis(t)
		ctx := context.Background()
		url := "http://example.com/"

		inserted, err := store.Store(ctx, testPage(url, time.Now()))
		if err != nil || !inserted {
			t.Fatalf("expected insert, got %v, %v", inserted, err)
		}
		inserted, err = store.Store(ctx, testPage(url, time.Now()))
		if err != nil || inserted {
			t.Fatalf("expected duplicate, got %v, %v", inserted, err)
		}

		if !mr.Exists(DefaultRedisPrefix + url) {
			t.Error("expected page under the default prefix")
		}
		if ttl := mr.TTL(DefaultRedisPrefix + url); ttl != 0 {
			t.Errorf("expected no expiry by default, got %v", ttl)
		}
	})

	t.Run("concurrent stores insert once", func(t *testing.T) {
		t.Parallel()

		store, _ := newTestRedis(t)
		page := testPage("http://example.com/race", time.Now())

		var inserted atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.Store(context.Background(), page)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if ok {
					inserted.Add(1)
				}
			}()
		}
		wg.Wait()

		if inserted.Load() != 1 {
			t.Errorf("expected exactly one insert, got %d", inserted.Load())
		}
	})

	t.Run("round trip through GetPage", func(t *testing.T) {
		t.Parallel()

		store, _ := newTestRedis(t)
		ctx := context.Background()
		fetchedAt := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
		page := testPage("http://example.com/doc", fetchedAt)

		if _, err := store.Store(ctx, page); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := store.GetPage(ctx, page.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("expected stored page")
		}
		if got.URL != page.URL || string(got.HTML) != string(page.HTML) {
			t.Errorf("page content differs: %+v", got)
		}
		if got.Hash != page.Hash || got.Hash == "" {
			t.Errorf("expected hash %q, got %q", page.Hash, got.Hash)
		}
		if got.StatusCode != 200 || got.ContentType != page.ContentType {
			t.Errorf("unexpected metadata %d %q", got.StatusCode, got.ContentType)
		}
		if !got.FetchedAt.Equal(fetchedAt) {
			t.Errorf("expected fetched at %v, got %v", fetchedAt, got.FetchedAt)
		}
	})

	t.Run("missing page", func(t *testing.T) {
		t.Parallel()

		store, _ := newTestRedis(t)
		got, err := store.GetPage(context.Background(), "http://example.com/none")
		if err != nil || got != nil {
			t.Errorf("expected nil, nil, got %v, %v", got, err)
		}
	})

	t.Run("ttl expires pages", func(t *testing.T) {
		t.Parallel()

		store, mr := newTestRedis(t, WithRedisTTL(time.Hour), WithRedisPrefix("crawl:"))
		ctx := context.Background()
		url := "http://example.com/ttl"

		if _, err := store.Store(ctx, testPage(url, time.Now())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ttl := mr.TTL("crawl:" + url); ttl != time.Hour {
			t.Errorf("expected 1h TTL, got %v", ttl)
		}

		mr.FastForward(time.Hour)

		got, err := store.GetPage(ctx, url)
		if err != nil || got != nil {
			t.Fatalf("expected expired page to be gone, got %v, %v", got, err)
		}
		inserted, err := store.Store(ctx, testPage(url, time.Now()))
		if err != nil || !inserted {
			t.Errorf("expected expired URL to be stored again, got %v, %v", inserted, err)
		}
	})

	t.Run("server error is a store error", func(t *testing.T) {
		t.Parallel()

		store, mr := newTestRedis(t)
		mr.SetError("ERR disk full")

		_, err := store.Store(context.Background(), testPage("http://example.com/", time.Now()))
		var storeErr *StoreError
		if !errors.As(err, &storeErr) {
			t.Fatalf("expected StoreError, got %v", err)
		}
		if storeErr.URL != "http://example.com/" {
			t.Errorf("expected URL in error, got %q", storeErr.URL)
		}

		if _, err := store.GetPage(context.Background(), "http://example.com/"); !errors.As(err, &storeErr) {
			t.Errorf("expected StoreError from GetPage, got %v", err)
		}
	})

	t.Run("corrupt record is a store error", func(t *testing.T) {
		t.Parallel()

		store, mr := newTestRedis(t)
		url := "http://example.com/corrupt"
		if err := mr.Set(DefaultRedisPrefix+url, "not json"); err != nil {
			t.Fatalf("failed to seed key: %v", err)
		}

		var storeErr *StoreError
		if _, err := store.GetPage(context.Background(), url); !errors.As(err, &storeErr) {
			t.Errorf("expected StoreError, got %v", err)
		}
	})

	t.Run("nil page", func(t *testing.T) {
		t.Parallel()

		store, _ := newTestRedis(t)
		if _, err := store.Store(context.Background(), nil); !errors.Is(err, ErrNilPage) {
			t.Errorf("expected ErrNilPage, got %v", err)
		}
	})
}
