package lookup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/store/memstore"
	"github.com/cognicore/nli/pkg/nli/store/storetest"
)

type countingLookup struct {
	next  *memstore.Store
	calls atomic.Int32
	ids   atomic.Int32
}

func (c *countingLookup) Lookup(ctx context.Context, ids []string) ([]entity.Entity, error) {
	c.calls.Add(1)
	c.ids.Add(int32(len(ids)))
	return c.next.Lookup(ctx, ids)
}

func newCounting(t *testing.T) *countingLookup {
	s := memstore.New()
	storetest.Load(t, s)
	return &countingLookup{next: s}
}

func TestCachedLookupHitsBackendOnce(t *testing.T) {
	ctx := context.Background()
	backend := newCounting(t)
	c, err := New(backend, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ids := []string{storetest.Obama, storetest.NS + "Nobody", storetest.Berlin}
	for i := 0; i < 3; i++ {
		got, err := c.Lookup(ctx, ids)
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if len(got) != 2 || got[0].ID != storetest.Obama || got[1].ID != storetest.Berlin {
			t.Fatalf("unexpected result %+v", got)
		}
	}
	if n := backend.calls.Load(); n != 1 {
		t.Errorf("expected 1 backend call, got %d", n)
	}
	if c.Len() != 3 {
		t.Errorf("expected unknown id to be cached too, got %d entries", c.Len())
	}
}

func TestCachedLookupFetchesOnlyMisses(t *testing.T) {
	ctx := context.Background()
	backend := newCounting(t)
	c, err := New(backend, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := c.Lookup(ctx, []string{storetest.Obama}); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if _, err := c.Lookup(ctx, []string{storetest.Obama, storetest.Michelle}); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if n := backend.ids.Load(); n != 2 {
		t.Errorf("expected 2 ids fetched in total, got %d", n)
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after purge")
	}
}

func TestCachedLookupConcurrent(t *testing.T) {
	ctx := context.Background()
	c, err := New(newCounting(t), 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ids := []string{storetest.Obama, storetest.Michelle, storetest.Malia, storetest.Sasha}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Lookup(ctx, ids)
			if err != nil {
				t.Errorf("Lookup: %v", err)
				return
			}
			if len(got) != len(ids) {
				t.Errorf("expected %d entities, got %d", len(ids), len(got))
			}
		}()
	}
	wg.Wait()
}
