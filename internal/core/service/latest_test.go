package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
)

func TestLatestIndex_PointerIsRecomputed(t *testing.T) {
	f := newFixture(t)
	li := NewLatestIndex(f.store)
	ctx := context.Background()

	steps := []struct {
		commit int64
		want   int64
	}{
		{7, 7},
		{3, 7},
		{9, 9},
	}
	for _, s := range steps {
		f.commit(t, plainAction(t, s.commit))
		got, err := li.Publish(ctx, f.pair.EditID)
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if got != s.want {
			t.Errorf("after committing %d: Publish() = %d, want %d", s.commit, got, s.want)
		}
	}

	for _, id := range []domain.DocumentID{f.pair.EditID, f.pair.ReadOnlyID} {
		v, err := li.Read(ctx, id)
		if err != nil || v != 9 {
			t.Errorf("Read(%s) = (%d, %v), want (9, nil)", id, v, err)
		}
	}
}

func TestLatestIndex_EmptyDocument(t *testing.T) {
	f := newFixture(t)
	li := NewLatestIndex(f.store)

	v, err := li.Recompute(context.Background(), f.pair.EditID)
	if err != nil {
		t.Fatal(err)
	}
	if v != domain.NoVersion {
		t.Errorf("Recompute() = %d, want %d", v, domain.NoVersion)
	}
}

func TestLatestIndex_PublishFromReadOnlyID(t *testing.T) {
	f := newFixture(t)
	li := NewLatestIndex(f.store)
	ctx := context.Background()
	f.commit(t, plainAction(t, 4))

	got, err := li.Publish(ctx, f.pair.ReadOnlyID)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got != 4 {
		t.Errorf("Publish() = %d, want 4", got)
	}
	if v, _ := li.Read(ctx, f.pair.EditID); v != 4 {
		t.Errorf("edit pointer = %d, want 4", v)
	}
}

func TestLatestIndex_WritesOnlyOnChange(t *testing.T) {
	f := newFixture(t)
	fs := &faultyStore{Store: f.store}
	li := NewLatestIndex(fs)
	ctx := context.Background()
	f.commit(t, plainAction(t, 1))

	if _, err := li.Publish(ctx, f.pair.EditID); err != nil {
		t.Fatal(err)
	}
	if got := fs.LatestWrites(); got != 2 {
		t.Fatalf("first publish wrote %d pointers, want 2", got)
	}
	if _, err := li.Publish(ctx, f.pair.EditID); err != nil {
		t.Fatal(err)
	}
	if got := fs.LatestWrites(); got != 2 {
		t.Errorf("idempotent publish wrote again: %d writes", got)
	}
}

func TestLatestIndex_WriteFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("disk full")
	fs := &faultyStore{Store: f.store, writeLatest: func(domain.DocumentID) error { return boom }}
	li := NewLatestIndex(fs)
	f.commit(t, plainAction(t, 1))

	_, err := li.Publish(context.Background(), f.pair.EditID)
	if !errors.Is(err, domain.ErrStorageError) || !errors.Is(err, boom) {
		t.Errorf("Publish() error = %v, want storage error wrapping cause", err)
	}
}

func TestLatestIndex_ConcurrentPublishConverges(t *testing.T) {
	f := newFixture(t)
	li := NewLatestIndex(f.store)
	vs := NewVersionStore(f.store, DefaultVersionStoreConfig(), f.opts...)
	ctx := context.Background()

	var wg sync.WaitGroup
	for n := int64(0); n < 32; n++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			if _, err := vs.Append(ctx, f.pair.EditID, plainAction(t, n)); err != nil {
				t.Errorf("Append(%d) error = %v", n, err)
				return
			}
			if _, err := li.Publish(ctx, f.pair.EditID); err != nil {
				t.Errorf("Publish() error = %v", err)
			}
		}(n)
	}
	wg.Wait()

	for _, id := range []domain.DocumentID{f.pair.EditID, f.pair.ReadOnlyID} {
		if v, _ := li.Read(ctx, id); v != 31 {
			t.Errorf("Read(%s) = %d, want 31", id, v)
		}
	}
}

func TestLatestIndex_ReadUnknown(t *testing.T) {
	f := newFixture(t)
	li := NewLatestIndex(f.store)

	_, err := li.Read(context.Background(), "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("Read() error = %v, want ErrDocumentNotFound", err)
	}
}
