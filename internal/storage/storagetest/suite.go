// Package storagetest provides a conformance suite for service.Store
// implementations.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
	"github.com/jeff-tyrrill/data-scribbler/internal/core/service"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) service.Store

// Fixed ids used by the suite.
const (
	DocA domain.DocumentID = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1"
	DocB domain.DocumentID = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb2"
)

// Run exercises every Store capability against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Location", func(t *testing.T) { testLocation(t, newStore(t)) })
	t.Run("Status", func(t *testing.T) { testStatus(t, newStore(t)) })
	t.Run("Latest", func(t *testing.T) { testLatest(t, newStore(t)) })
	t.Run("Lease", func(t *testing.T) { testLease(t, newStore(t)) })
	t.Run("Publish", func(t *testing.T) { testPublish(t, newStore(t)) })
	t.Run("PublishNeverReplaces", func(t *testing.T) { testPublishNeverReplaces(t, newStore(t)) })
	t.Run("ConcurrentLease", func(t *testing.T) { testConcurrentLease(t, newStore(t)) })
	t.Run("ConcurrentPublish", func(t *testing.T) { testConcurrentPublish(t, newStore(t)) })
}

func testLocation(t *testing.T, s service.Store) {
	ctx := context.Background()

	_, err := s.ListVersions(ctx, DocA)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.CreateLocation(ctx, DocA))
	require.NoError(t, s.CreateLocation(ctx, DocA), "creating twice is tolerated")

	versions, err := s.ListVersions(ctx, DocA)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func testStatus(t *testing.T, s service.Store) {
	ctx := context.Background()

	_, err := s.ReadStatus(ctx, DocA)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, s.Touch(ctx, DocA), domain.ErrNotFound)

	require.NoError(t, s.CreateLocation(ctx, DocA))
	want := &domain.StatusRecord{IsReadOnly: true, EditID: DocB}
	require.NoError(t, s.WriteStatus(ctx, DocA, want))

	got, err := s.ReadStatus(ctx, DocA)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, s.Touch(ctx, DocA))
}

func testLatest(t *testing.T, s service.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateLocation(ctx, DocA))

	_, err := s.ReadLatest(ctx, DocA)
	require.ErrorIs(t, err, domain.ErrNotFound)

	for _, v := range []int64{domain.NoVersion, 7, 3} {
		require.NoError(t, s.WriteLatest(ctx, DocA, v))
		got, err := s.ReadLatest(ctx, DocA)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func testLease(t *testing.T, s service.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateLocation(ctx, DocA))

	_, err := s.ReadLease(ctx, DocA, 4)
	require.ErrorIs(t, err, domain.ErrNotFound)

	mine := domain.Lease{Writer: "01HZZZZZZZZZZZZZZZZZZZZZZA", Started: 1000}
	require.NoError(t, s.AcquireLease(ctx, DocA, 4, mine))
	require.ErrorIs(t, s.AcquireLease(ctx, DocA, 4, domain.Lease{Writer: "other", Started: 2000}), domain.ErrAlreadyExists)
	require.NoError(t, s.AcquireLease(ctx, DocA, 5, mine), "leases are per slot")

	held, err := s.ReadLease(ctx, DocA, 4)
	require.NoError(t, err)
	assert.Equal(t, mine, *held)

	removed, err := s.ReleaseLease(ctx, DocA, 4, "other")
	require.NoError(t, err)
	assert.False(t, removed, "a lease held by someone else must survive")

	held, err = s.ReadLease(ctx, DocA, 4)
	require.NoError(t, err)
	assert.Equal(t, mine.Writer, held.Writer)

	removed, err = s.ReleaseLease(ctx, DocA, 4, mine.Writer)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = s.ReadLease(ctx, DocA, 4)
	require.ErrorIs(t, err, domain.ErrNotFound)

	removed, err = s.ReleaseLease(ctx, DocA, 4, mine.Writer)
	require.NoError(t, err)
	assert.False(t, removed)
}

func testPublish(t *testing.T, s service.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateLocation(ctx, DocA))

	require.ErrorIs(t, s.PublishVersion(ctx, DocA, 1, "w1"), domain.ErrNotFound, "nothing staged")

	for _, n := range []int64{7, 3, 9} {
		require.NoError(t, s.StageVersion(ctx, DocA, n, "w1", []byte(fmt.Sprintf(`{"id":%d}`, n))))
	}

	has, err := s.HasVersion(ctx, DocA, 7)
	require.NoError(t, err)
	assert.False(t, has, "staged data is not committed")

	versions, err := s.ListVersions(ctx, DocA)
	require.NoError(t, err)
	assert.Empty(t, versions, "staged data is never listed")

	for _, n := range []int64{7, 3, 9} {
		require.NoError(t, s.PublishVersion(ctx, DocA, n, "w1"))
	}

	versions, err = s.ListVersions(ctx, DocA)
	require.NoError(t, err)
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	assert.Equal(t, []int64{3, 7, 9}, versions)

	data, err := s.ReadVersion(ctx, DocA, 9)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9}`, string(data))

	_, err = s.ReadVersion(ctx, DocA, 8)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.DiscardStaged(ctx, DocA, 9, "w1"), "discarding after publish is harmless")
}

func testPublishNeverReplaces(t *testing.T, s service.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateLocation(ctx, DocA))

	require.NoError(t, s.StageVersion(ctx, DocA, 2, "first", []byte(`{"id":2,"by":"first"}`)))
	require.NoError(t, s.StageVersion(ctx, DocA, 2, "second", []byte(`{"id":2,"by":"second"}`)))

	require.NoError(t, s.PublishVersion(ctx, DocA, 2, "first"))
	require.ErrorIs(t, s.PublishVersion(ctx, DocA, 2, "second"), domain.ErrAlreadyExists)
	require.NoError(t, s.DiscardStaged(ctx, DocA, 2, "second"))

	data, err := s.ReadVersion(ctx, DocA, 2)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2,"by":"first"}`, string(data))
}

func testConcurrentLease(t *testing.T, s service.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateLocation(ctx, DocA))

	const writers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.AcquireLease(ctx, DocA, 11, domain.Lease{Writer: fmt.Sprintf("w%02d", i), Started: 1})
			if err == nil {
				wins.Add(1)
				return
			}
			assert.ErrorIs(t, err, domain.ErrAlreadyExists)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func testConcurrentPublish(t *testing.T, s service.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateLocation(ctx, DocA))

	const writers = 16
	var winner atomic.Value
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := fmt.Sprintf("w%02d", i)
			payload := fmt.Sprintf(`{"id":5,"by":%q}`, w)
			if !assert.NoError(t, s.StageVersion(ctx, DocA, 5, w, []byte(payload))) {
				return
			}
			err := s.PublishVersion(ctx, DocA, 5, w)
			if err == nil {
				wins.Add(1)
				winner.Store(payload)
				return
			}
			assert.ErrorIs(t, err, domain.ErrAlreadyExists)
			assert.NoError(t, s.DiscardStaged(ctx, DocA, 5, w))
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	data, err := s.ReadVersion(ctx, DocA, 5)
	require.NoError(t, err)
	assert.JSONEq(t, winner.Load().(string), string(data))
}
