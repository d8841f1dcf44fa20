package viewstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFilter struct {
	Group  string
	Period string
}

func (f testFilter) Ready() bool { return f.Group != "" && f.Period != "" }
func (f testFilter) Key() string { return f.Group + "|" + f.Period }

func TestBinderStartsEmpty(t *testing.T) {
	b := NewBinder(func(ctx context.Context, f testFilter) ([]string, error) {
		t.Fatal("fetch must not run")
		return nil, nil
	})
	snap := b.Snapshot()
	assert.Equal(t, StatusEmpty, snap.Status)
	assert.Equal(t, DefaultEmptyNotice, snap.Notice)
	assert.NotNil(t, snap.Rows)
}

func TestBinderSkipsFetchUntilReady(t *testing.T) {
	calls := 0
	b := NewBinder(func(ctx context.Context, f testFilter) ([]string, error) {
		calls++
		return []string{"ahmad"}, nil
	})

	snap, applied := b.Apply(context.Background(), testFilter{Group: "g1"})
	require.True(t, applied)
	assert.Equal(t, StatusEmpty, snap.Status)
	assert.Empty(t, snap.Rows)
	assert.Equal(t, 0, calls)

	snap, applied = b.Apply(context.Background(), testFilter{Group: "g1", Period: "p1"})
	require.True(t, applied)
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, []string{"ahmad"}, snap.Rows)
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Equal(t, 1, calls)
}

func TestBinderErrorDegradesToEmptyWithNotice(t *testing.T) {
	b := NewBinder(func(ctx context.Context, f testFilter) ([]string, error) {
		return nil, errors.New("connection refused")
	}, WithErrorNotice(func(err error) string { return "gagal: " + err.Error() }))

	snap, applied := b.Apply(context.Background(), testFilter{Group: "g", Period: "p"})
	require.True(t, applied)
	assert.Equal(t, StatusError, snap.Status)
	assert.Empty(t, snap.Rows)
	assert.NotNil(t, snap.Rows)
	assert.Equal(t, "gagal: connection refused", snap.Notice)
}

func TestBinderDiscardsStaleResults(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	b := NewBinder(func(ctx context.Context, f testFilter) ([]string, error) {
		if f.Period == "slow" {
			close(started)
			<-release
			return []string{"stale"}, nil
		}
		return []string{"fresh"}, nil
	})

	type result struct {
		snap    Snapshot[testFilter, string]
		applied bool
	}
	slowDone := make(chan result, 1)
	go func() {
		snap, applied := b.Apply(context.Background(), testFilter{Group: "g", Period: "slow"})
		slowDone <- result{snap, applied}
	}()
	<-started

	snap, applied := b.Apply(context.Background(), testFilter{Group: "g", Period: "fast"})
	require.True(t, applied)
	assert.Equal(t, []string{"fresh"}, snap.Rows)

	close(release)
	slow := <-slowDone
	assert.False(t, slow.applied)
	assert.Equal(t, []string{"fresh"}, slow.snap.Rows)
	assert.Equal(t, []string{"fresh"}, b.Snapshot().Rows)
	assert.Equal(t, "fast", b.Snapshot().Filter.Period)
}

func TestBinderCancelsPreviousFetch(t *testing.T) {
	cancelled := make(chan struct{})
	started := make(chan struct{})
	b := NewBinder(func(ctx context.Context, f testFilter) ([]string, error) {
		if f.Period == "first" {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		}
		return []string{"second"}, nil
	})

	firstDone := make(chan bool, 1)
	go func() {
		_, applied := b.Apply(context.Background(), testFilter{Group: "g", Period: "first"})
		firstDone <- applied
	}()
	<-started

	_, applied := b.Apply(context.Background(), testFilter{Group: "g", Period: "second"})
	require.True(t, applied)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("previous fetch was not cancelled")
	}
	assert.False(t, <-firstDone)
	assert.Equal(t, StatusReady, b.Snapshot().Status)
}

func TestBinderUnreadyFilterSupersedesInflightFetch(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	b := NewBinder(func(ctx context.Context, f testFilter) ([]string, error) {
		close(started)
		<-release
		return []string{"late"}, nil
	}, WithEmptyNotice("pilih halaqah"))

	done := make(chan struct{})
	go func() {
		b.Apply(context.Background(), testFilter{Group: "g", Period: "p"})
		close(done)
	}()
	<-started
	snap, _ := b.Apply(context.Background(), testFilter{})
	close(release)
	<-done

	assert.Equal(t, StatusEmpty, snap.Status)
	assert.Equal(t, "pilih halaqah", b.Snapshot().Notice)
	assert.Empty(t, b.Snapshot().Rows)
}
