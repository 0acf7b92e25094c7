package share

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl)
	s.now = clock.now
	return s, clock
}

func TestPutGet(t *testing.T) {
	s, clock := newTestStore(time.Hour)

	id, expires, err := s.Put([]byte(`{"plan":1}`))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, clock.t.Add(time.Hour), expires)

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, `{"plan":1}`, string(got))

	_, ok = s.Get("unknown")
	assert.False(t, ok)
}

func TestPutCopiesPayload(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	buf := []byte("abc")
	id, _, err := s.Put(buf)
	require.NoError(t, err)
	buf[0] = 'x'

	got, _ := s.Get(id)
	assert.Equal(t, "abc", string(got))
}

func TestEmptyPayload(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	_, _, err := s.Put(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestExpiryOnRead(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	id, _, err := s.Put([]byte("x"))
	require.NoError(t, err)

	clock.t = clock.t.Add(59 * time.Second)
	_, ok := s.Get(id)
	assert.True(t, ok)

	clock.t = clock.t.Add(time.Second)
	_, ok = s.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestSweep(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	_, _, _ = s.Put([]byte("old"))
	clock.t = clock.t.Add(30 * time.Second)
	fresh, _, _ := s.Put([]byte("fresh"))
	clock.t = clock.t.Add(45 * time.Second)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get(fresh)
	assert.True(t, ok)
}

func TestRunSweeperStopsWithContext(t *testing.T) {
	s := NewStore(time.Millisecond)
	_, _, _ = s.Put([]byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
