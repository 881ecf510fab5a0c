package box

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shippingbox/internal/kv"
	"shippingbox/internal/rate"
)

type stubSource struct {
	boxes   []Box
	loadErr error
	saveErr error
	loads   atomic.Int32
	gate    chan struct{}
}

func (s *stubSource) GetAllBoxes(ctx context.Context) ([]Box, error) {
	s.loads.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	return s.boxes, s.loadErr
}

func (s *stubSource) SaveBox(ctx context.Context, in Input) (Box, error) {
	if s.saveErr != nil {
		return Box{}, s.saveErr
	}
	return Box{ID: "new", ReceiverName: in.ReceiverName}, nil
}

func TestViewCache_LoadAndSave(t *testing.T) {
	ctx := context.Background()
	ctrl := NewController(NewBlobRepository(kv.NewMemory()), rate.NewTable())
	_, err := ctrl.SaveBox(ctx, Input{ReceiverName: "seed", Weight: 1, DestinationCountry: "Sweden"})
	require.NoError(t, err)

	c := NewViewCache(ctrl, zap.NewNop())
	assert.False(t, c.Loaded())
	require.NoError(t, c.Load(ctx))
	assert.True(t, c.Loaded())
	require.Len(t, c.All(), 1)

	b, err := c.Save(ctx, Input{ReceiverName: "next", Weight: 2, DestinationCountry: "China"})
	require.NoError(t, err)
	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, b, all[1])

	// The cache and the store agree after a reload.
	require.NoError(t, c.Load(ctx))
	assert.Equal(t, all, c.All())
}

func TestViewCache_LoadFailureKeepsPreviousCopy(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{boxes: []Box{{ID: "a"}}}
	c := NewViewCache(src, nil)
	require.NoError(t, c.Load(ctx))

	src.loadErr = ErrRetrieve
	assert.ErrorIs(t, c.Load(ctx), ErrRetrieve)
	assert.Equal(t, []Box{{ID: "a"}}, c.All())
}

func TestViewCache_SaveFailureDoesNotAppend(t *testing.T) {
	src := &stubSource{saveErr: errors.New("nope")}
	c := NewViewCache(src, nil)
	_, err := c.Save(context.Background(), Input{ReceiverName: "x"})
	assert.Error(t, err)
	assert.Empty(t, c.All())
}

func TestViewCache_ConcurrentLoadsShareOneRead(t *testing.T) {
	src := &stubSource{boxes: []Box{{ID: "a"}}, gate: make(chan struct{})}
	c := NewViewCache(src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Load(context.Background()))
		}()
	}
	// Let every goroutine join the in-flight load before releasing it.
	require.Eventually(t, func() bool { return src.loads.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.LessOrEqual(t, src.loads.Load(), int32(5))
	assert.Equal(t, []Box{{ID: "a"}}, c.All())
}

func TestViewCache_AllReturnsCopy(t *testing.T) {
	src := &stubSource{boxes: []Box{{ID: "a"}}}
	c := NewViewCache(src, nil)
	require.NoError(t, c.Load(context.Background()))
	got := c.All()
	got[0].ID = "mutated"
	assert.Equal(t, "a", c.All()[0].ID)
}

func TestViewCache_SaveDuringLoadIsKept(t *testing.T) {
	src := &stubSource{boxes: []Box{{ID: "a"}}, gate: make(chan struct{})}
	c := NewViewCache(src, nil)

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()
	require.Eventually(t, func() bool { return src.loads.Load() == 1 }, time.Second, time.Millisecond)

	b, err := c.Save(context.Background(), Input{ReceiverName: "late"})
	require.NoError(t, err)
	close(src.gate)
	require.NoError(t, <-done)

	assert.Equal(t, []Box{{ID: "a"}, b}, c.All())

	// Once the store has it, a reload neither loses nor repeats it.
	src.gate = nil
	src.boxes = []Box{{ID: "a"}, b}
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, []Box{{ID: "a"}, b}, c.All())
}

func TestViewCache_SaveDuringLoadNotDuplicated(t *testing.T) {
	src := &stubSource{gate: make(chan struct{})}
	c := NewViewCache(src, nil)

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()
	require.Eventually(t, func() bool { return src.loads.Load() == 1 }, time.Second, time.Millisecond)

	b, err := c.Save(context.Background(), Input{ReceiverName: "raced"})
	require.NoError(t, err)
	// The read saw the write after all.
	src.boxes = []Box{b}
	close(src.gate)
	require.NoError(t, <-done)

	assert.Equal(t, []Box{b}, c.All())
}
