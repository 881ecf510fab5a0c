package box

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDelay = 20 * time.Millisecond

func TestHealer_RunsAfterDelay(t *testing.T) {
	h := NewHealer()
	var ran atomic.Bool
	h.Schedule("k", testDelay, func() { ran.Store(true) })
	assert.True(t, h.Pending("k"))
	require.Eventually(t, ran.Load, time.Second, time.Millisecond)
	assert.False(t, h.Pending("k"))
}

func TestHealer_CancelStopsPending(t *testing.T) {
	h := NewHealer()
	var ran atomic.Bool
	h.Schedule("k", testDelay, func() { ran.Store(true) })
	h.Cancel("k")
	time.Sleep(3 * testDelay)
	assert.False(t, ran.Load())
}

func TestHealer_RescheduleReplacesPending(t *testing.T) {
	h := NewHealer()
	var calls atomic.Int32
	var last atomic.Int32
	h.Schedule("k", testDelay, func() { calls.Add(1); last.Store(1) })
	h.Schedule("k", testDelay, func() { calls.Add(1); last.Store(2) })
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(2), last.Load())
}

func TestHealer_CloseCancelsAndRejects(t *testing.T) {
	h := NewHealer()
	var ran atomic.Bool
	h.Schedule("a", testDelay, func() { ran.Store(true) })
	h.Close()
	h.Schedule("b", testDelay, func() { ran.Store(true) })
	time.Sleep(3 * testDelay)
	assert.False(t, ran.Load())
	assert.False(t, h.Pending("b"))
}

func TestDrafts_NegativeWeightHealsToZero(t *testing.T) {
	d := NewDrafts(testDelay, nil)
	defer d.Close()

	got := d.SetWeight("s1", "-5")
	assert.Equal(t, Draft{Weight: "-5", Notice: NegativeWeightNotice, Healing: true}, got)

	require.Eventually(t, func() bool { return d.Get("s1").Weight == "0" }, time.Second, time.Millisecond)
	assert.Equal(t, Draft{Weight: "0"}, d.Get("s1"))
}

func TestDrafts_CorrectionCancelsHeal(t *testing.T) {
	d := NewDrafts(testDelay, nil)
	defer d.Close()

	d.SetWeight("s1", "-5")
	got := d.SetWeight("s1", "7")
	assert.Equal(t, Draft{Weight: "7"}, got)

	time.Sleep(3 * testDelay)
	assert.Equal(t, "7", d.Get("s1").Weight, "stale heal must not overwrite the correction")
}

func TestDrafts_SubmitCancelsHeal(t *testing.T) {
	d := NewDrafts(testDelay, nil)
	defer d.Close()

	d.SetWeight("s1", "-1")
	d.Submit("s1")
	time.Sleep(3 * testDelay)
	assert.Equal(t, Draft{}, d.Get("s1"))
}

func TestDrafts_SessionsAreIndependent(t *testing.T) {
	d := NewDrafts(time.Hour, nil)
	defer d.Close()

	d.SetWeight("a", "-3")
	d.SetWeight("b", "4")
	assert.True(t, d.Get("a").Healing)
	assert.False(t, d.Get("b").Healing)
	assert.Equal(t, Draft{}, d.Get("unknown"))
}

func TestDrafts_LimitEvictsLeastRecent(t *testing.T) {
	d := NewDraftsWithLimit(time.Minute, 2, nil)
	defer d.Close()

	d.SetWeight("a", "-1")
	d.SetWeight("b", "2")
	d.Get("a") // a is now more recent than b
	d.SetWeight("c", "3")

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, Draft{}, d.Get("b"))
	assert.True(t, d.Get("a").Healing)

	// a was just read, so c goes next, then a.
	d.SetWeight("e", "5")
	assert.Equal(t, Draft{}, d.Get("c"))
	d.SetWeight("f", "6")
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, Draft{}, d.Get("a"))
	// Eviction cancels the heal it had pending.
	assert.False(t, d.healer.Pending("a"))
}

func TestDrafts_ManyVisitorsStayBounded(t *testing.T) {
	d := NewDraftsWithLimit(testDelay, 8, nil)
	defer d.Close()
	for i := 0; i < 100; i++ {
		d.SetWeight(fmt.Sprintf("visitor-%d", i), "-1")
	}
	assert.Equal(t, 8, d.Len())
}

func TestDrafts_EmptyValueForgetsDraft(t *testing.T) {
	d := NewDrafts(testDelay, nil)
	defer d.Close()

	d.SetWeight("a", "-4")
	require.Equal(t, 1, d.Len())
	assert.Equal(t, Draft{}, d.SetWeight("a", ""))
	assert.Equal(t, 0, d.Len())
	assert.False(t, d.healer.Pending("a"))

	d.SetWeight("b", "2")
	d.Submit("b")
	assert.Equal(t, 0, d.Len())
}
