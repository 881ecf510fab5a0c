package box

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	"go.uber.org/zap"
)

// DefaultHealDelay is how long a negative weight stays visible before it is
// replaced by zero.
const DefaultHealDelay = 2 * time.Second

// Healer runs delayed corrections, at most one pending per key. Scheduling
// again or cancelling a key stops its pending correction.
type Healer struct {
	mu      sync.Mutex
	seq     uint64
	pending map[string]pendingHeal
	closed  bool
}

type pendingHeal struct {
	seq   uint64
	timer *time.Timer
}

func NewHealer() *Healer {
	return &Healer{pending: make(map[string]pendingHeal)}
}

// Schedule runs fn after delay unless key is cancelled or rescheduled first.
func (h *Healer) Schedule(key string, delay time.Duration, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.stopLocked(key)

	h.seq++
	seq := h.seq
	t := time.AfterFunc(delay, func() {
		h.mu.Lock()
		p, ok := h.pending[key]
		if !ok || p.seq != seq {
			h.mu.Unlock()
			return
		}
		delete(h.pending, key)
		h.mu.Unlock()
		fn()
	})
	h.pending[key] = pendingHeal{seq: seq, timer: t}
}

// Cancel stops the pending correction for key, if any.
func (h *Healer) Cancel(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked(key)
}

// Pending reports whether key has a correction waiting.
func (h *Healer) Pending(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.pending[key]
	return ok
}

// Close cancels everything and ignores later Schedule calls.
func (h *Healer) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key := range h.pending {
		h.stopLocked(key)
	}
	h.closed = true
}

func (h *Healer) stopLocked(key string) {
	if p, ok := h.pending[key]; ok {
		p.timer.Stop()
		delete(h.pending, key)
	}
}

// DefaultDraftLimit bounds how many visitors' drafts are remembered. The
// least recently touched draft is dropped first.
const DefaultDraftLimit = 10000

// Draft is the unsaved weight field of one visitor's form.
type Draft struct {
	Weight  string `json:"weight"`
	Notice  string `json:"notice,omitempty"`
	Healing bool   `json:"healing"`
}

type draftState struct {
	weight string
	notice string
	gen    uint64
}

// Drafts tracks per-session weight drafts and heals negative values to zero
// after a delay. A later edit, a submit, eviction or Close cancels the
// pending heal. Empty drafts are not kept.
type Drafts struct {
	mu     sync.Mutex
	drafts *simplelru.LRU
	healer *Healer
	delay  time.Duration
	log    *zap.Logger
}

func NewDrafts(delay time.Duration, log *zap.Logger) *Drafts {
	return NewDraftsWithLimit(delay, DefaultDraftLimit, log)
}

// NewDraftsWithLimit is NewDrafts with a bound other than DefaultDraftLimit.
func NewDraftsWithLimit(delay time.Duration, limit int, log *zap.Logger) *Drafts {
	if delay <= 0 {
		delay = DefaultHealDelay
	}
	if limit <= 0 {
		limit = DefaultDraftLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Drafts{
		healer: NewHealer(),
		delay:  delay,
		log:    log,
	}
	// NewLRU only fails for a non-positive size.
	d.drafts, _ = simplelru.NewLRU(limit, func(key, _ interface{}) {
		d.healer.Cancel(key.(string))
	})
	return d
}

// SetWeight records what the visitor typed into the weight field.
func (d *Drafts) SetWeight(key, value string) Draft {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.state(key)
	if !ok {
		st = &draftState{}
	}
	st.gen++
	st.weight = value
	st.notice = ""
	d.healer.Cancel(key)

	if n, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil && n < 0 {
		st.notice = NegativeWeightNotice
		gen := st.gen
		d.healer.Schedule(key, d.delay, func() { d.heal(key, gen) })
	}
	view := d.viewLocked(key, st)
	if value == "" {
		d.drafts.Remove(key)
	} else {
		d.drafts.Add(key, st)
	}
	return view
}

// Get returns the current draft for key; unknown keys have an empty draft.
func (d *Drafts) Get(key string) Draft {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.state(key)
	if !ok {
		return Draft{}
	}
	return d.viewLocked(key, st)
}

// Submit cancels any pending heal and forgets the draft.
func (d *Drafts) Submit(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.healer.Cancel(key)
	d.drafts.Remove(key)
}

// Len is the number of drafts currently remembered.
func (d *Drafts) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drafts.Len()
}

func (d *Drafts) Close() { d.healer.Close() }

func (d *Drafts) heal(key string, gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.drafts.Peek(key)
	if !ok {
		return
	}
	st := v.(*draftState)
	if st.gen != gen {
		return
	}
	st.weight = "0"
	st.notice = ""
	d.log.Debug("negative weight healed", zap.String("draft", key))
}

func (d *Drafts) state(key string) (*draftState, bool) {
	v, ok := d.drafts.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*draftState), true
}

func (d *Drafts) viewLocked(key string, st *draftState) Draft {
	return Draft{Weight: st.weight, Notice: st.notice, Healing: d.healer.Pending(key)}
}
