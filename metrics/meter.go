package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// tickInterval is the period at which meter averages decay.
const tickInterval = 5 * time.Second

// ewma is an exponentially weighted moving average of a per-second rate,
// fed in batches and decayed once per tickInterval.
type ewma struct {
	alpha     float64
	uncounted int64
	rate      float64
	primed    bool
}

func newEWMA(window time.Duration) ewma {
	return ewma{alpha: 1 - math.Exp(-tickInterval.Seconds()/window.Seconds())}
}

func (e *ewma) tick() {
	instant := float64(e.uncounted) / tickInterval.Seconds()
	e.uncounted = 0
	if e.primed {
		e.rate += e.alpha * (instant - e.rate)
	} else {
		e.rate = instant
		e.primed = true
	}
}

// Meter tracks an event rate, such as squarings per second, as 1- and
// 5-minute moving averages plus the lifetime mean.
type Meter struct {
	name  string
	count atomic.Int64

	mu       sync.Mutex
	start    time.Time
	lastTick time.Time
	rate1    ewma
	rate5    ewma
	now      func() time.Time
}

// NewMeter creates a Meter whose clock starts now.
func NewMeter(name string) *Meter {
	return newMeterWithClock(name, time.Now)
}

func newMeterWithClock(name string, now func() time.Time) *Meter {
	t := now()
	return &Meter{
		name:     name,
		start:    t,
		lastTick: t,
		rate1:    newEWMA(time.Minute),
		rate5:    newEWMA(5 * time.Minute),
		now:      now,
	}
}

// Mark records n events.
func (m *Meter) Mark(n int64) {
	if n <= 0 {
		return
	}
	m.count.Add(n)
	m.mu.Lock()
	m.catchUp()
	m.rate1.uncounted += n
	m.rate5.uncounted += n
	m.mu.Unlock()
}

// catchUp applies every tick that elapsed since the last one. m.mu held.
func (m *Meter) catchUp() {
	now := m.now()
	for now.Sub(m.lastTick) >= tickInterval {
		m.rate1.tick()
		m.rate5.tick()
		m.lastTick = m.lastTick.Add(tickInterval)
	}
}

// Count returns the total number of events.
func (m *Meter) Count() int64 { return m.count.Load() }

// Rate1 returns the 1-minute moving average in events per second.
func (m *Meter) Rate1() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catchUp()
	return m.rate1.rate
}

// Rate5 returns the 5-minute moving average in events per second.
func (m *Meter) Rate5() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catchUp()
	return m.rate5.rate
}

// RateMean returns the mean rate since the meter was created.
func (m *Meter) RateMean() float64 {
	m.mu.Lock()
	elapsed := m.now().Sub(m.start).Seconds()
	m.mu.Unlock()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.count.Load()) / elapsed
}

// Name returns the metric name.
func (m *Meter) Name() string { return m.name }
