package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wycenapp/wycena-sync/internal/syncqueue"
	"github.com/wycenapp/wycena-sync/pkg/logger"
)

// Prober checks remote reachability. The remote client's Ping satisfies it.
type Prober interface {
	Ping(ctx context.Context) error
}

// Syncer is the slice of the sync engine the monitor drives.
type Syncer interface {
	SetOnline(online bool)
	State() syncqueue.SyncState
	Drain(ctx context.Context, ownerID string) error
}

// Monitor tracks offline/online transitions and triggers queue drains when
// connectivity returns. Transitions arrive as push events from the host
// shell via Notify; an optional prober covers platforms without one.
type Monitor struct {
	syncer   Syncer
	prober   Prober
	logg     *logger.Logger
	ownerID  string
	interval time.Duration

	events chan bool

	mu     sync.Mutex
	online bool
}

// Params collects the monitor dependencies.
type Params struct {
	Syncer  Syncer
	Prober  Prober
	Logger  *logger.Logger
	OwnerID string
	// ProbeInterval of zero disables active probing; the monitor then
	// relies on Notify alone.
	ProbeInterval time.Duration
}

// NewMonitor builds a connectivity monitor. The device starts offline
// until the first positive signal.
func NewMonitor(p Params) (*Monitor, error) {
	if p.Syncer == nil {
		return nil, fmt.Errorf("syncer required")
	}
	if p.OwnerID == "" {
		return nil, fmt.Errorf("owner id required")
	}
	return &Monitor{
		syncer:   p.Syncer,
		prober:   p.Prober,
		logg:     p.Logger,
		ownerID:  p.OwnerID,
		interval: p.ProbeInterval,
		events:   make(chan bool, 8),
	}, nil
}

// Notify feeds a reachability signal from the host platform. It never
// blocks; when the buffer is full the newest state will be observed by the
// next probe or event anyway.
func (m *Monitor) Notify(online bool) {
	select {
	case m.events <- online:
	default:
	}
}

// IsOnline returns the last observed connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Run processes connectivity signals until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	var ticker *time.Ticker
	var tick <-chan time.Time
	if m.prober != nil && m.interval > 0 {
		ticker = time.NewTicker(m.interval)
		tick = ticker.C
		defer ticker.Stop()
		m.probe(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case online := <-m.events:
			m.transition(ctx, online)
		case <-tick:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	online := m.prober.Ping(ctx) == nil
	m.transition(ctx, online)
}

// transition applies one observed state. Only the offline→online edge
// triggers a drain, and only when mutations are pending; in-flight remote
// calls on the online→offline edge fail on their own and re-queue.
func (m *Monitor) transition(ctx context.Context, online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	m.mu.Unlock()

	m.syncer.SetOnline(online)

	if online == wasOnline {
		return
	}

	if m.logg != nil {
		state := "offline"
		if online {
			state = "online"
		}
		m.logg.Info(m.logg.WithField(ctx, "connectivity", state), "connectivity changed")
	}

	if !online {
		return
	}

	if m.syncer.State().PendingCount == 0 {
		return
	}

	if err := m.syncer.Drain(ctx, m.ownerID); err != nil && m.logg != nil {
		m.logg.Error(ctx, "drain after reconnect failed", err)
	}
}
