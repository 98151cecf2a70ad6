package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/fetch"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxParallelRefresh bounds RefreshAll fan-out.
const maxParallelRefresh = 8

// refresher tracks one ticker loop per widget while the Manager is started.
type refresher struct {
	mu     sync.Mutex
	ctx    context.Context // nil when stopped
	cancel context.CancelFunc
	loops  map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// Refresh fetches widget id once and stores the outcome on the widget. The
// fetch error is also returned.
func (m *Manager) Refresh(ctx context.Context, id string) error {
	m.mu.RLock()
	s, ok := m.find(id)
	var req fetch.Request
	if ok {
		req = fetch.Request{URL: s.widget.APIURL, Headers: s.widget.APIHeaders}
	}
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("refresh %s: %w", id, ErrNotFound)
	}
	if m.fetcher == nil {
		return fmt.Errorf("refresh %s: no fetcher configured", id)
	}

	m.setLoading(id, true)
	doc, err := m.fetcher.Fetch(ctx, req)
	if err != nil && ctx.Err() != nil {
		// Shutting down; keep the last good state.
		m.setLoading(id, false)
		return ctx.Err()
	}
	if err != nil {
		m.logger.Warn("widget refresh failed", zap.String("id", id), zap.String("url", req.URL), zap.Error(err))
		if serr := m.SetError(id, err.Error()); serr != nil {
			// Removed while in flight.
			return serr
		}
		return err
	}
	return m.SetData(id, doc)
}

// RefreshAll refreshes every widget concurrently. Per-widget failures are
// recorded on the widgets; only cancellation of ctx is returned.
func (m *Manager) RefreshAll(ctx context.Context) error {
	m.mu.RLock()
	ids := m.ids()
	m.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRefresh)
	for _, id := range ids {
		g.Go(func() error {
			_ = m.Refresh(gctx, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Start launches an independent refresh loop for every widget with a
// positive refresh interval, and for widgets added later. Each widget is
// fetched once immediately. Ticks never wait for or cancel a fetch still in
// flight. Start is a no-op when already started.
func (m *Manager) Start(ctx context.Context) {
	m.run.mu.Lock()
	if m.run.ctx != nil {
		m.run.mu.Unlock()
		return
	}
	m.run.ctx, m.run.cancel = context.WithCancel(ctx)
	m.run.mu.Unlock()

	m.mu.RLock()
	widgets := make([]refreshTarget, len(m.slots))
	for i, s := range m.slots {
		widgets[i] = refreshTarget{id: s.widget.ID, every: s.widget.RefreshInterval}
	}
	m.mu.RUnlock()

	for _, w := range widgets {
		m.startTarget(w)
	}
}

// Stop cancels every loop and in-flight refresh and waits for them to exit.
func (m *Manager) Stop() {
	m.run.mu.Lock()
	if m.run.ctx == nil {
		m.run.mu.Unlock()
		return
	}
	m.run.cancel()
	m.run.ctx, m.run.cancel = nil, nil
	clear(m.run.loops)
	m.run.mu.Unlock()
	m.run.wg.Wait()
}

type refreshTarget struct {
	id    string
	every int // seconds
}

func (m *Manager) startLoop(w api.Widget) {
	m.startTarget(refreshTarget{id: w.ID, every: w.RefreshInterval})
}

func (m *Manager) startTarget(t refreshTarget) {
	m.run.mu.Lock()
	defer m.run.mu.Unlock()
	if m.run.ctx == nil {
		return
	}
	if cancel, ok := m.run.loops[t.id]; ok {
		cancel()
		delete(m.run.loops, t.id)
	}
	ctx, cancel := context.WithCancel(m.run.ctx)
	m.run.loops[t.id] = cancel

	m.run.wg.Add(1)
	go func() {
		defer m.run.wg.Done()
		m.loop(ctx, t)
	}()
}

func (m *Manager) stopLoop(id string) {
	m.run.mu.Lock()
	defer m.run.mu.Unlock()
	if cancel, ok := m.run.loops[id]; ok {
		cancel()
		delete(m.run.loops, id)
	}
}

func (m *Manager) loop(ctx context.Context, t refreshTarget) {
	var inflight sync.WaitGroup
	defer inflight.Wait()

	fire := func() {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			_ = m.Refresh(ctx, t.id)
		}()
	}

	fire()
	if t.every <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(t.every) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fire()
		}
	}
}
