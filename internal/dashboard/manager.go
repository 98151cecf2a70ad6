// Package dashboard keeps the widget set and its live documents.
//
// Widget configuration and runtime state live together in a Manager. A
// widget's document is only ever replaced wholesale, so concurrent refreshes
// of the same widget resolve to whichever result arrives last.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/fetch"
	"github.com/agentic-research/dashlens/internal/format"
	"github.com/agentic-research/dashlens/internal/infer"
	"github.com/agentic-research/dashlens/internal/jsonval"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for an unknown widget id.
	ErrNotFound = errors.New("widget not found")
	// ErrInvalidWidget is returned for a widget configuration that cannot run.
	ErrInvalidWidget = errors.New("invalid widget")
)

// Fetcher retrieves a widget's document.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (jsonval.Value, error)
}

// Snapshot is a widget's configuration plus its runtime state.
type Snapshot struct {
	api.Widget
	Data        jsonval.Value `json:"data"`
	Error       string        `json:"error,omitempty"`
	Loading     bool          `json:"loading"`
	LastUpdated *time.Time    `json:"lastUpdated,omitempty"`
}

type slot struct {
	widget      api.Widget
	data        jsonval.Value
	err         string
	loading     bool
	lastUpdated time.Time
}

func (s *slot) snapshot() Snapshot {
	snap := Snapshot{
		Widget:  cloneWidget(s.widget),
		Data:    s.data,
		Error:   s.err,
		Loading: s.loading,
	}
	if !s.lastUpdated.IsZero() {
		t := s.lastUpdated
		snap.LastUpdated = &t
	}
	return snap
}

// Options configures a Manager.
type Options struct {
	Fetcher   Fetcher
	Inferrer  *infer.Inferrer
	Formatter *format.Formatter
	Logger    *zap.Logger
	Now       func() time.Time
	NewID     func() string
}

// Manager owns the widget set.
type Manager struct {
	mu    sync.RWMutex
	slots []*slot // ordered by position

	fetcher   Fetcher
	inferrer  *infer.Inferrer
	formatter *format.Formatter
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	run refresher
}

// NewManager returns an empty Manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		fetcher:   opts.Fetcher,
		inferrer:  opts.Inferrer,
		formatter: opts.Formatter,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if m.inferrer == nil {
		m.inferrer = infer.NewInferrer()
	}
	if m.formatter == nil {
		m.formatter = format.New()
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	m.run.loops = make(map[string]context.CancelFunc)
	return m
}

// Add appends w to the dashboard with a fresh id and returns the stored
// configuration.
func (m *Manager) Add(w api.Widget) (api.Widget, error) {
	if err := normalize(&w); err != nil {
		return api.Widget{}, err
	}
	m.mu.Lock()
	w.ID = m.newID()
	w.Position = len(m.slots)
	m.slots = append(m.slots, &slot{widget: w})
	m.mu.Unlock()

	m.logger.Info("widget added", zap.String("id", w.ID), zap.String("title", w.Title))
	m.startLoop(w)
	return cloneWidget(w), nil
}

// Update replaces the configuration of widget id. The id and position are
// kept; runtime state is kept unless the URL changed.
func (m *Manager) Update(id string, w api.Widget) (api.Widget, error) {
	if err := normalize(&w); err != nil {
		return api.Widget{}, err
	}
	m.mu.Lock()
	s, ok := m.find(id)
	if !ok {
		m.mu.Unlock()
		return api.Widget{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	w.ID, w.Position = s.widget.ID, s.widget.Position
	if w.APIURL != s.widget.APIURL {
		s.data, s.err, s.loading = jsonval.Value{}, "", false
	}
	s.widget = w
	m.mu.Unlock()

	m.startLoop(w)
	return cloneWidget(w), nil
}

// Remove deletes widget id and renumbers the remaining positions.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	i := m.index(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	m.slots = slices.Delete(m.slots, i, i+1)
	m.renumber()
	m.mu.Unlock()

	m.stopLoop(id)
	m.logger.Info("widget removed", zap.String("id", id))
	return nil
}

// SwitchEndpoint points widget id at its index-th alternative endpoint and
// clears its document.
func (m *Manager) SwitchEndpoint(id string, index int) (api.Widget, error) {
	m.mu.Lock()
	s, ok := m.find(id)
	if !ok {
		m.mu.Unlock()
		return api.Widget{}, fmt.Errorf("switch endpoint %s: %w", id, ErrNotFound)
	}
	if index < 0 || index >= len(s.widget.APIEndpoints) {
		m.mu.Unlock()
		return api.Widget{}, fmt.Errorf("switch endpoint %s: no endpoint %d: %w", id, index, ErrInvalidWidget)
	}
	s.widget.CurrentEndpointIndex = index
	s.widget.APIURL = s.widget.APIEndpoints[index].URL
	s.data, s.err, s.loading = jsonval.Value{}, "", false
	w := cloneWidget(s.widget)
	m.mu.Unlock()
	return w, nil
}

// Reorder sets the display order. ids must name every widget exactly once.
func (m *Manager) Reorder(ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(ids) != len(m.slots) {
		return fmt.Errorf("reorder: got %d ids for %d widgets: %w", len(ids), len(m.slots), ErrInvalidWidget)
	}
	next := make([]*slot, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		s, ok := m.find(id)
		if !ok {
			return fmt.Errorf("reorder %s: %w", id, ErrNotFound)
		}
		if seen[id] {
			return fmt.Errorf("reorder: duplicate id %s: %w", id, ErrInvalidWidget)
		}
		seen[id] = true
		next = append(next, s)
	}
	m.slots = next
	m.renumber()
	return nil
}

// Get returns widget id.
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.find(id)
	if !ok {
		return Snapshot{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return s.snapshot(), nil
}

// List returns every widget in position order.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, len(m.slots))
	for i, s := range m.slots {
		out[i] = s.snapshot()
	}
	return out
}

// Len returns the number of widgets.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}

// Clear removes every widget.
func (m *Manager) Clear() {
	m.mu.Lock()
	ids := m.ids()
	m.slots = nil
	m.mu.Unlock()
	for _, id := range ids {
		m.stopLoop(id)
	}
}

// SetData replaces the document of widget id and clears its error.
func (m *Manager) SetData(id string, doc jsonval.Value) error {
	return m.setState(id, doc, "")
}

// SetError records a failed refresh of widget id and drops its document.
func (m *Manager) SetError(id string, msg string) error {
	return m.setState(id, jsonval.Value{}, msg)
}

func (m *Manager) setState(id string, doc jsonval.Value, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.find(id)
	if !ok {
		return fmt.Errorf("set state %s: %w", id, ErrNotFound)
	}
	s.data, s.err, s.loading = doc, msg, false
	s.lastUpdated = m.now()
	return nil
}

func (m *Manager) setLoading(id string, loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.find(id); ok {
		s.loading = loading
	}
}

// Test fetches req and suggests fields for the document it returns.
func (m *Manager) Test(ctx context.Context, req fetch.Request) ([]infer.FieldSuggestion, jsonval.Value, error) {
	if m.fetcher == nil {
		return nil, jsonval.Value{}, fmt.Errorf("test %s: no fetcher configured", req.URL)
	}
	doc, err := m.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, jsonval.Value{}, err
	}
	return m.inferrer.Suggest(doc), doc, nil
}

func (m *Manager) find(id string) (*slot, bool) {
	if i := m.index(id); i >= 0 {
		return m.slots[i], true
	}
	return nil, false
}

func (m *Manager) index(id string) int {
	return slices.IndexFunc(m.slots, func(s *slot) bool { return s.widget.ID == id })
}

func (m *Manager) ids() []string {
	out := make([]string, len(m.slots))
	for i, s := range m.slots {
		out[i] = s.widget.ID
	}
	return out
}

func (m *Manager) renumber() {
	for i, s := range m.slots {
		s.widget.Position = i
	}
}

// normalize checks w and fills defaults.
func normalize(w *api.Widget) error {
	if w.APIURL == "" && len(w.APIEndpoints) > 0 {
		idx := w.CurrentEndpointIndex
		if idx < 0 || idx >= len(w.APIEndpoints) {
			idx = 0
		}
		w.CurrentEndpointIndex = idx
		w.APIURL = w.APIEndpoints[idx].URL
	}
	if w.APIURL == "" {
		return fmt.Errorf("%w: apiUrl is required", ErrInvalidWidget)
	}
	if w.DisplayMode == "" {
		w.DisplayMode = api.ModeTable
	}
	if !w.DisplayMode.Valid() {
		return fmt.Errorf("%w: unknown display mode %q", ErrInvalidWidget, w.DisplayMode)
	}
	if w.RefreshInterval < 0 {
		return fmt.Errorf("%w: negative refresh interval", ErrInvalidWidget)
	}
	for field, f := range w.FieldFormats {
		if f.Kind != "" && !f.Kind.Valid() {
			return fmt.Errorf("%w: field %s has unknown format %q", ErrInvalidWidget, field, f.Kind)
		}
	}
	if w.Fields == nil {
		w.Fields = []string{}
	}
	return nil
}

func cloneWidget(w api.Widget) api.Widget {
	w.Fields = slices.Clone(w.Fields)
	w.APIEndpoints = slices.Clone(w.APIEndpoints)
	w.APIHeaders = maps.Clone(w.APIHeaders)
	w.FieldFormats = maps.Clone(w.FieldFormats)
	return w
}
