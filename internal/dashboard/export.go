package dashboard

import (
	"fmt"

	"github.com/agentic-research/dashlens/api"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Export writes the widget configurations as an indented dashboard document.
// Ids and runtime state are not exported.
func (m *Manager) Export() ([]byte, error) {
	m.mu.RLock()
	widgets := make([]api.Widget, len(m.slots))
	for i, s := range m.slots {
		w := cloneWidget(s.widget)
		w.ID = ""
		widgets[i] = w
	}
	m.mu.RUnlock()

	d := api.Dashboard{
		Version:   api.DashboardVersion,
		Timestamp: m.now().UTC(),
		Widgets:   widgets,
	}
	data, err := sonic.ConfigStd.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal dashboard: %w", err)
	}
	return data, nil
}

// Import replaces every widget with those in data. Widgets get fresh ids and
// positions in document order; runtime state starts empty. On error the
// current widgets are left untouched.
func (m *Manager) Import(data []byte) error {
	var d struct {
		Version string        `json:"version"`
		Widgets *[]api.Widget `json:"widgets"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("parse dashboard: %w", err)
	}
	if d.Widgets == nil {
		return fmt.Errorf("parse dashboard: %w: no widgets array", ErrInvalidWidget)
	}
	if d.Version != "" && d.Version != api.DashboardVersion {
		m.logger.Warn("importing dashboard from another version",
			zap.String("version", d.Version), zap.String("want", api.DashboardVersion))
	}

	slots := make([]*slot, len(*d.Widgets))
	for i, w := range *d.Widgets {
		if err := normalize(&w); err != nil {
			return fmt.Errorf("import widget %d (%s): %w", i, w.Title, err)
		}
		w.ID = m.newID()
		w.Position = i
		slots[i] = &slot{widget: w}
	}

	m.Clear()
	m.mu.Lock()
	m.slots = slots
	m.mu.Unlock()
	for _, s := range slots {
		m.startLoop(s.widget)
	}
	m.logger.Info("dashboard imported", zap.Int("widgets", len(slots)))
	return nil
}
