package api

import "time"

// FormatKind is the display kind applied to a field value.
type FormatKind string

const (
	KindText       FormatKind = "text"
	KindNumber     FormatKind = "number"
	KindCurrency   FormatKind = "currency"
	KindPercentage FormatKind = "percentage"
	KindDate       FormatKind = "date"
)

// Valid reports whether k is one of the known kinds.
func (k FormatKind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindCurrency, KindPercentage, KindDate:
		return true
	}
	return false
}

// Date styles understood by the formatter.
const (
	DateStyleShort    = "MM/dd/yyyy"
	DateStyleISO      = "yyyy-MM-dd"
	DateStyleRelative = "relative"
)

// FieldFormat describes how a single field is rendered.
// Only the modifiers meaningful for Kind are consulted.
type FieldFormat struct {
	// Kind selects the formatting rule. Empty means text.
	Kind FormatKind `json:"type"`
	// Decimals overrides the per-kind default number of fraction digits.
	Decimals *int `json:"decimals,omitempty"`
	// Currency is an ISO 4217 code (currency kind only, default USD).
	Currency string `json:"currency,omitempty"`
	// DateFormat is one of the DateStyle constants (date kind only).
	DateFormat string `json:"dateFormat,omitempty"`
	// Prefix and Suffix wrap number output (number kind only).
	Prefix string `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

// DisplayMode selects how a widget projects its document.
type DisplayMode string

const (
	ModeTable DisplayMode = "table"
	ModeCard  DisplayMode = "card"
	ModeChart DisplayMode = "chart"
)

// Valid reports whether m is one of the known modes.
func (m DisplayMode) Valid() bool {
	return m == ModeTable || m == ModeCard || m == ModeChart
}

// ChartType is a rendering hint for chart-mode widgets.
type ChartType string

const (
	ChartLine        ChartType = "line"
	ChartCandlestick ChartType = "candlestick"
	ChartPerformance ChartType = "performance"
)

// Endpoint is one alternative URL a widget can switch between.
type Endpoint struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Widget is the persisted configuration of a dashboard widget.
// Runtime state (current document, errors) is never part of it.
type Widget struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	// APIURL is the JSON endpoint polled by the widget.
	APIURL               string            `json:"apiUrl"`
	APIEndpoints         []Endpoint        `json:"apiEndpoints,omitempty"`
	CurrentEndpointIndex int               `json:"currentEndpointIndex,omitempty"`
	APIHeaders           map[string]string `json:"apiHeaders,omitempty"`
	// RefreshInterval is in seconds. Zero disables automatic refresh.
	RefreshInterval int `json:"refreshInterval"`
	// Fields is the ordered list of selected field paths; order is display order.
	Fields       []string               `json:"fields"`
	FieldFormats map[string]FieldFormat `json:"fieldFormats,omitempty"`
	DisplayMode  DisplayMode            `json:"displayMode"`
	ChartType    ChartType              `json:"chartType,omitempty"`
	TimeInterval string                 `json:"timeInterval,omitempty"`
	Position     int                    `json:"position"`
}

// DashboardVersion is the export format version written by Export.
const DashboardVersion = "2.0"

// Dashboard is the export/import document.
type Dashboard struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Widgets   []Widget  `json:"widgets"`
}
