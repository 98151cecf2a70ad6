package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/dashboard"
	"github.com/agentic-research/dashlens/internal/fetch"
	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const quoteBody = `{"Global Quote":{"01. symbol":"IBM","05. price":"182.50","10. change percent":"1.25%"}}`

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(quoteBody))
	})
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"a","price":1234.5},{"name":"b","price":2}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) (*Server, *dashboard.Manager) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	m := dashboard.NewManager(dashboard.Options{
		Fetcher: fetch.New(fetch.Options{Logger: logger, Registerer: reg}),
		Logger:  logger,
	})
	return New(Options{Manager: m, Logger: logger, Registry: reg}), m
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// ---------------------------------------------------------------------------
// Test and preview
// ---------------------------------------------------------------------------

func TestHandleTest(t *testing.T) {
	up := upstream(t)
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/test", `{"url":"`+up.URL+`/quote"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json; charset=UTF-8", rec.Header().Get("Content-Type"))

	var out struct {
		Fields []struct {
			Path     string          `json:"path"`
			Format   api.FieldFormat `json:"format"`
			Selected bool            `json:"selected"`
			Preview  string          `json:"preview"`
		} `json:"fields"`
	}
	require.NoError(t, sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Fields, 3)

	byPath := make(map[string]string)
	for _, f := range out.Fields {
		byPath[f.Path] = f.Preview
	}
	assert.Equal(t, "IBM", byPath["Global Quote.01. symbol"])
	assert.Equal(t, "$182.50", byPath["Global Quote.05. price"])
}

func TestHandleTest_Errors(t *testing.T) {
	up := upstream(t)
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"missing url", `{"url":" "}`, http.StatusBadRequest},
		{"upstream 404", `{"url":"` + up.URL + `/missing"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/test", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			out := decode[map[string]string](t, rec)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestHandlePreview(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		query string
		want  string
	}{
		{"kind=currency&value=1234.5", "$1,234.50"},
		{"kind=currency", "$1,234.56"},
		{"kind=number&decimals=3&value=3.14159", "3.142"},
		{"kind=number&decimals=2&prefix=~&value=2", "~2.00"},
		{"value=hello", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/api/preview?"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decode[map[string]string](t, rec)["text"])
		})
	}

	rec := do(t, s, http.MethodGet, "/api/preview?kind=money", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/preview?kind=number&decimals=lots", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---------------------------------------------------------------------------
// Widgets
// ---------------------------------------------------------------------------

func TestWidgetLifecycle(t *testing.T) {
	up := upstream(t)
	s, m := newTestServer(t)

	body := `{"title":"Prices","apiUrl":"` + up.URL + `/list","fields":["name","price"],` +
		`"fieldFormats":{"price":{"type":"currency"}},"displayMode":"table"}`
	rec := do(t, s, http.MethodPost, "/api/widgets", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[api.Widget](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 1, m.Len())

	rec = do(t, s, http.MethodGet, "/api/widgets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.Widget](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Prices", list[0].Title)

	rec = do(t, s, http.MethodPost, "/api/widgets/"+created.ID+"/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[dashboard.Snapshot](t, rec)
	assert.True(t, snap.Data.IsArray())
	assert.Empty(t, snap.Error)

	rec = do(t, s, http.MethodGet, "/api/widgets/"+created.ID+"/render", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rendered := decode[dashboard.Rendered](t, rec)
	assert.Equal(t, [][]string{{"a", "$1,234.50"}, {"b", "$2.00"}}, rendered.Rows)

	upd := strings.Replace(body, `"Prices"`, `"Renamed"`, 1)
	rec = do(t, s, http.MethodPut, "/api/widgets/"+created.ID, upd)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", decode[api.Widget](t, rec).Title)

	rec = do(t, s, http.MethodDelete, "/api/widgets/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/widgets/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWidgetErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name, method, target, body string
		code                       int
	}{
		{"create invalid", http.MethodPost, "/api/widgets", `{"title":"x"}`, http.StatusBadRequest},
		{"create malformed", http.MethodPost, "/api/widgets", `[`, http.StatusBadRequest},
		{"update unknown", http.MethodPut, "/api/widgets/nope", `{"apiUrl":"http://a"}`, http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/api/widgets/nope", "", http.StatusNotFound},
		{"refresh unknown", http.MethodPost, "/api/widgets/nope/refresh", "", http.StatusNotFound},
		{"render unknown", http.MethodGet, "/api/widgets/nope/render", "", http.StatusNotFound},
		{"endpoint no index", http.MethodPost, "/api/widgets/nope/endpoint", `{}`, http.StatusBadRequest},
		{"reorder mismatch", http.MethodPost, "/api/widgets/reorder", `{"ids":["a"]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestSwitchEndpointAndReorder(t *testing.T) {
	s, m := newTestServer(t)
	a, err := m.Add(api.Widget{
		Title: "A",
		APIEndpoints: []api.Endpoint{
			{Name: "one", URL: "http://one"},
			{Name: "two", URL: "http://two"},
		},
	})
	require.NoError(t, err)
	b, err := m.Add(api.Widget{Title: "B", APIURL: "http://b"})
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/widgets/"+a.ID+"/endpoint", `{"index":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "http://two", decode[api.Widget](t, rec).APIURL)

	rec = do(t, s, http.MethodPost, "/api/widgets/reorder", `{"ids":["`+b.ID+`","`+a.ID+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[[]api.Widget](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, 1, list[1].Position)
}

func TestRefreshAll(t *testing.T) {
	up := upstream(t)
	s, m := newTestServer(t)
	_, err := m.Add(api.Widget{Title: "ok", APIURL: up.URL + "/quote"})
	require.NoError(t, err)
	_, err = m.Add(api.Widget{Title: "bad", APIURL: up.URL + "/missing"})
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/widgets/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]dashboard.Snapshot](t, rec)
	require.Len(t, list, 2)
	assert.True(t, list[0].Data.IsObject())
	assert.Equal(t, "HTTP 404: Not Found", list[1].Error)
}

// ---------------------------------------------------------------------------
// Dashboard export/import
// ---------------------------------------------------------------------------

func TestExportImport(t *testing.T) {
	s, m := newTestServer(t)
	_, err := m.Add(api.Widget{Title: "A", APIURL: "http://a", Fields: []string{"x"}})
	require.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/api/dashboard/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "dashboard.json")
	exported := rec.Body.String()
	assert.Contains(t, exported, `"version": "2.0"`)

	other, om := newTestServer(t)
	rec = do(t, other, http.MethodPost, "/api/dashboard/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 1, om.Len())
	assert.Equal(t, "A", om.List()[0].Title)

	rec = do(t, other, http.MethodPost, "/api/dashboard/import", `{"version":"2.0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, om.Len())
}

// ---------------------------------------------------------------------------
// Operational endpoints
// ---------------------------------------------------------------------------

func TestHealthzAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	do(t, s, http.MethodGet, "/api/widgets", "")
	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dashlens_http_requests_total{code="200",method="get",route="GET /api/widgets"} 1`)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/widgets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_GracefulShutdown(t *testing.T) {
	s, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	hookRan := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ln, time.Second, func(context.Context) error {
			close(hookRan)
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	select {
	case <-hookRan:
	default:
		t.Fatal("shutdown hook did not run")
	}
}
