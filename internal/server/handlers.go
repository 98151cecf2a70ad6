package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/dashboard"
	"github.com/agentic-research/dashlens/internal/fetch"
	"github.com/agentic-research/dashlens/internal/infer"
	"github.com/agentic-research/dashlens/internal/jsonval"
	"github.com/bytedance/sonic"
	"github.com/gorilla/schema"
	"go.uber.org/zap"
)

// errBadRequest marks client input errors.
var errBadRequest = errors.New("bad request")

type testRequest struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// suggestion is an infer.FieldSuggestion with its sample already formatted.
type suggestion struct {
	infer.FieldSuggestion
	Preview string `json:"preview"`
}

type testResponse struct {
	Fields []suggestion  `json:"fields"`
	Data   jsonval.Value `json:"data"`
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, r, fmt.Errorf("%w: url is required", errBadRequest))
		return
	}
	sugg, doc, err := s.dash.Test(r.Context(), fetch.Request{URL: req.URL, Headers: req.Headers})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := testResponse{Fields: make([]suggestion, len(sugg)), Data: doc}
	for i, fs := range sugg {
		f := fs.Format
		out.Fields[i] = suggestion{FieldSuggestion: fs, Preview: s.fm.Preview(fs.Sample, &f)}
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

// previewRequest is decoded from the query string.
type previewRequest struct {
	Kind       string `schema:"kind"`
	Decimals   *int   `schema:"decimals"`
	Currency   string `schema:"currency"`
	DateFormat string `schema:"dateFormat"`
	Prefix     string `schema:"prefix"`
	Suffix     string `schema:"suffix"`
	Value      string `schema:"value"`
}

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := queryDecoder.Decode(&req, r.URL.Query()); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	kind := api.FormatKind(req.Kind)
	if kind != "" && !kind.Valid() {
		s.writeError(w, r, fmt.Errorf("%w: unknown format %q", errBadRequest, req.Kind))
		return
	}
	f := api.FieldFormat{
		Kind:       kind,
		Decimals:   req.Decimals,
		Currency:   req.Currency,
		DateFormat: req.DateFormat,
		Prefix:     req.Prefix,
		Suffix:     req.Suffix,
	}
	var sample jsonval.Value
	if req.Value != "" {
		v, err := jsonval.Parse([]byte(req.Value))
		if err != nil {
			v = jsonval.StringValue(req.Value)
		}
		sample = v
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"text": s.fm.Preview(sample, &f)})
}

func (s *Server) handleListWidgets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.dash.List())
}

func (s *Server) handleCreateWidget(w http.ResponseWriter, r *http.Request) {
	var in api.Widget
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.dash.Add(in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, out)
}

func (s *Server) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	snap, err := s.dash.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) handleUpdateWidget(w http.ResponseWriter, r *http.Request) {
	var in api.Widget
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.dash.Update(r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleDeleteWidget(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Remove(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefreshWidget responds with the widget state after the refresh. A
// failed fetch is reported in the widget's error, not as a failed request.
func (s *Server) handleRefreshWidget(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.dash.Refresh(r.Context(), id); errors.Is(err, dashboard.ErrNotFound) {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.dash.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.RefreshAll(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.dash.List())
}

func (s *Server) handleSwitchEndpoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Index == nil {
		s.writeError(w, r, fmt.Errorf("%w: index is required", errBadRequest))
		return
	}
	out, err := s.dash.SwitchEndpoint(r.PathValue("id"), *req.Index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.dash.Reorder(req.IDs); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.dash.List())
}

func (s *Server) handleRenderWidget(w http.ResponseWriter, r *http.Request) {
	out, err := s.dash.Render(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.dash.Export()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.Header().Set("Content-Disposition", `attachment; filename="dashboard.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := s.dash.Import(data); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.dash.List())
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	if err := sonic.ConfigStd.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		s.logger.Error("encode response", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("code", code), zap.Error(err))
	}
	s.writeJSON(w, r, code, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		se *fetch.StatusError
		ue *url.Error
	)
	switch {
	case errors.Is(err, dashboard.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, dashboard.ErrInvalidWidget):
		return http.StatusBadRequest
	case errors.As(err, &se), errors.Is(err, fetch.ErrInvalidJSON), errors.Is(err, fetch.ErrTooLarge), errors.As(err, &ue):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
