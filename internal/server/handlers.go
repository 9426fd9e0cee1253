package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/msalah0e/conceptmap/internal/scene"
	"github.com/msalah0e/conceptmap/internal/session"
	"github.com/msalah0e/conceptmap/internal/source"
	"go.uber.org/zap"
)

// ScenePayload is what the console needs for one redraw.
type ScenePayload struct {
	Key    string          `json:"key"`
	Title  string          `json:"title"`
	State  string          `json:"state"`
	Frame  scene.Frame     `json:"frame"`
	Detail *session.Detail `json:"detail,omitempty"`
}

// PointerRequest forwards a pointer event in canvas pixels.
type PointerRequest struct {
	Kind string  `json:"kind" validate:"required,oneof=move click leave"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// CameraRequest applies one viewport operation.
type CameraRequest struct {
	Op     string  `json:"op" validate:"required,oneof=zoom-in zoom-out zoom-at pan reset fit focus"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Factor float64 `json:"factor" validate:"gte=0"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	NodeID string  `json:"nodeId"`
}

// ViewportRequest reports a new canvas size.
type ViewportRequest struct {
	Width  float64 `json:"width" validate:"gt=0,lte=16384"`
	Height float64 `json:"height" validate:"gt=0,lte=16384"`
}

// SelectRequest selects a node by id.
type SelectRequest struct {
	NodeID string `json:"nodeId" validate:"required"`
}

type loadResponse struct {
	Report graph.LoadReport `json:"report"`
	Scene  ScenePayload     `json:"scene"`
}

type mapsResponse struct {
	Keys    []string `json:"keys"`
	Current string   `json:"current"`
}

func (s *Server) payload() ScenePayload {
	p := ScenePayload{
		Key:   s.sess.Key(),
		Title: s.sess.Title(),
		State: s.sess.State().String(),
		Frame: s.sess.Frame(),
	}
	if d, ok := s.sess.Detail(); ok {
		p.Detail = &d
	}
	return p
}

func (s *Server) listMaps(w http.ResponseWriter, r *http.Request) {
	keys, err := s.src.Keys(r.Context())
	if err != nil {
		s.logger.Error("list maps failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "SOURCE_UNAVAILABLE", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, mapsResponse{Keys: keys, Current: s.sess.Key()})
}

func (s *Server) loadMap(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	report, err := s.Reload(r.Context(), key)
	switch {
	case err == nil:
	case errors.Is(err, source.ErrInvalidKey):
		respondError(w, http.StatusBadRequest, "INVALID_KEY", err.Error())
		return
	case errors.Is(err, source.ErrNotFound):
		respondError(w, http.StatusNotFound, "MAP_NOT_FOUND", err.Error())
		return
	case errors.Is(err, ErrSuperseded):
		respondError(w, http.StatusConflict, "SUPERSEDED", err.Error())
		return
	default:
		s.logger.Error("load map failed", zap.String("key", key), zap.Error(err))
		respondError(w, http.StatusBadGateway, "LOAD_FAILED", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, loadResponse{Report: report, Scene: s.payload()})
}

func (s *Server) scene(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.payload())
}

func (s *Server) pointer(w http.ResponseWriter, r *http.Request) {
	var req PointerRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	switch req.Kind {
	case "move":
		s.sess.PointerMove(req.X, req.Y)
	case "click":
		s.sess.Click(req.X, req.Y)
	case "leave":
		s.sess.PointerLeave()
	}
	respondJSON(w, http.StatusOK, s.payload())
}

func (s *Server) camera(w http.ResponseWriter, r *http.Request) {
	var req CameraRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	switch req.Op {
	case "zoom-in":
		s.sess.ZoomIn()
	case "zoom-out":
		s.sess.ZoomOut()
	case "zoom-at":
		if req.Factor <= 0 {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "zoom-at needs a positive factor")
			return
		}
		s.sess.ZoomAt(req.X, req.Y, req.Factor)
	case "pan":
		s.sess.Pan(req.DX, req.DY)
	case "reset":
		s.sess.ResetCamera()
	case "fit":
		s.sess.Fit()
	case "focus":
		if err := s.sess.Focus(req.NodeID); err != nil {
			respondError(w, http.StatusNotFound, "NODE_NOT_FOUND", err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, s.payload())
}

func (s *Server) viewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	select {
	case out := <-s.sess.Resize(r.Context(), req.Width, req.Height):
		if out.Err != nil && !errors.Is(out.Err, graph.ErrStaleLayout) {
			s.logger.Debug("relayout after resize did not finish", zap.Error(out.Err))
		}
	case <-r.Context().Done():
		return
	}
	respondJSON(w, http.StatusOK, s.payload())
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results := s.sess.Search(q)
	if results == nil {
		results = []graph.SearchResult{}
	}
	respondJSON(w, http.StatusOK, results)
}

func (s *Server) selectNode(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if !s.sess.Select(req.NodeID) {
		respondError(w, http.StatusNotFound, "NODE_NOT_FOUND", "no node "+req.NodeID)
		return
	}
	respondJSON(w, http.StatusOK, s.payload())
}

func (s *Server) deselect(w http.ResponseWriter, r *http.Request) {
	s.sess.Deselect()
	respondJSON(w, http.StatusOK, s.payload())
}

func (s *Server) selection(w http.ResponseWriter, r *http.Request) {
	type selectionResponse struct {
		State    string          `json:"state"`
		Hovered  string          `json:"hoveredNodeId,omitempty"`
		Selected string          `json:"selectedNodeId,omitempty"`
		Detail   *session.Detail `json:"detail,omitempty"`
	}
	sel := s.sess.Selection()
	resp := selectionResponse{
		State:    s.sess.State().String(),
		Hovered:  sel.HoveredNodeID,
		Selected: sel.SelectedNodeID,
	}
	if d, ok := s.sess.Detail(); ok {
		resp.Detail = &d
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	switch format {
	case "", "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
		if err := scene.WriteSVG(w, s.sess.Frame(), s.background); err != nil {
			s.logger.Warn("svg export failed", zap.Error(err))
		}
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		w.Write([]byte(s.sess.Model().ExportDOT()))
	case "json":
		data, err := s.sess.Model().ExportJSON()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	default:
		respondError(w, http.StatusBadRequest, "INVALID_FORMAT", "format must be svg, dot or json")
	}
}
