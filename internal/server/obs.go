package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/jtchitty/legatoDataHub/internal/admin"
	"github.com/jtchitty/legatoDataHub/internal/errs"
	"github.com/jtchitty/legatoDataHub/internal/resource"
	"github.com/jtchitty/legatoDataHub/internal/sample"
)

// nanVal is the sentinel floatOrNaN falls back to for "whole buffer" reads
// (spec §4.4 "startAfter == NaN means the whole buffer").
var nanVal = math.NaN()

// obsPath reconstructs the absolute resource path from the "*" wildcard
// segment of an /obs/* route, the same PathValue("*") convention the
// teacher uses for its transparent proxy route
// (internal/server/native-proxy.go: `"/" + r.PathValue("*")`).
func obsPath(r *http.Request) string {
	return "/" + r.PathValue("*")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnavailable):
		return http.StatusConflict
	case errors.Is(err, errs.ErrFormatError):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, errs.ErrOverflow), errors.Is(err, errs.ErrNoMemory):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// observationView is the JSON projection of a single point read (spec
// §4.6): the current timestamp and value (under the keys "timestamp" and
// "value", not the buffer-entry keys "t"/"v") plus the resource's static
// metadata.
type observationView struct {
	Path      string  `json:"path"`
	DataType  string  `json:"data_type"`
	Units     string  `json:"units,omitempty"`
	Timestamp float64 `json:"timestamp"`
	Value     any     `json:"value,omitempty"`
}

// GetObservationAPI handles GET /api/v1/obs/*, the query facade's point
// read (spec §4.6). Optional query params select buffer/aggregate reads:
// ?view=buffer[&start_after=][&now=], ?view=min|max|mean|stddev[&start_after=][&now=].
func (s *Server) GetObservationAPI(w http.ResponseWriter, r *http.Request) {
	path := obsPath(r)
	q := r.URL.Query()
	now := nowOrParam(q.Get("now"))

	switch q.Get("view") {
	case "buffer":
		startAfter := floatOrNaN(q.Get("start_after"))
		body, err := s.query.ReadBufferJSON(path, startAfter, now)
		if err != nil {
			httpResponse(w, err.Error(), statusFor(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
		return
	case "min", "max", "mean", "stddev":
		startAfter := floatOrNaN(q.Get("start_after"))
		var v float64
		var err error
		switch q.Get("view") {
		case "min":
			v, err = s.query.Min(path, startAfter, now)
		case "max":
			v, err = s.query.Max(path, startAfter, now)
		case "mean":
			v, err = s.query.Mean(path, startAfter, now)
		case "stddev":
			v, err = s.query.StdDev(path, startAfter, now)
		}
		if err != nil {
			httpResponse(w, err.Error(), statusFor(err))
			return
		}
		httpResponseJSON(w, map[string]any{"path": path, "value": v}, http.StatusOK)
		return
	}

	dt, err := s.query.GetDataType(path)
	if err != nil {
		httpResponse(w, err.Error(), statusFor(err))
		return
	}
	units, _ := s.query.GetUnits(path)
	ts, err := s.query.GetTimestamp(path)
	if err != nil {
		httpResponse(w, err.Error(), statusFor(err))
		return
	}

	view := observationView{Path: path, DataType: dt.String(), Units: units, Timestamp: ts}
	switch dt {
	case sample.Boolean:
		view.Value, _ = s.query.GetBoolean(path)
	case sample.Numeric:
		view.Value, _ = s.query.GetNumeric(path)
	case sample.String:
		view.Value, _ = s.query.GetString(path)
	case sample.JSON:
		raw, jerr := s.query.GetJSON(path)
		if jerr == nil {
			var decoded any
			if json.Unmarshal([]byte(raw), &decoded) == nil {
				view.Value = decoded
			} else {
				view.Value = raw
			}
		}
	}

	httpResponseJSON(w, view, http.StatusOK)
}

// createObservationRequest is the POST /api/v1/obs/* body.
type createObservationRequest struct {
	SourcePath             string  `json:"source_path"`
	DataType               string  `json:"data_type"`
	Units                  string  `json:"units"`
	BufferMaxCount         int     `json:"buffer_max_count"`
	BufferMaxWindowSeconds float64 `json:"buffer_max_window_seconds"`
	Filter                 *struct {
		Kind      string  `json:"kind"` // "deadband", "changedetect", "script"
		Threshold float64 `json:"threshold"`
		Script    string  `json:"script"`
	} `json:"filter"`
}

func parseKind(s string) (sample.Kind, error) {
	switch s {
	case "trigger":
		return sample.Trigger, nil
	case "boolean":
		return sample.Boolean, nil
	case "numeric":
		return sample.Numeric, nil
	case "string":
		return sample.String, nil
	case "json":
		return sample.JSON, nil
	default:
		return 0, fmt.Errorf("unknown data_type %q", s)
	}
}

// CreateObservationAPI handles POST /api/v1/obs/*, administratively
// creating an Observation bound to source_path (spec §3.3, §4.3 step 6).
func (s *Server) CreateObservationAPI(w http.ResponseWriter, r *http.Request) {
	var req createObservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpResponse(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	dt, err := parseKind(req.DataType)
	if err != nil {
		httpResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	var filter resource.FilterFunc
	if req.Filter != nil {
		switch req.Filter.Kind {
		case "deadband":
			filter = resource.DeadBand(req.Filter.Threshold)
		case "changedetect":
			filter = resource.ChangeDetect()
		case "script":
			filter, err = resource.NewScriptedFilter(req.Filter.Script)
			if err != nil {
				httpResponse(w, err.Error(), http.StatusBadRequest)
				return
			}
		default:
			httpResponse(w, fmt.Sprintf("unknown filter kind %q", req.Filter.Kind), http.StatusBadRequest)
			return
		}
	}

	entry, err := admin.CreateObservation(s.tree, admin.ObservationSpec{
		Path:                   obsPath(r),
		SourcePath:             req.SourcePath,
		DataType:               dt,
		Units:                  req.Units,
		BufferMaxCount:         req.BufferMaxCount,
		BufferMaxWindowSeconds: req.BufferMaxWindowSeconds,
		Filter:                 filter,
	})
	if err != nil {
		httpResponse(w, err.Error(), statusFor(err))
		return
	}

	httpResponseJSON(w, map[string]any{"path": entry.Path()}, http.StatusCreated)
}

// DeleteObservationAPI handles DELETE /api/v1/obs/* (spec §3.3 destruction).
func (s *Server) DeleteObservationAPI(w http.ResponseWriter, r *http.Request) {
	if err := admin.DeleteObservation(s.tree, obsPath(r)); err != nil {
		httpResponse(w, err.Error(), statusFor(err))
		return
	}
	httpResponse(w, "deleted", http.StatusOK)
}

// FlushPersistenceAPI handles POST /api/v1/persist, forcing an immediate
// write of every Observation buffer to the optional persistence
// collaborator (spec §6.4).
func (s *Server) FlushPersistenceAPI(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httpResponse(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}
	if err := admin.FlushPersistence(r.Context(), s.tree, s.store); err != nil {
		httpResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	httpResponse(w, "flushed", http.StatusOK)
}

func nowOrParam(v string) float64 {
	if v == "" {
		return float64(time.Now().UnixNano()) / 1e9
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return float64(time.Now().UnixNano()) / 1e9
	}
	return f
}

func floatOrNaN(v string) float64 {
	if v == "" {
		return nanVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nanVal
	}
	return f
}
