package telemetry

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"atcguard/core"
	"atcguard/standalone"
	"atcguard/standalone/journal"
	"atcguard/standalone/keepout"
)

// Journal is the read side of the transition journal
type Journal interface {
	Recent(limit int) ([]journal.Entry, error)
}

// Deps are the sources the HTTP surface reads. State is required; the rest
// enable their routes when set.
type Deps struct {
	State    *keepout.State
	Inputs   func() keepout.Inputs
	Position func() standalone.Position
	Metrics  *Metrics
	Journal  Journal
	Driver   *core.MemoryDriver // enables PUT /inputs/{pin} on the bench build
	Logger   *slog.Logger
}

type boundsView struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

type positionView struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	A float64 `json:"a"`
}

// StatusView is the GET /status body
type StatusView struct {
	Enabled  bool           `json:"enabled"`
	Enforced bool           `json:"enforced"`
	Source   string         `json:"source"`
	Flags    keepout.Flags  `json:"flags"`
	Bounds   boundsView     `json:"bounds"`
	Inputs   keepout.Inputs `json:"inputs"`
	Report   string         `json:"report"`
	Position *positionView  `json:"position,omitempty"`
}

type inputRequest struct {
	Level *bool `json:"level"`
}

type server struct {
	deps Deps
}

// NewHandler builds the router
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	s := &server{deps: deps}

	r := chi.NewRouter()
	r.Get("/status", s.status)
	r.Get("/params", s.params)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	if deps.Journal != nil {
		r.Get("/journal", s.journal)
	}
	if deps.Driver != nil {
		r.Put("/inputs/{pin}", s.driveInput)
	}
	return r
}

func (s *server) inputs() keepout.Inputs {
	if s.deps.Inputs == nil {
		return keepout.Inputs{}
	}
	return s.deps.Inputs()
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.State.Snapshot()
	in := s.inputs()

	view := StatusView{
		Enabled:  snap.Enabled,
		Enforced: snap.Enforced,
		Source:   snap.Source.String(),
		Flags:    snap.Flags,
		Bounds: boundsView{
			XMin: snap.Bounds.XMin, YMin: snap.Bounds.YMin,
			XMax: snap.Bounds.XMax, YMax: snap.Bounds.YMax,
		},
		Inputs: in,
		Report: keepout.StatusFlags(snap, in),
	}
	if s.deps.Position != nil {
		pos := s.deps.Position()
		view.Position = &positionView{X: pos.X, Y: pos.Y, Z: pos.Z, A: pos.A}
	}
	s.writeJSON(w, view)
}

func (s *server) params(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(keepout.ParamsLine(s.deps.State.Bounds()) + "\n"))
}

func (s *server) journal(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.deps.Journal.Recent(limit)
	if err != nil {
		s.deps.Logger.Error("journal query failed", "err", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	s.writeJSON(w, entries)
}

func (s *server) driveInput(w http.ResponseWriter, r *http.Request) {
	pin, err := strconv.ParseUint(chi.URLParam(r, "pin"), 10, 32)
	if err != nil {
		http.Error(w, "invalid pin", http.StatusBadRequest)
		return
	}

	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Level == nil {
		http.Error(w, "body must be {\"level\": true|false}", http.StatusBadRequest)
		return
	}

	s.deps.Driver.Drive(core.GPIOPin(pin), *req.Level)
	s.deps.Logger.Info("input driven", "pin", pin, "level", *req.Level)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.deps.Logger.Error("response encode failed", "err", err)
	}
}
