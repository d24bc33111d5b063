// Package api exposes the city over HTTP: JSON endpoints for the dashboard,
// the wallet handshake, metrics and the WebSocket upgrade.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MRamiBalles/DefiCity/server/internal/engine"
	"github.com/MRamiBalles/DefiCity/server/internal/events"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/logger"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/metrics"
	"github.com/MRamiBalles/DefiCity/server/internal/wallet"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Store     *engine.Store
	EventLog  *events.EventLog
	Authority *wallet.Authority
	Session   *wallet.Session
	Metrics   *metrics.Collector
	Logger    *logger.Logger
	WS        http.Handler // optional; mounted at /ws behind auth
}

// Server holds the handlers.
type Server struct {
	store    *engine.Store
	eventLog *events.EventLog
	auth     *wallet.Authority
	session  *wallet.Session
	metrics  *metrics.Collector
	logger   *logger.Logger
	ws       http.Handler
}

// NewServer creates the API server.
func NewServer(d Deps) *Server {
	if d.Metrics == nil {
		d.Metrics = metrics.Get()
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	if d.Authority == nil {
		d.Authority = wallet.NewAuthority("", "defi-city", 0)
	}
	if d.Session == nil {
		d.Session = &wallet.Session{}
	}
	return &Server{
		store:    d.Store,
		eventLog: d.EventLog,
		auth:     d.Authority,
		session:  d.Session,
		metrics:  d.Metrics,
		logger:   d.Logger,
		ws:       d.WS,
	}
}

// Router builds the route table. Everything under /api except the wallet
// handshake requires a token for the currently connected wallet.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/wallet/connect", s.handleWalletConnect).Methods("POST")
	r.HandleFunc("/metrics", s.metrics.Handler()).Methods("GET")
	r.HandleFunc("/metrics/prometheus", s.metrics.PrometheusHandler()).Methods("GET")

	gate := s.auth.RequireWallet(s.session)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(gate)
	api.HandleFunc("/wallet/disconnect", s.handleWalletDisconnect).Methods("POST")
	api.HandleFunc("/catalog", s.handleCatalog).Methods("GET")
	api.HandleFunc("/state", s.handleState).Methods("GET")
	api.HandleFunc("/revenue", s.handleRevenue).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/activity", s.handleActivity).Methods("GET")
	api.HandleFunc("/buildings", s.handlePlace).Methods("POST")
	api.HandleFunc("/buildings/{x:[0-9]+}/{y:[0-9]+}/upgrade", s.handleUpgrade).Methods("POST")
	api.HandleFunc("/buildings/{x:[0-9]+}/{y:[0-9]+}", s.handleSell).Methods("DELETE")
	api.HandleFunc("/events/random", s.handleRandomEvent).Methods("POST")

	if s.ws != nil {
		r.Handle("/ws", gate(s.ws)).Methods("GET")
	}
	return r
}

// statusFor maps store failures to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrOccupiedCell), errors.Is(err, engine.ErrEventActive):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNoBuildingAtCell):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownBuildingType), errors.Is(err, engine.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoEvents):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, status, map[string]string{"code": code, "error": message})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Store operation failed", "error", err)
	}
	jsonError(w, engine.ErrorCode(err), err.Error(), status)
}
