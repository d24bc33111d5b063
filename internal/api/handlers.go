package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
	"github.com/MRamiBalles/DefiCity/server/internal/domain/city"
	"github.com/MRamiBalles/DefiCity/server/internal/economy"
	"github.com/MRamiBalles/DefiCity/server/internal/events"
	"github.com/MRamiBalles/DefiCity/server/internal/wallet"
)

// ConnectRequest is the wallet handshake payload.
type ConnectRequest struct {
	Address string `json:"address"`
}

// ConnectResponse carries the session token for later requests.
type ConnectResponse struct {
	Address   string    `json:"address"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PlaceRequest asks for a new building.
type PlaceRequest struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

// CatalogEntry is a building type annotated for the build panel.
type CatalogEntry struct {
	*catalog.BuildingType
	Cost       int  `json:"cost"`
	Affordable bool `json:"affordable"`
}

// CatalogResponse lists what can be built and which events may fire.
type CatalogResponse struct {
	Buildings []CatalogEntry           `json:"buildings"`
	Events    []*catalog.EconomicEvent `json:"events"`
}

// SellResponse reports a sale.
type SellResponse struct {
	Building city.Building `json:"building"`
	Refund   int           `json:"refund"`
}

// POST /api/wallet/connect
func (s *Server) handleWalletConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "BAD_REQUEST", "invalid JSON", http.StatusBadRequest)
		return
	}

	token, exp, err := s.auth.Issue(req.Address)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAddress) {
			jsonError(w, "INVALID_ADDRESS", err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("Failed to issue wallet token", "error", err)
		jsonError(w, "INTERNAL", "could not issue token", http.StatusInternalServerError)
		return
	}
	if err := s.session.Connect(req.Address); err != nil {
		jsonError(w, "INVALID_ADDRESS", err.Error(), http.StatusBadRequest)
		return
	}

	addr := s.session.Address()
	if s.eventLog != nil {
		s.eventLog.Append(events.GameEvent{
			Type:    events.EventTypeWalletConnected,
			ActorID: addr,
			Payload: events.WalletPayload{Address: addr},
		})
	}
	s.logger.Event(string(events.EventTypeWalletConnected), addr, "session token issued")

	writeJSON(w, http.StatusOK, ConnectResponse{Address: addr, Token: token, ExpiresAt: exp})
}

// POST /api/wallet/disconnect
func (s *Server) handleWalletDisconnect(w http.ResponseWriter, r *http.Request) {
	addr := s.session.Address()
	s.session.Disconnect()
	s.logger.Info("Wallet disconnected", "wallet", addr)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/catalog
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.store.Catalog()
	tokens := s.store.State().Tokens

	resp := CatalogResponse{Events: cat.Events}
	for _, bt := range cat.Buildings {
		cost := economy.BuildingCost(bt, 1)
		resp.Buildings = append(resp.Buildings, CatalogEntry{
			BuildingType: bt,
			Cost:         cost,
			Affordable:   tokens >= cost,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// GET /api/revenue
func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"samples": s.store.RevenueHistory(),
		"weekly":  s.store.State().WeeklyRevenue,
	})
}

// GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

// POST /api/buildings
func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "BAD_REQUEST", "invalid JSON", http.StatusBadRequest)
		return
	}
	b, err := s.store.PlaceBuilding(req.X, req.Y, req.Type)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// POST /api/buildings/{x}/{y}/upgrade
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	x, y, ok := cell(w, r)
	if !ok {
		return
	}
	b, err := s.store.UpgradeBuilding(x, y)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DELETE /api/buildings/{x}/{y}
func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	x, y, ok := cell(w, r)
	if !ok {
		return
	}
	b, refund, err := s.store.SellBuilding(x, y)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SellResponse{Building: b, Refund: refund})
}

// POST /api/events/random
func (s *Server) handleRandomEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.store.GenerateRandomEvent()
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// cell reads the {x}/{y} route variables.
func cell(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	vars := mux.Vars(r)
	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	if errX != nil || errY != nil {
		jsonError(w, "INVALID_TARGET", "coordinates must be integers", http.StatusBadRequest)
		return 0, 0, false
	}
	return x, y, true
}
