// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/raf"
)

// Session is the part of a raf.ServiceUser used by the router.
type Session interface {
	State() raf.State
	IsConnected() bool
	GetParameter(name sle.ParameterName) *sle.Future[raf.Parameter]
}

// DefaultRequestTimeout bounds waiting for the provider's GET-PARAMETER return.
const DefaultRequestTimeout = 10 * time.Second

// StatusResponse describes a JSON response for /status.
type StatusResponse struct {
	State         string            `json:"state"`
	Connected     bool              `json:"connected"`
	Frames        uint64            `json:"frames"`
	Notifications uint64            `json:"notifications"`
	Dropped       uint64            `json:"dropped"`
	Clients       int               `json:"clients"`
	LastReport    *raf.StatusReport `json:"last_report,omitempty"`
}

// ParameterResponse describes a JSON response for /parameters/{name}.
type ParameterResponse struct {
	Error     string `json:"error,omitempty"`
	Name      string `json:"name"`
	Parameter string `json:"parameter,omitempty"`
}

type router struct {
	feed    *Feed
	session Session
	timeout time.Duration
}

// NewRouter serves the Feed on /ws, the session's state on /status, its
// parameters on /parameters/{name} and the metrics on /metrics. A timeout of
// zero selects DefaultRequestTimeout.
func NewRouter(feed *Feed, session Session, timeout time.Duration) *mux.Router {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ro := &router{feed: feed, session: session, timeout: timeout}

	r := mux.NewRouter()
	r.HandleFunc("/status", ro.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/parameters/{name}", ro.handleParameter).Methods(http.MethodGet)
	r.Handle("/ws", feed)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to write JSON response")
	}
}

// handleStatus processes /status GET requests.
func (ro *router) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		State:         ro.session.State().String(),
		Connected:     ro.session.IsConnected(),
		Frames:        ro.feed.frames.Load(),
		Notifications: ro.feed.notifications.Load(),
		Dropped:       ro.feed.dropped.Load(),
		Clients:       ro.feed.Clients(),
		LastReport:    ro.feed.LastReport(),
	})
}

// handleParameter processes /parameters/{name} GET requests.
func (ro *router) handleParameter(w http.ResponseWriter, r *http.Request) {
	response := ParameterResponse{Name: mux.Vars(r)["name"]}

	name, err := sle.ParseParameterName(response.Name)
	if err != nil {
		response.Error = err.Error()
		writeJSON(w, http.StatusNotFound, response)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ro.timeout)
	defer cancel()

	par, err := ro.session.GetParameter(name).Wait(ctx)

	var ise *sle.InvalidStateError
	var nre *sle.NegativeResultError
	status := http.StatusOK
	switch {
	case err == nil:
		response.Parameter = par.String()
	case errors.As(err, &ise):
		status = http.StatusConflict
	case errors.As(err, &nre):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusBadGateway
	}
	if err != nil {
		response.Error = err.Error()
	}

	log.WithFields(log.Fields{
		"parameter": response.Name,
		"response":  response,
	}).Debug("Processing parameter request")

	writeJSON(w, status, response)
}
