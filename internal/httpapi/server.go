// Package httpapi exposes the accessory over a small JSON HTTP API,
// together with health and readiness probes.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/accessory"
	"github.com/dokzlo13/duolight/internal/light"
)

// maxBodySize bounds PUT request bodies.
const maxBodySize = 4096

// Server is an HTTP server in front of one accessory.
type Server struct {
	addr       string
	acc        *accessory.Accessory
	httpServer *http.Server
	ready      atomic.Bool
}

// characteristicBody is the JSON shape of a single characteristic.
type characteristicBody struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Value  any    `json:"value"`
}

type writeBody struct {
	Value json.RawMessage `json:"value"`
}

// NewServer creates a new API server.
func NewServer(host string, port int, acc *accessory.Accessory) *Server {
	return &Server{
		addr: fmt.Sprintf("%s:%d", host, port),
		acc:  acc,
	}
}

// SetReady flips the /ready probe.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /characteristics", s.handleList)
	mux.HandleFunc("GET /characteristics/{name}", s.handleGet)
	mux.HandleFunc("PUT /characteristics/{name}", s.handlePut)
	mux.HandleFunc("POST /identify", s.handleIdentify)
	mux.HandleFunc("POST /toggle", s.handleToggle)

	return mux
}

// Run starts the API server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting HTTP API server")

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		s.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP API server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.acc.State())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	chars := s.acc.Characteristics(accessory.SourceHTTP)
	out := make([]characteristicBody, 0, len(chars))
	for _, c := range chars {
		out = append(out, describe(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.acc.Characteristic(accessory.SourceHTTP, r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(c))
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	c, err := s.acc.Characteristic(accessory.SourceHTTP, r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	var body writeBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(body.Value) == 0 {
		http.Error(w, `missing "value"`, http.StatusBadRequest)
		return
	}

	raw, err := decodeValue(body.Value)
	if err != nil {
		http.Error(w, "invalid value", http.StatusBadRequest)
		return
	}

	v, err := light.ValueOf(c.Format(), raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := c.Set(v); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	s.acc.Identify(accessory.SourceHTTP)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.acc.Toggle(accessory.SourceHTTP); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.acc.State())
}

func describe(c accessory.Characteristic) characteristicBody {
	return characteristicBody{
		Name:   c.Name(),
		Format: c.Format().String(),
		Value:  c.Get().Interface(),
	}
}

// decodeValue keeps numbers as json.Number so integer payloads are not
// silently widened to float.
func decodeValue(data json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// writeError maps accessory errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, accessory.ErrUnknownCharacteristic):
		status = http.StatusNotFound
	case errors.Is(err, light.ErrFormat):
		status = http.StatusBadRequest
	case errors.Is(err, light.ErrInvalidRange):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write HTTP response")
	}
}
