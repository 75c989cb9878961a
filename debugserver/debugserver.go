//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package debugserver exposes read-only HTTP introspection for a running
// flow graph: current state, the node table, and the derived edge list.
package debugserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-flow-go/flow"
	"trpc.group/trpc-go/trpc-flow-go/log"
)

const defaultAddr = "127.0.0.1:7430"

// Server serves graph introspection endpoints.
type Server struct {
	graph *flow.Graph
	addr  string
}

// Option configures a Server.
type Option func(*Server)

// WithAddress sets the listen address.
func WithAddress(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// New creates a debug server for the given graph.
func New(g *flow.Graph, opts ...Option) *Server {
	s := &Server{graph: g, addr: defaultAddr}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the CORS-wrapped route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/api/nodes", s.handleNodes).Methods(http.MethodGet)
	r.HandleFunc("/api/edges", s.handleEdges).Methods(http.MethodGet)
	return cors.Default().Handler(r)
}

// ListenAndServe serves until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("debugserver: shutdown: %v", err)
		}
	}()
	log.Infof("debugserver: listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type stateResponse struct {
	Graph          string     `json:"graph"`
	State          flow.State `json:"state"`
	UndefinedPaths []string   `json:"undefinedPaths"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	includeHidden := r.URL.Query().Get("includeHidden") == "true"
	state := s.graph.State(includeHidden)
	writeJSON(w, stateResponse{
		Graph:          s.graph.Name(),
		State:          state,
		UndefinedPaths: flow.UndefinedPaths(state),
	})
}

type nodeInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	nodes := s.graph.Nodes()
	out := make([]nodeInfo, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeInfo{Name: n.Name(), Kind: n.Kind()})
	}
	writeJSON(w, out)
}

func (s *Server) handleEdges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.graph.Edges())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("debugserver: encode response: %v", err)
	}
}
