package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// A local stand-in for the Eloqua Bulk API: it accepts the three-phase
// import protocol and answers with the right statuses, so the gateway
// can be exercised end to end without platform credentials.

type stubState struct {
	mu      sync.Mutex
	imports map[string]json.RawMessage
	syncs   int
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  WARNING: This is a STUB bulk API for local testing ONLY. ║")
	log.Println("║  Imports are held in memory and synced nowhere.           ║")
	log.Println("║                                                           ║")
	log.Println("║  For the REAL gateway, run:                               ║")
	log.Println("║    go run cmd/server/main.go                              ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")
	log.Println("")
	log.Println("Starting Eloqua bulk API stub (hardcoded responses)...")

	state := &stubState{imports: make(map[string]json.RawMessage)}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"eloqua-stub","warning":"THIS IS A STUB - nothing is synced"}`))
	})

	// Phase one: create import definition.
	mux.HandleFunc("POST /api/bulk/2.0/contacts/imports", func(w http.ResponseWriter, r *http.Request) {
		var def json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			http.Error(w, `{"failures":[{"error":"invalid json"}]}`, http.StatusBadRequest)
			return
		}

		id := uuid.NewString()
		state.mu.Lock()
		state.imports[id] = def
		state.mu.Unlock()

		log.Printf("created import %s", id)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"uri": "/contacts/imports/" + id,
		})
	})

	// Phase two: upload contact data.
	mux.HandleFunc("POST /api/bulk/2.0/contacts/imports/{id}/data", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		state.mu.Lock()
		_, known := state.imports[id]
		state.mu.Unlock()
		if !known {
			http.Error(w, `{"failures":[{"error":"import not found"}]}`, http.StatusNotFound)
			return
		}

		var records []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
			http.Error(w, `{"failures":[{"error":"invalid json"}]}`, http.StatusBadRequest)
			return
		}

		log.Printf("import %s received %d records", id, len(records))
		w.WriteHeader(http.StatusNoContent)
	})

	// Phase three: sync.
	mux.HandleFunc("POST /api/bulk/2.0/syncs", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SyncedInstanceURI string `json:"syncedInstanceURI"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SyncedInstanceURI == "" {
			http.Error(w, `{"failures":[{"error":"syncedInstanceURI is required"}]}`, http.StatusBadRequest)
			return
		}

		state.mu.Lock()
		state.syncs++
		n := state.syncs
		state.mu.Unlock()

		log.Printf("sync %d requested for %s", n, req.SyncedInstanceURI)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"uri": fmt.Sprintf("/syncs/%s", uuid.NewString()),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Stub listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down stub...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Stub stopped")
}
