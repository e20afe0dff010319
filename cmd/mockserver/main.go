// Command mockserver reproduces original_source/simple_rest_server.py for
// local, dependency-free end-to-end testing of the dispatcher. It is
// deliberately minimal: a test fixture, not part of the dispatcher's
// domain stack, so it uses only net/http.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	perSecondRate = 20
	maxLatencyMs  = 50
	max429Rejects = 10
)

var validAPIKeys = map[string]bool{
	"UT4NHL1J796WCHULA1750MXYF9F5JYA6": true,
	"8TY2F3KIL38T741G1UCBMCAQ75XU9F5O": true,
	"954IXKJN28CBDKHSKHURQIVLQHZIEEM9": true,
	"EUU46ID478HOO7GOXFASKPOZ9P91XGYS": true,
	"46V5EZ5K2DFAGW85J18L50SGO25WJ5JE": true,
}

// slotLimiter mirrors simple_rest_server.py's RateLimiter: a ring of
// access timestamps with no minimum-gap check, unlike the dispatcher's
// own ratelimit.Limiter.
type slotLimiter struct {
	access []int64
	idx    int
}

func newSlotLimiter(rate int) *slotLimiter {
	return &slotLimiter{access: make([]int64, rate)}
}

func (s *slotLimiter) acquire(now int64) bool {
	if now-s.access[s.idx] > 1000 {
		s.access[s.idx] = now
		s.idx = (s.idx + 1) % len(s.access)
		return true
	}
	return false
}

type perKeyState struct {
	mu        sync.Mutex
	prevNonce int64
	limiter   *slotLimiter
	error429s int
}

type server struct {
	mu     sync.Mutex
	states map[string]*perKeyState
}

func newServer() *server {
	return &server{states: make(map[string]*perKeyState)}
}

func (s *server) stateFor(apiKey string) *perKeyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[apiKey]
	if !ok {
		st = &perKeyState{limiter: newSlotLimiter(perSecondRate)}
		s.states[apiKey] = st
	}
	return st
}

func randomLatency() time.Duration {
	return time.Duration(rand.Intn(maxLatencyMs+1)) * time.Millisecond
}

func writeJSON(w http.ResponseWriter, status int, body map[string]string) {
	time.Sleep(randomLatency())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *server) handleRequest(w http.ResponseWriter, r *http.Request) {
	apiKey := r.URL.Query().Get("api_key")
	if !validAPIKeys[apiKey] {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "error_msg": "invalid api key"})
		return
	}

	state := s.stateFor(apiKey)
	time.Sleep(randomLatency())

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.error429s >= max429Rejects {
		writeJSON(w, http.StatusForbidden, map[string]string{"status": "error", "error_msg": "too many rate limit errors: blocked"})
		return
	}

	now := time.Now().UnixMilli()
	if !state.limiter.acquire(now) {
		state.error429s++
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"status": "error", "error_msg": "exceeded rate limit"})
		return
	}

	nonceStr := r.URL.Query().Get("nonce")
	reqID := r.URL.Query().Get("req_id")
	nonce, err := strconv.ParseInt(nonceStr, 10, 64)
	if err != nil || nonce <= state.prevNonce {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error_msg": "invalid nonce"})
		return
	}
	state.prevNonce = nonce

	writeJSON(w, http.StatusOK, map[string]string{"status": "OK", "req_id": reqID})
}

func main() {
	addr := flag.String("addr", ":9999", "")
	flag.Parse()

	s := newServer()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/request", s.handleRequest)

	log.Printf("mockserver listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}
