// Package api implements the HTTP API consumed by the frontend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexus-share/nexus-ledger/config"
	"github.com/nexus-share/nexus-ledger/internal/auth"
	nlog "github.com/nexus-share/nexus-ledger/internal/log"
	"github.com/nexus-share/nexus-ledger/internal/system"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// Server is the HTTP API server.
type Server struct {
	addr        string
	system      *system.System
	accounts    *auth.Store
	server      *http.Server
	ln          net.Listener
	logger      zerolog.Logger
	allowedNets []*net.IPNet // Empty = allow all.
	corsOrigins []string     // Empty = no CORS headers.
}

// New creates an API server. The apiCfg parameter controls IP filtering and
// CORS; a zero-value APIConfig allows all IPs and disables CORS.
func New(addr string, sys *system.System, accounts *auth.Store, apiCfg ...config.APIConfig) *Server {
	s := &Server{
		addr:     addr,
		system:   sys,
		accounts: accounts,
		logger:   nlog.WithComponent("api"),
	}

	if len(apiCfg) > 0 {
		s.allowedNets = parseAllowedIPs(apiCfg[0].AllowedIPs)
		s.corsOrigins = apiCfg[0].CORSOrigins
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", s.guard(s.handleRegister))
	mux.HandleFunc("POST /api/login", s.guard(s.handleLogin))
	mux.HandleFunc("GET /api/user/balance", s.guard(s.handleBalance))
	mux.HandleFunc("GET /api/user/my-files", s.guard(s.handleMyFiles))
	mux.HandleFunc("POST /api/resources/declare", s.guard(s.handleDeclare))
	mux.HandleFunc("POST /api/resources/download", s.guard(s.handleDownload))
	mux.HandleFunc("POST /api/resources/report", s.guard(s.handleReport))
	mux.HandleFunc("GET /api/resources", s.guard(s.handleListResources))
	mux.HandleFunc("GET /api/resources/search", s.guard(s.handleSearch))
	mux.HandleFunc("POST /api/transfer", s.guard(s.handleTransfer))
	mux.HandleFunc("POST /api/mine", s.guard(s.handleMine))
	mux.HandleFunc("GET /api/system/stats", s.guard(s.handleStats))
	mux.HandleFunc("OPTIONS /", s.guard(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// parseAllowedIPs converts string IP/CIDR entries into net.IPNet.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		_, ipNet, err := net.ParseCIDR(entry)
		if err == nil {
			nets = append(nets, ipNet)
			continue
		}
		// Try as a single IP (add /32 or /128).
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Start begins listening and serving in a background goroutine. It returns
// immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// guard wraps a handler with IP filtering and CORS.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowedNets) > 0 {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			ip := net.ParseIP(host)
			if ip == nil || !s.isIPAllowed(ip) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}
		s.setCORSHeaders(w, r)
		next(w, r)
	}
}

// isIPAllowed checks if the IP is in the allowed networks list.
func (s *Server) isIPAllowed(ip net.IP) bool {
	for _, n := range s.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// setCORSHeaders adds CORS headers based on the configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	allowed := false
	for _, o := range s.corsOrigins {
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			allowed = true
			break
		}
		if o == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			allowed = true
			break
		}
	}
	if allowed {
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	}
}

// currentAccount resolves the bearer token on the request, or nil.
func (s *Server) currentAccount(r *http.Request) *auth.Account {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return s.accounts.Authenticate(token)
}

// decodeBody unmarshals a size-limited JSON request body into target.
func decodeBody(r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	return dec.Decode(target)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeMessage writes a {"message": ...} response with the given status.
func writeMessage(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, messageResponse{Message: fmt.Sprintf(format, args...)})
}
