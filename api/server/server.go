package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/ledger"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/lifecycle"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/signing"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/store"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/verify"

	// Load env vars from Pharma.env for local/dev
	_ "github.com/joho/godotenv/autoload"
)

import "github.com/joho/godotenv"

func init() {
	godotenv.Load("Pharma.env")
}

// --- Environment Variable Config ---
// All sensitive/configurable values are loaded from environment variables.
// See Pharma.env for variable names and dummy values.

var (
	apiKey      = os.Getenv("API_KEY")      // API key for operator endpoints
	jwtSecret   = os.Getenv("JWT_SECRET")   // JWT secret for operator tokens
	adminUser   = os.Getenv("ADMIN_USER")   // operator login
	adminPass   = os.Getenv("ADMIN_PASS")   // operator password
	enableHTTPS = os.Getenv("ENABLE_HTTPS") // Enable HTTPS (true/false)
	tlsCertPath = os.Getenv("TLS_CERT_PATH")
	tlsKeyPath  = os.Getenv("TLS_KEY_PATH")
)

type Server struct {
	store        *store.Store
	signer       *signing.Signer
	ledgerClient *ledger.Client
	orchestrator *lifecycle.Orchestrator
	engine       *verify.Engine
	ListenAddr   string
}

func NewServer(st *store.Store, signer *signing.Signer, lc *ledger.Client, orch *lifecycle.Orchestrator, engine *verify.Engine, listenAddr string) *Server {
	return &Server{
		store:        st,
		signer:       signer,
		ledgerClient: lc,
		orchestrator: orch,
		engine:       engine,
		ListenAddr:   listenAddr,
	}
}

func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/api/health", s.HandleHealth)
	mux.HandleFunc("/health/liveness", s.HandleLiveness)
	mux.HandleFunc("/health/readiness", s.HandleReadiness)
	mux.HandleFunc("/status", s.HandleStatus)
	mux.HandleFunc("/nodemetrics", s.HandleNodeMetrics)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/publickey", s.handlePublicKey)

	mux.HandleFunc("/api/medicines/verify", s.handleVerifyMedicine)
	mux.HandleFunc("/api/medicines/transfer", s.requireAuth(s.handleTransferMedicine))
	mux.HandleFunc("/api/medicines/sold", s.requireAuth(s.handleMarkSold))
	mux.HandleFunc("/api/medicines/", s.handleMedicineSubroutes) // /api/medicines/{batch}/audit
	mux.HandleFunc("/api/medicines", s.requireAuth(s.handleAddMedicine))

	mux.HandleFunc("/api/debug/medicines", s.requireAuth(s.handleDebugMedicines))

	fmt.Println("API server listening at", s.ListenAddr)

	if enableHTTPS == "true" {
		fmt.Println("[HTTPS] Enabled. Using cert:", tlsCertPath, "key:", tlsKeyPath)
		return http.ListenAndServeTLS(s.ListenAddr, tlsCertPath, tlsKeyPath, mux)
	}
	fmt.Println("[HTTPS] Disabled. Serving HTTP only!")
	return http.ListenAndServe(s.ListenAddr, mux)
}

// requireAuth enforces either a valid operator JWT or the static API key
// on mutating endpoints.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		xApiKey := r.Header.Get("X-API-Key")

		jwtValid := false
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			jwtValid = err == nil && token.Valid
		}
		apiKeyValid := xApiKey != "" && apiKey != "" && xApiKey == apiKey

		if !jwtValid && !apiKeyValid {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Pharma Supply Chain API Ready",
		"version": NodeVersion(),
	})
}

// --- Response helpers ---
// Every boundary response carries a success flag; internal errors never
// leak stack traces, only a message.

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}
