package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/api/server"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/audit"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/ledger"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/lifecycle"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/signing"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/store"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/verify"
)

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	godotenv.Load("Pharma.env")

	// Log to file as well as stdout
	os.MkdirAll("logs", 0o755)
	logFile, err := os.OpenFile("logs/pharmanode.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	fmt.Println("🚀 Starting Pharma Supply Chain Node", server.NodeVersion())

	// === Manufacturer Signing Key ===
	signer, err := signing.NewSigner(envOr("SIGNING_KEY_DIR", "keys"))
	if err != nil {
		log.Fatalf("❌ Key material fault: %v", err)
	}

	// === Ledger Account + Client ===
	account, err := ledger.LoadOrGenerateAccount(envOr("LEDGER_KEY_DIR", "keys"))
	if err != nil {
		log.Fatalf("❌ Failed to load/generate ledger account key: %v", err)
	}
	fmt.Println("🔐 Ledger account:", account.Address)

	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		log.Fatal("❌ RPC_URL missing in env")
	}
	contract := os.Getenv("LEDGER_CONTRACT")
	if contract == "" {
		log.Fatal("❌ LEDGER_CONTRACT missing in env")
	}

	client, err := ledger.Dial(ledger.Config{
		RPCURL:             rpcURL,
		ChainID:            envInt64("CHAIN_ID", 80002),
		Contract:           contract,
		GasLimit:           uint64(envInt64("GAS_LIMIT", 500000)),
		MaxFeeGwei:         envInt64("MAX_FEE_GWEI", 70),
		MaxPriorityFeeGwei: envInt64("MAX_PRIORITY_FEE_GWEI", 30),
		ReceiptTimeout:     time.Duration(envInt64("RECEIPT_TIMEOUT_MS", 30000)) * time.Millisecond,
	}, account)
	if err != nil {
		log.Fatalf("❌ Could not connect to ledger: %v", err)
	}

	// === Provenance Store ===
	st, err := store.NewStore(envOr("DB_PATH", "data/pharmadb"))
	if err != nil {
		log.Fatalf("❌ Failed to open provenance store: %v", err)
	}
	defer st.Close()

	// Audit events go to stdout and onto the persisted per-batch trail.
	auditLogger := audit.MultiLogger{
		audit.NewStdoutLogger(),
		&store.TrailWriter{Store: st},
	}

	orchestrator := &lifecycle.Orchestrator{
		Store:  st,
		Signer: signer,
		Ledger: client,
		Audit:  auditLogger,
	}
	engine := &verify.Engine{
		Store:  st,
		Signer: signer,
		Ledger: client,
		Audit:  auditLogger,
	}

	server.RegisterMetrics()
	listenAddr := ":" + envOr("SERVER_PORT", "5000")
	srv := server.NewServer(st, signer, client, orchestrator, engine, listenAddr)

	if err := srv.Start(); err != nil {
		log.Fatalf("❌ API server stopped: %v", err)
	}
}
