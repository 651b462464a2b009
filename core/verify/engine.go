package verify

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/audit"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/ledger"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/signing"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/store"
)

// Result is the combined verification verdict. The four legs are
// independent: a valid local record with an unreachable ledger and a
// wrong scratch card are all visible at once, nothing short-circuits.
type Result struct {
	BatchNo          string            `json:"batch_no"`
	LocalExists      bool              `json:"local_record_exists"`
	SignatureValid   bool              `json:"digital_signature_valid"`
	ScratchCardMatch bool              `json:"scratch_card_match"`
	Ledger           *ledger.BatchView `json:"onchain"`                 // nil when unavailable or absent
	LedgerError      string            `json:"onchain_error,omitempty"` // why Ledger is nil, if a read was attempted and failed
	VerifiedAt       time.Time         `json:"verified_at"`
}

// LedgerReader is the read-only slice of the ledger client the engine
// needs.
type LedgerReader interface {
	GetBatch(ctx context.Context, batchID string) (ledger.BatchView, bool, error)
}

// Engine reconciles the local mirror, the record signature, the scratch
// card and a best-effort ledger read into one Result.
type Engine struct {
	Store              *store.Store
	Signer             *signing.Signer
	Ledger             LedgerReader
	Audit              audit.Logger
	LedgerCheckTimeout time.Duration
}

// Verify never mutates anything and never fails outright: a missing
// record or a dead ledger node is reported inside the Result.
func (e *Engine) Verify(ctx context.Context, batchNo, presentedCard string) (Result, error) {
	res := Result{
		BatchNo:    batchNo,
		VerifiedAt: time.Now().UTC(),
	}

	med, err := e.Store.Get(batchNo)
	switch {
	case err == nil:
		res.LocalExists = true
		res.SignatureValid = e.Signer.Verify(med.CanonicalFields(), med.DigitalSignature)
		// Exact, case-sensitive match. The scratch card is an opaque
		// out-of-band secret, no normalization applies.
		res.ScratchCardMatch = med.ScratchCardNo == presentedCard
	case errors.Is(err, store.ErrBatchNotFound):
		// Absence is part of the verdict, not an error.
	default:
		return Result{}, err
	}

	res.Ledger, res.LedgerError = e.readLedger(ctx, batchNo)

	if e.Audit != nil {
		e.Audit.LogEvent(audit.NewEvent("Verification", batchNo, "", verdict(res), res.LedgerError))
	}
	return res, nil
}

// readLedger queries the chain with its own timeout so a slow node
// degrades the verdict instead of blocking it.
func (e *Engine) readLedger(ctx context.Context, batchNo string) (*ledger.BatchView, string) {
	timeout := e.LedgerCheckTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	view, found, err := e.Ledger.GetBatch(lctx, batchNo)
	if err != nil {
		log.Printf("[WARN] ledger read for batch %s unavailable: %v", batchNo, err)
		return nil, err.Error()
	}
	if !found {
		return nil, ""
	}
	return &view, ""
}

func verdict(res Result) string {
	if res.LocalExists && res.SignatureValid && res.ScratchCardMatch {
		return "success"
	}
	return "failure"
}

var _ LedgerReader = (*ledger.Client)(nil)
