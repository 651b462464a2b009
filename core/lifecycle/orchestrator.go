package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/audit"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/ledger"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/medicine"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/signing"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/store"
)

var (
	ErrScratchCardMismatch = errors.New("scratch card mismatch")
	ErrInvalidTransition   = errors.New("custody state does not allow this transition")
)

// PartialTransferError reports the two-step transfer's genuine failure
// mode: the ship leg confirmed on chain but the receive leg did not.
// Ownership is left unchanged and the marker is persisted; a retry
// completes only the receive leg.
type PartialTransferError struct {
	BatchNo    string
	ShipTx     string
	ReceiveErr error
}

func (e *PartialTransferError) Error() string {
	return fmt.Sprintf("partial transfer for batch %s: ship tx %s confirmed, receive failed: %v", e.BatchNo, e.ShipTx, e.ReceiveErr)
}

func (e *PartialTransferError) Unwrap() error { return e.ReceiveErr }

// LedgerSubmitter is the write-side slice of the ledger client the
// orchestrator needs.
type LedgerSubmitter interface {
	Submit(ctx context.Context, op ledger.Op, args ...interface{}) (string, error)
	SubmitAndWait(ctx context.Context, op ledger.Op, args ...interface{}) (string, error)
	AccountAddress() string
}

// Orchestrator drives batch creation and custody transitions. The
// contract everywhere is ledger-first: the store is only mutated after
// the corresponding ledger submission succeeded, under the batch lock.
type Orchestrator struct {
	Store  *store.Store
	Signer *signing.Signer
	Ledger LedgerSubmitter
	Audit  audit.Logger
}

type CreateRequest struct {
	BatchNo         string
	Name            string
	Manufacturer    string
	ManufactureDate int64
	ExpiryDate      int64
	ScratchCardNo   string
	Distributor     string // ledger address; defaults to the node account
}

type CreateResult struct {
	Medicine *medicine.Medicine
	CreateTx string
}

// Create mints the signed provenance record and anchors the batch on the
// ledger before inserting it locally.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	med := &medicine.Medicine{
		BatchNo:         req.BatchNo,
		Name:            req.Name,
		Manufacturer:    req.Manufacturer,
		ManufactureDate: req.ManufactureDate,
		ExpiryDate:      req.ExpiryDate,
		ScratchCardNo:   req.ScratchCardNo,
		CurrentOwner:    req.Manufacturer,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
	if err := med.CheckDates(); err != nil {
		return nil, err
	}

	distributor := req.Distributor
	if distributor == "" {
		distributor = o.Ledger.AccountAddress()
	}

	var result *CreateResult
	err := o.Store.WithLock(req.BatchNo, func() error {
		if _, err := o.Store.Get(req.BatchNo); err == nil {
			return store.ErrDuplicateBatch
		} else if !errors.Is(err, store.ErrBatchNotFound) {
			return err
		}

		sig, err := o.Signer.Sign(med.CanonicalFields())
		if err != nil {
			return fmt.Errorf("sign record: %w", err)
		}
		med.DigitalSignature = sig

		txHash, err := o.Ledger.Submit(ctx, ledger.OpCreateBatch,
			med.BatchNo, med.Name, med.ManufactureDate, med.ExpiryDate, distributor)
		if err != nil {
			o.logEvent("BatchCreate", med.BatchNo, med.Manufacturer, "failure", err.Error())
			return err
		}

		med.CreateTx = txHash
		if err := o.Store.Create(med); err != nil {
			// The chain accepted the batch but the mirror write failed.
			// Surface it loudly, the next read will re-check the chain.
			log.Printf("[WARN] batch %s anchored as %s but local insert failed: %v", med.BatchNo, txHash, err)
			return err
		}
		result = &CreateResult{Medicine: med, CreateTx: txHash}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.logEvent("BatchCreate", med.BatchNo, med.Manufacturer, "success", "create tx "+med.CreateTx)
	return result, nil
}

type TransferRequest struct {
	BatchNo       string
	ToOwner       string
	ScratchCardNo string
	Pharmacy      string // ledger address; defaults to the node account
}

type TransferResult struct {
	BatchNo           string
	FromOwner         string
	ToOwner           string
	ShipTx            string
	ReceiveTx         string
	TransferSignature string
}

// Transfer runs the compound ship+receive transition. Both legs use the
// receipt-waiting submission mode: the second leg only makes sense once
// the first is actually on chain, and the commit must know both
// outcomes. A batch left in the partial state by an earlier attempt
// retries only the receive leg.
func (o *Orchestrator) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	pharmacy := req.Pharmacy
	if pharmacy == "" {
		pharmacy = o.Ledger.AccountAddress()
	}

	var result *TransferResult
	err := o.Store.WithLock(req.BatchNo, func() error {
		med, err := o.Store.Get(req.BatchNo)
		if err != nil {
			return err
		}
		if med.ScratchCardNo != req.ScratchCardNo {
			o.logEvent("Transfer", req.BatchNo, req.ToOwner, "failure", "scratch card mismatch")
			return ErrScratchCardMismatch
		}

		fromOwner := med.CurrentOwner
		state := medicine.StateOf(med)
		partial, havePartial, err := o.Store.GetPartialTransfer(req.BatchNo)
		if err != nil {
			return err
		}
		if state >= medicine.StateReceived {
			return fmt.Errorf("%w: batch %s is already %s", ErrInvalidTransition, req.BatchNo, state)
		}
		if state == medicine.StateShipped && !havePartial {
			return fmt.Errorf("%w: batch %s is already %s", ErrInvalidTransition, req.BatchNo, state)
		}

		transferSig, err := o.Signer.Sign(map[string]interface{}{
			"batch_no":   req.BatchNo,
			"from_owner": fromOwner,
			"to_owner":   req.ToOwner,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("sign transfer: %w", err)
		}

		shipTx := ""
		if havePartial {
			shipTx = partial.ShipTx
			log.Printf("[LEDGER] batch %s: resuming partial transfer, ship tx %s already confirmed", req.BatchNo, shipTx)
		} else {
			shipTx, err = o.Ledger.SubmitAndWait(ctx, ledger.OpShip, req.BatchNo)
			if err != nil {
				o.logEvent("Transfer", req.BatchNo, req.ToOwner, "failure", err.Error())
				return err
			}
		}

		receiveTx, err := o.Ledger.SubmitAndWait(ctx, ledger.OpReceiveAtPharmacy, req.BatchNo, pharmacy)
		if err != nil {
			perr := &PartialTransferError{BatchNo: req.BatchNo, ShipTx: shipTx, ReceiveErr: err}
			mark := store.PartialTransfer{
				BatchNo:      req.BatchNo,
				FromOwner:    fromOwner,
				ToOwner:      req.ToOwner,
				ShipTx:       shipTx,
				ReceiveError: err.Error(),
				OccurredAt:   time.Now().UTC(),
			}
			if merr := o.Store.MarkPartialTransfer(mark); merr != nil {
				log.Printf("[WARN] could not persist partial-transfer marker for %s: %v", req.BatchNo, merr)
			}
			o.logEvent("Transfer", req.BatchNo, req.ToOwner, "partial", perr.Error())
			return perr
		}

		// Re-validate before commit: the owner read at the top must still
		// hold. A stale confirmation must not overwrite newer state.
		cur, err := o.Store.Get(req.BatchNo)
		if err != nil {
			return err
		}
		if cur.CurrentOwner != fromOwner {
			o.logEvent("Transfer", req.BatchNo, req.ToOwner, "failure", "owner changed during transfer, commit dropped")
			return fmt.Errorf("%w: owner changed during transfer of batch %s", ErrInvalidTransition, req.BatchNo)
		}
		if err := o.Store.TransferOwner(req.BatchNo, req.ToOwner, shipTx, receiveTx); err != nil {
			return err
		}
		result = &TransferResult{
			BatchNo:           req.BatchNo,
			FromOwner:         fromOwner,
			ToOwner:           req.ToOwner,
			ShipTx:            shipTx,
			ReceiveTx:         receiveTx,
			TransferSignature: transferSig,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.logEvent("Transfer", req.BatchNo, result.ToOwner, "success",
		fmt.Sprintf("owner %s -> %s", result.FromOwner, result.ToOwner))
	return result, nil
}

// MarkSold runs the terminal transition. Ledger-first like everything
// else; only a Received batch can be sold.
func (o *Orchestrator) MarkSold(ctx context.Context, batchNo, scratchCardNo string) (string, error) {
	var soldTx string
	err := o.Store.WithLock(batchNo, func() error {
		med, err := o.Store.Get(batchNo)
		if err != nil {
			return err
		}
		if med.ScratchCardNo != scratchCardNo {
			o.logEvent("MarkSold", batchNo, med.CurrentOwner, "failure", "scratch card mismatch")
			return ErrScratchCardMismatch
		}
		if state := medicine.StateOf(med); !state.CanTransition(medicine.StateSold) {
			return fmt.Errorf("%w: batch %s is %s", ErrInvalidTransition, batchNo, state)
		}

		tx, err := o.Ledger.SubmitAndWait(ctx, ledger.OpMarkSold, batchNo)
		if err != nil {
			o.logEvent("MarkSold", batchNo, med.CurrentOwner, "failure", err.Error())
			return err
		}
		if err := o.Store.SetSoldTx(batchNo, tx); err != nil {
			return err
		}
		soldTx = tx
		return nil
	})
	if err != nil {
		return "", err
	}
	o.logEvent("MarkSold", batchNo, "", "success", "sold tx "+soldTx)
	return soldTx, nil
}

func (o *Orchestrator) logEvent(eventType, batchNo, actor, result, reason string) {
	if o.Audit == nil {
		return
	}
	o.Audit.LogEvent(audit.NewEvent(eventType, batchNo, actor, result, reason))
}

var _ LedgerSubmitter = (*ledger.Client)(nil)
