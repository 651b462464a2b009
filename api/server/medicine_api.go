package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/ledger"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/lifecycle"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/medicine"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/store"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/validation"
)

// Handler for adding a medicine batch (create + sign + anchor on chain)
func (s *Server) handleAddMedicine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "invalid method")
		return
	}
	MedicineCreateTotal.Inc()
	start := time.Now()

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := validation.ValidateMedicinePayload(bodyBytes); err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req struct {
		BatchNo         string `json:"batch_no"`
		Name            string `json:"name"`
		Manufacturer    string `json:"manufacturer"`
		ManufactureDate int64  `json:"manufacture_date"`
		ExpiryDate      int64  `json:"expiry_date"`
		ScratchCardNo   string `json:"scratch_card_no"`
		Distributor     string `json:"distributor"`
	}
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	result, err := s.orchestrator.Create(r.Context(), lifecycle.CreateRequest{
		BatchNo:         req.BatchNo,
		Name:            req.Name,
		Manufacturer:    req.Manufacturer,
		ManufactureDate: req.ManufactureDate,
		ExpiryDate:      req.ExpiryDate,
		ScratchCardNo:   req.ScratchCardNo,
		Distributor:     req.Distributor,
	})
	if err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	MedicineCreateDuration.Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":           true,
		"message":           "Medicine added successfully",
		"batch_no":          result.Medicine.BatchNo,
		"digital_signature": result.Medicine.DigitalSignature,
		"blockchain_tx":     result.CreateTx,
	})
}

// Handler for verifying a medicine batch against store, signature,
// scratch card and chain
func (s *Server) handleVerifyMedicine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "invalid method")
		return
	}
	VerificationTotal.Inc()

	var req struct {
		BatchNo       string `json:"batch_no"`
		ScratchCardNo string `json:"scratch_card_no"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validation.ValidateRequiredStrings(map[string]string{
		"batch_no":        req.BatchNo,
		"scratch_card_no": req.ScratchCardNo,
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.Verify(r.Context(), req.BatchNo, req.ScratchCardNo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !result.SignatureValid || !result.ScratchCardMatch {
		VerificationFailedTotal.Inc()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":                 true,
		"batch_no":                result.BatchNo,
		"local_record_exists":     result.LocalExists,
		"digital_signature_valid": result.SignatureValid,
		"scratch_card_match":      result.ScratchCardMatch,
		"onchain":                 result.Ledger,
		"onchain_error":           result.LedgerError,
		"verified_at":             result.VerifiedAt.Format(time.RFC3339),
	})
}

// Handler for transferring custody (ship then receive on chain)
func (s *Server) handleTransferMedicine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "invalid method")
		return
	}
	TransferTotal.Inc()

	var req struct {
		BatchNo       string `json:"batch_no"`
		ToOwner       string `json:"to_owner"`
		ScratchCardNo string `json:"scratch_card_no"`
		Pharmacy      string `json:"pharmacy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validation.ValidateRequiredStrings(map[string]string{
		"batch_no":        req.BatchNo,
		"to_owner":        req.ToOwner,
		"scratch_card_no": req.ScratchCardNo,
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.orchestrator.Transfer(r.Context(), lifecycle.TransferRequest{
		BatchNo:       req.BatchNo,
		ToOwner:       req.ToOwner,
		ScratchCardNo: req.ScratchCardNo,
		Pharmacy:      req.Pharmacy,
	})
	if err != nil {
		s.writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":            true,
		"message":            "Ownership transferred",
		"batch_no":           result.BatchNo,
		"from":               result.FromOwner,
		"to":                 result.ToOwner,
		"transfer_signature": result.TransferSignature,
		"tx_ship":            result.ShipTx,
		"tx_receive":         result.ReceiveTx,
	})
}

// Handler for the terminal markSold transition
func (s *Server) handleMarkSold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "invalid method")
		return
	}

	var req struct {
		BatchNo       string `json:"batch_no"`
		ScratchCardNo string `json:"scratch_card_no"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validation.ValidateRequiredStrings(map[string]string{
		"batch_no":        req.BatchNo,
		"scratch_card_no": req.ScratchCardNo,
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	soldTx, err := s.orchestrator.MarkSold(r.Context(), req.BatchNo, req.ScratchCardNo)
	if err != nil {
		s.writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Batch marked sold",
		"batch_no": req.BatchNo,
		"tx_sold":  soldTx,
	})
}

// handleMedicineSubroutes serves GET /api/medicines/{batch}/audit.
func (s *Server) handleMedicineSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/medicines/")
	parts := strings.Split(rest, "/")
	if len(parts) == 2 && parts[1] == "audit" {
		s.handleAuditTrail(w, r, parts[0])
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request, batchNo string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "invalid method")
		return
	}
	if _, err := s.store.Get(batchNo); err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	trail, err := s.store.AuditTrail(batchNo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	partial, hasPartial, err := s.store.GetPartialTransfer(batchNo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"success":  true,
		"batch_no": batchNo,
		"trail":    trail,
	}
	if hasPartial {
		resp["partial_transfer"] = partial
	}
	writeJSON(w, http.StatusOK, resp)
}

// Debug dump of every local record
func (s *Server) handleDebugMedicines(w http.ResponseWriter, r *http.Request) {
	meds, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make(map[string]interface{}, len(meds))
	for _, med := range meds {
		out[med.BatchNo] = map[string]interface{}{
			"record": med,
			"state":  medicine.StateOf(med).String(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Serves the manufacturer public key so external parties can verify
// record signatures themselves.
func (s *Server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	pemStr, err := s.signer.PublicKeyPEM()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"public_key": pemStr,
	})
}

// writeLifecycleError maps core errors onto boundary responses.
func (s *Server) writeLifecycleError(w http.ResponseWriter, err error) {
	var perr *lifecycle.PartialTransferError
	switch {
	case errors.Is(err, store.ErrDuplicateBatch):
		writeError(w, http.StatusConflict, "Batch already exists")
	case errors.Is(err, store.ErrBatchNotFound):
		writeError(w, http.StatusNotFound, "Batch not found")
	case errors.Is(err, lifecycle.ErrScratchCardMismatch):
		writeError(w, http.StatusBadRequest, "Scratch card mismatch")
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, medicine.ErrExpiryBeforeManufacture):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &perr):
		LedgerSubmissionFailedTotal.Inc()
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"success":       false,
			"error":         "Partial transfer: ship confirmed but receive failed, retry to complete",
			"batch_no":      perr.BatchNo,
			"tx_ship":       perr.ShipTx,
			"receive_error": perr.ReceiveErr.Error(),
		})
	default:
		var serr *ledger.SubmissionError
		if errors.As(err, &serr) {
			LedgerSubmissionFailedTotal.Inc()
			writeError(w, http.StatusBadGateway, "Blockchain operation failed: "+serr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
