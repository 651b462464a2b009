package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// BaseURL and APIKey are set from the root command's flags.
var (
	BaseURL = "http://localhost:5000"
	APIKey  = ""
)

// Status mirrors the node's /status payload.
type Status struct {
	Status         string `json:"status"`
	Uptime         int64  `json:"uptime"`
	TotalMedicines int    `json:"total_medicines"`
	Version        string `json:"version"`
	APIVersion     string `json:"api_version"`
}

func (s Status) ToJSON() string {
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func GetStatus() (Status, error) {
	resp, err := http.Get(BaseURL + "/status")
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// VerifyResult mirrors the node's verification response.
type VerifyResult struct {
	Success          bool            `json:"success"`
	BatchNo          string          `json:"batch_no"`
	LocalExists      bool            `json:"local_record_exists"`
	SignatureValid   bool            `json:"digital_signature_valid"`
	ScratchCardMatch bool            `json:"scratch_card_match"`
	OnChain          json.RawMessage `json:"onchain"`
	OnChainError     string          `json:"onchain_error"`
	Error            string          `json:"error"`
}

func VerifyMedicine(batchNo, scratchCard string) (VerifyResult, error) {
	var out VerifyResult
	err := postJSON("/api/medicines/verify", map[string]string{
		"batch_no":        batchNo,
		"scratch_card_no": scratchCard,
	}, &out)
	return out, err
}

// AddResult mirrors the node's create response.
type AddResult struct {
	Success          bool   `json:"success"`
	BatchNo          string `json:"batch_no"`
	DigitalSignature string `json:"digital_signature"`
	BlockchainTx     string `json:"blockchain_tx"`
	Error            string `json:"error"`
}

func AddMedicine(payload map[string]interface{}) (AddResult, error) {
	var out AddResult
	err := postJSON("/api/medicines", payload, &out)
	return out, err
}

// TransferResult mirrors the node's transfer response.
type TransferResult struct {
	Success   bool   `json:"success"`
	BatchNo   string `json:"batch_no"`
	From      string `json:"from"`
	To        string `json:"to"`
	TxShip    string `json:"tx_ship"`
	TxReceive string `json:"tx_receive"`
	Error     string `json:"error"`
}

func TransferMedicine(batchNo, toOwner, scratchCard string) (TransferResult, error) {
	var out TransferResult
	err := postJSON("/api/medicines/transfer", map[string]string{
		"batch_no":        batchNo,
		"to_owner":        toOwner,
		"scratch_card_no": scratchCard,
	}, &out)
	return out, err
}

// SoldResult mirrors the node's markSold response.
type SoldResult struct {
	Success bool   `json:"success"`
	BatchNo string `json:"batch_no"`
	TxSold  string `json:"tx_sold"`
	Error   string `json:"error"`
}

func MarkSold(batchNo, scratchCard string) (SoldResult, error) {
	var out SoldResult
	err := postJSON("/api/medicines/sold", map[string]string{
		"batch_no":        batchNo,
		"scratch_card_no": scratchCard,
	}, &out)
	return out, err
}

// Trail mirrors the node's audit-trail response.
type Trail struct {
	Success bool              `json:"success"`
	BatchNo string            `json:"batch_no"`
	Trail   []json.RawMessage `json:"trail"`
	Partial json.RawMessage   `json:"partial_transfer"`
	Error   string            `json:"error"`
}

func GetAuditTrail(batchNo string) (Trail, error) {
	resp, err := http.Get(BaseURL + "/api/medicines/" + batchNo + "/audit")
	if err != nil {
		return Trail{}, err
	}
	defer resp.Body.Close()
	var out Trail
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Trail{}, err
	}
	return out, nil
}

func postJSON(path string, payload interface{}, out interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if APIKey != "" {
		req.Header.Set("X-API-Key", APIKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}
