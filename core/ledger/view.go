package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// BatchView is the ledger's own record for a batch, normalized from
// whatever wire shape the node returned. The service only ever reads it;
// all writes go through custody transactions.
type BatchView struct {
	DrugName     string `json:"drugName"`
	BatchID      string `json:"batchId"`
	MfgDate      int64  `json:"mfgDate"`
	ExpDate      int64  `json:"expDate"`
	Manufacturer string `json:"manufacturer"`
	Distributor  string `json:"distributor"`
	Pharmacy     string `json:"pharmacy"`
	State        int    `json:"state"`
}

// StateName maps the contract's integer state code to its custody name.
func (v BatchView) StateName() string {
	switch v.State {
	case 0:
		return "Created"
	case 1:
		return "Shipped"
	case 2:
		return "Received"
	case 3:
		return "Sold"
	}
	return "Unknown"
}

// decodeBatchView normalizes the two wire shapes the node is known to
// emit for getBatch: a positional 8-tuple or a keyed object. A JSON null
// means the ledger has no record (found=false, no error).
func decodeBatchView(raw json.RawMessage) (BatchView, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return BatchView{}, false, nil
	}

	switch trimmed[0] {
	case '[':
		var tuple []json.RawMessage
		if err := json.Unmarshal(trimmed, &tuple); err != nil {
			return BatchView{}, false, fmt.Errorf("decode batch tuple: %w", err)
		}
		if len(tuple) < 8 {
			return BatchView{}, false, fmt.Errorf("batch tuple has %d elements, want 8", len(tuple))
		}
		var v BatchView
		var err error
		if v.DrugName, err = asString(tuple[0]); err != nil {
			return BatchView{}, false, err
		}
		if v.BatchID, err = asString(tuple[1]); err != nil {
			return BatchView{}, false, err
		}
		if v.MfgDate, err = asInt64(tuple[2]); err != nil {
			return BatchView{}, false, err
		}
		if v.ExpDate, err = asInt64(tuple[3]); err != nil {
			return BatchView{}, false, err
		}
		if v.Manufacturer, err = asString(tuple[4]); err != nil {
			return BatchView{}, false, err
		}
		if v.Distributor, err = asString(tuple[5]); err != nil {
			return BatchView{}, false, err
		}
		if v.Pharmacy, err = asString(tuple[6]); err != nil {
			return BatchView{}, false, err
		}
		state, err := asInt64(tuple[7])
		if err != nil {
			return BatchView{}, false, err
		}
		v.State = int(state)
		return v, true, nil

	case '{':
		var keyed struct {
			DrugName     string          `json:"drugName"`
			BatchID      string          `json:"batchId"`
			MfgDate      json.RawMessage `json:"mfgDate"`
			ExpDate      json.RawMessage `json:"expDate"`
			Manufacturer string          `json:"manufacturer"`
			Distributor  string          `json:"distributor"`
			Pharmacy     string          `json:"pharmacy"`
			State        json.RawMessage `json:"state"`
		}
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return BatchView{}, false, fmt.Errorf("decode batch object: %w", err)
		}
		v := BatchView{
			DrugName:     keyed.DrugName,
			BatchID:      keyed.BatchID,
			Manufacturer: keyed.Manufacturer,
			Distributor:  keyed.Distributor,
			Pharmacy:     keyed.Pharmacy,
		}
		var err error
		if v.MfgDate, err = optInt64(keyed.MfgDate); err != nil {
			return BatchView{}, false, err
		}
		if v.ExpDate, err = optInt64(keyed.ExpDate); err != nil {
			return BatchView{}, false, err
		}
		state, err := optInt64(keyed.State)
		if err != nil {
			return BatchView{}, false, err
		}
		v.State = int(state)
		return v, true, nil
	}

	return BatchView{}, false, fmt.Errorf("unrecognized batch encoding: %s", trimmed)
}

func asString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected string, got %s", raw)
	}
	return s, nil
}

// asInt64 accepts both JSON numbers and numeric strings; older node
// builds stringify uint256 values.
func asInt64(raw json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", s)
		}
		return v, nil
	}
	return 0, fmt.Errorf("expected integer, got %s", raw)
}

func optInt64(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, nil
	}
	return asInt64(raw)
}
