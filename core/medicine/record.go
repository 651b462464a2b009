package medicine

import (
	"errors"
)

// Medicine is the locally mirrored provenance record for one batch.
// The ledger is the source of truth for custody state; this record is
// the source of truth for signed origin data and the scratch card.
type Medicine struct {
	BatchNo          string `json:"batch_no"`
	Name             string `json:"name"`
	Manufacturer     string `json:"manufacturer"`
	ManufactureDate  int64  `json:"manufacture_date"` // unix seconds
	ExpiryDate       int64  `json:"expiry_date"`      // unix seconds
	ScratchCardNo    string `json:"scratch_card_no"`
	DigitalSignature string `json:"digital_signature"` // base64, RSA-PSS over CanonicalFields
	CurrentOwner     string `json:"current_owner"`
	Timestamp        string `json:"timestamp"` // record creation time, RFC3339

	// Ledger transaction hashes, empty until the step has happened.
	CreateTx  string `json:"create_tx"`
	ShipTx    string `json:"ship_tx"`
	ReceiveTx string `json:"receive_tx"`
	SoldTx    string `json:"sold_tx"`
}

// CanonicalFields returns exactly the field set covered by the digital
// signature. Adding or removing a key here invalidates every signature
// issued before the change. The owner at record creation is always the
// manufacturer, so the payload uses it directly; transfers mutate
// CurrentOwner without invalidating the signature.
func (m *Medicine) CanonicalFields() map[string]interface{} {
	return map[string]interface{}{
		"batch_no":         m.BatchNo,
		"name":             m.Name,
		"manufacturer":     m.Manufacturer,
		"manufacture_date": m.ManufactureDate,
		"expiry_date":      m.ExpiryDate,
		"current_owner":    m.Manufacturer,
		"timestamp":        m.Timestamp,
	}
}

var ErrExpiryBeforeManufacture = errors.New("expiry_date must be after manufacture_date")

// CheckDates enforces the only cross-field invariant the record carries.
func (m *Medicine) CheckDates() error {
	if m.ExpiryDate <= m.ManufactureDate {
		return ErrExpiryBeforeManufacture
	}
	return nil
}
