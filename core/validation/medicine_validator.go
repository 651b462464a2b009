package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError is a malformed-input rejection. Requests failing here
// never reach the signer, the ledger or the store.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func getSchemaPath() string {
	path := filepath.Join("core", "validation", "schemas", "medicine_record_schema_v1.json")
	if env := os.Getenv("MEDICINE_SCHEMA_PATH"); env != "" {
		path = env
	}
	// The file:// loader wants an absolute path.
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// ValidateMedicinePayload validates a raw add-medicine JSON payload
// against the schema and the cross-field rules the schema cannot express.
func ValidateMedicinePayload(payload []byte) error {
	var rec map[string]interface{}
	if err := json.Unmarshal(payload, &rec); err != nil {
		return &ValidationError{Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}

	schemaLoader := gojsonschema.NewReferenceLoader("file://" + getSchemaPath())
	documentLoader := gojsonschema.NewBytesLoader(payload)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		errStr := ""
		for _, e := range result.Errors() {
			errStr += e.String() + "; "
		}
		AuditValidationError("schema_check", errStr)
		return &ValidationError{Msg: fmt.Sprintf("payload failed schema validation: %s", errStr)}
	}

	// expiry must be strictly after manufacture; the schema only bounds
	// each field on its own.
	mfg, _ := rec["manufacture_date"].(float64)
	exp, _ := rec["expiry_date"].(float64)
	if exp <= mfg {
		AuditValidationError("date_check", "expiry_date not after manufacture_date")
		return &ValidationError{Msg: "expiry_date must be after manufacture_date"}
	}

	return nil
}

// ValidateRequiredStrings checks a decoded request for missing fields,
// for the endpoints that take small fixed payloads instead of records.
func ValidateRequiredStrings(fields map[string]string) error {
	for name, val := range fields {
		if val == "" {
			return &ValidationError{Msg: "missing field: " + name}
		}
	}
	return nil
}
