package signing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	data, err := CanonicalJSON(map[string]interface{}{
		"timestamp":        "2024-01-01T00:00:00Z",
		"batch_no":         "B1",
		"name":             "Paracetamol",
		"manufacturer":     "Acme Pharma",
		"manufacture_date": int64(1700000000),
		"expiry_date":      int64(1800000000),
		"current_owner":    "Acme Pharma",
	})
	require.NoError(t, err)

	want := `{"batch_no": "B1", "current_owner": "Acme Pharma", "expiry_date": 1800000000, "manufacture_date": 1700000000, "manufacturer": "Acme Pharma", "name": "Paracetamol", "timestamp": "2024-01-01T00:00:00Z"}`
	require.Equal(t, want, string(data))
}

func TestCanonicalJSONInsertionOrderIrrelevant(t *testing.T) {
	a := map[string]interface{}{}
	a["z_field"] = "last"
	a["a_field"] = "first"
	a["m_field"] = int64(42)

	b := map[string]interface{}{}
	b["m_field"] = int64(42)
	b["a_field"] = "first"
	b["z_field"] = "last"

	ca, err := CanonicalJSON(a)
	require.NoError(t, err)
	cb, err := CanonicalJSON(b)
	require.NoError(t, err)
	require.Equal(t, ca, cb, "structurally equal payloads must canonicalize identically")
}

func TestCanonicalJSONEscapesNonASCII(t *testing.T) {
	data, err := CanonicalJSON(map[string]interface{}{
		"name": "Ibuprofén",
	})
	require.NoError(t, err)
	require.Equal(t, "{\"name\": \"Ibuprof\\u00e9n\"}", string(data))
}

func TestCanonicalJSONFloatsFromDecodedJSON(t *testing.T) {
	// json.Unmarshal turns numbers into float64; integral values must
	// still canonicalize without a fractional part.
	data, err := CanonicalJSON(map[string]interface{}{
		"manufacture_date": float64(1700000000),
	})
	require.NoError(t, err)
	require.Equal(t, `{"manufacture_date": 1700000000}`, string(data))
}

func TestCanonicalJSONRejectsNestedValues(t *testing.T) {
	_, err := CanonicalJSON(map[string]interface{}{
		"nested": map[string]interface{}{"a": 1},
	})
	require.Error(t, err)
}
