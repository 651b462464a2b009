package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeBatchViewTuple(t *testing.T) {
	raw := json.RawMessage(`["Paracetamol","B1",1700000000,1800000000,"0xmfr","0xdist","0xpharm",2]`)
	view, found, err := decodeBatchView(raw)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, BatchView{
		DrugName:     "Paracetamol",
		BatchID:      "B1",
		MfgDate:      1700000000,
		ExpDate:      1800000000,
		Manufacturer: "0xmfr",
		Distributor:  "0xdist",
		Pharmacy:     "0xpharm",
		State:        2,
	}, view)
}

func TestDecodeBatchViewKeyed(t *testing.T) {
	raw := json.RawMessage(`{
		"drugName": "Paracetamol",
		"batchId": "B1",
		"mfgDate": 1700000000,
		"expDate": 1800000000,
		"manufacturer": "0xmfr",
		"distributor": "0xdist",
		"pharmacy": "0xpharm",
		"state": 2
	}`)
	view, found, err := decodeBatchView(raw)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "B1", view.BatchID)
	require.Equal(t, 2, view.State)
}

func TestDecodeBatchViewShapesAgree(t *testing.T) {
	tuple := json.RawMessage(`["D","B",1,2,"m","d","p",3]`)
	keyed := json.RawMessage(`{"drugName":"D","batchId":"B","mfgDate":1,"expDate":2,"manufacturer":"m","distributor":"d","pharmacy":"p","state":3}`)

	vt, _, err := decodeBatchView(tuple)
	require.NoError(t, err)
	vk, _, err := decodeBatchView(keyed)
	require.NoError(t, err)
	require.Equal(t, vt, vk, "both wire shapes must normalize identically")
}

func TestDecodeBatchViewStringifiedNumbers(t *testing.T) {
	raw := json.RawMessage(`["D","B","1700000000","1800000000","m","d","p","1"]`)
	view, found, err := decodeBatchView(raw)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(1700000000), view.MfgDate)
	require.Equal(t, 1, view.State)
}

func TestDecodeBatchViewNullIsNotFound(t *testing.T) {
	_, found, err := decodeBatchView(json.RawMessage(`null`))
	require.NoError(t, err)
	require.False(t, found)
}

func TestDecodeBatchViewShortTuple(t *testing.T) {
	_, _, err := decodeBatchView(json.RawMessage(`["D","B"]`))
	require.Error(t, err)
}

func TestStateName(t *testing.T) {
	require.Equal(t, "Created", BatchView{State: 0}.StateName())
	require.Equal(t, "Sold", BatchView{State: 3}.StateName())
	require.Equal(t, "Unknown", BatchView{State: 9}.StateName())
}
