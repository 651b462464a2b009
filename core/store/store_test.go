package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/audit"
	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/medicine"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleMedicine(batchNo string) *medicine.Medicine {
	return &medicine.Medicine{
		BatchNo:          batchNo,
		Name:             "Paracetamol",
		Manufacturer:     "Acme Pharma",
		ManufactureDate:  1700000000,
		ExpiryDate:       1800000000,
		ScratchCardNo:    "SC-123",
		DigitalSignature: "c2ln",
		CurrentOwner:     "Acme Pharma",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		CreateTx:         "0xaaa",
	}
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Create(sampleMedicine("B1")))
	got, err := s.Get("B1")
	require.NoError(t, err)
	require.Equal(t, "Paracetamol", got.Name)
	require.Equal(t, "Acme Pharma", got.CurrentOwner)
}

func TestCreateRejectsDuplicateWithoutOverwriting(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Create(sampleMedicine("B1")))

	dup := sampleMedicine("B1")
	dup.Name = "Counterfeit"
	require.ErrorIs(t, s.Create(dup), ErrDuplicateBatch)

	got, err := s.Get("B1")
	require.NoError(t, err)
	require.Equal(t, "Paracetamol", got.Name, "original record must survive a duplicate insert")
}

func TestGetUnknownBatch(t *testing.T) {
	s := testStore(t)
	_, err := s.Get("nope")
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestTransferOwnerCommitsAtomically(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Create(sampleMedicine("B1")))

	require.NoError(t, s.TransferOwner("B1", "City Pharmacy", "0xship", "0xrecv"))

	got, err := s.Get("B1")
	require.NoError(t, err)
	require.Equal(t, "City Pharmacy", got.CurrentOwner)
	require.Equal(t, "0xship", got.ShipTx)
	require.Equal(t, "0xrecv", got.ReceiveTx)
}

func TestTransferOwnerUnknownBatch(t *testing.T) {
	s := testStore(t)
	require.ErrorIs(t, s.TransferOwner("nope", "x", "0x1", "0x2"), ErrBatchNotFound)
}

func TestPartialTransferMarkerLifecycle(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Create(sampleMedicine("B1")))

	_, found, err := s.GetPartialTransfer("B1")
	require.NoError(t, err)
	require.False(t, found)

	marker := PartialTransfer{
		BatchNo:      "B1",
		FromOwner:    "Acme Pharma",
		ToOwner:      "City Pharmacy",
		ShipTx:       "0xship",
		ReceiveError: "receipt poll timed out",
		OccurredAt:   time.Now().UTC(),
	}
	require.NoError(t, s.MarkPartialTransfer(marker))

	// Ownership stays with the sender, but the ship hash is recorded.
	med, err := s.Get("B1")
	require.NoError(t, err)
	require.Equal(t, "Acme Pharma", med.CurrentOwner)
	require.Equal(t, "0xship", med.ShipTx)
	require.Empty(t, med.ReceiveTx)

	got, found, err := s.GetPartialTransfer("B1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "City Pharmacy", got.ToOwner)
	require.Equal(t, "receipt poll timed out", got.ReceiveError)

	// Completing the transfer clears the marker in the same write.
	require.NoError(t, s.TransferOwner("B1", "City Pharmacy", "", "0xrecv"))
	med, err = s.Get("B1")
	require.NoError(t, err)
	require.Equal(t, "0xship", med.ShipTx, "ship hash persists through the retry")
	_, found, err = s.GetPartialTransfer("B1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSetSoldTx(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Create(sampleMedicine("B1")))
	require.NoError(t, s.SetSoldTx("B1", "0xsold"))

	got, err := s.Get("B1")
	require.NoError(t, err)
	require.Equal(t, "0xsold", got.SoldTx)
}

func TestListAndCount(t *testing.T) {
	s := testStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Create(sampleMedicine(fmt.Sprintf("B%d", i))))
	}

	all, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 5)

	n, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

func TestWithLockSerializesSameBatch(t *testing.T) {
	s := testStore(t)

	var inside int32
	var maxSeen int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.WithLock("B1", func() error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), maxSeen, "at most one critical section per batch at a time")
}

func TestAppendTrailOrderedAndIsolatedPerBatch(t *testing.T) {
	s := testStore(t)

	for i := 0; i < 3; i++ {
		ev := audit.NewEvent("TRANSFER", "B1", "tester", "success", "")
		ev.Reason = fmt.Sprintf("step-%d", i)
		require.NoError(t, s.AppendTrail(ev))
	}
	require.NoError(t, s.AppendTrail(audit.NewEvent("CREATE", "B2", "tester", "success", "")))

	trail, err := s.AuditTrail("B1")
	require.NoError(t, err)
	require.Len(t, trail, 3)
	for i, ev := range trail {
		require.Equal(t, fmt.Sprintf("step-%d", i), ev.Reason, "trail must preserve append order")
	}

	other, err := s.AuditTrail("B2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	require.Equal(t, "CREATE", other[0].EventType)
}

func TestTrailWriterSkipsEventsWithoutBatch(t *testing.T) {
	s := testStore(t)
	w := &TrailWriter{Store: s}

	w.LogEvent(audit.NewEvent("LOGIN", "", "admin", "success", ""))
	w.LogEvent(audit.NewEvent("CREATE", "B1", "admin", "success", ""))

	trail, err := s.AuditTrail("B1")
	require.NoError(t, err)
	require.Len(t, trail, 1)
}
