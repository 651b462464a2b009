package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/medicine"
)

var (
	ErrDuplicateBatch = errors.New("batch already exists")
	ErrBatchNotFound  = errors.New("batch not found")
)

// Store is the local provenance mirror, keyed by batch number. Every
// mutation here must be the direct result of a ledger submission that
// already succeeded; the store never gets ahead of the chain.
type Store struct {
	db *leveldb.DB

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex // per-batch critical sections

	trailMu sync.Mutex // serializes audit-trail sequence allocation
}

// NewStore opens (or creates) the LevelDB mirror at path.
func NewStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func medicineKey(batchNo string) []byte {
	return []byte("medicine:" + batchNo)
}

func trailKey(batchNo string, seq uint64) []byte {
	return []byte(fmt.Sprintf("trail:%s:%08d", batchNo, seq))
}

func trailSeqKey(batchNo string) []byte {
	return []byte("trailseq:" + batchNo)
}

func partialKey(batchNo string) []byte {
	return []byte("partial:" + batchNo)
}

func (s *Store) batchLock(batchNo string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	mu, ok := s.locks[batchNo]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[batchNo] = mu
	}
	return mu
}

// WithLock runs fn while holding the batch's mutex. The lifecycle
// orchestrator uses this so check-submit-commit for one batch cannot
// interleave with a concurrent transition on the same batch.
func (s *Store) WithLock(batchNo string, fn func() error) error {
	mu := s.batchLock(batchNo)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// Create inserts a new record, failing with ErrDuplicateBatch if the
// batch number is already taken. The existing record is never touched.
func (s *Store) Create(med *medicine.Medicine) error {
	key := medicineKey(med.BatchNo)
	if _, err := s.db.Get(key, nil); err == nil {
		return ErrDuplicateBatch
	} else if err != leveldb.ErrNotFound {
		return err
	}
	data, err := json.Marshal(med)
	if err != nil {
		return err
	}
	return s.db.Put(key, data, nil)
}

// Get returns the record for batchNo or ErrBatchNotFound.
func (s *Store) Get(batchNo string) (*medicine.Medicine, error) {
	data, err := s.db.Get(medicineKey(batchNo), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	var med medicine.Medicine
	if err := json.Unmarshal(data, &med); err != nil {
		return nil, err
	}
	return &med, nil
}

// TransferOwner commits a completed transfer: new owner plus both
// transaction hashes land in one LevelDB batch, and any partial-transfer
// marker for the batch is cleared in the same write. Never partially
// applies.
func (s *Store) TransferOwner(batchNo, newOwner, shipTx, receiveTx string) error {
	med, err := s.Get(batchNo)
	if err != nil {
		return err
	}
	med.CurrentOwner = newOwner
	if shipTx != "" {
		med.ShipTx = shipTx
	}
	med.ReceiveTx = receiveTx
	data, err := json.Marshal(med)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Put(medicineKey(batchNo), data)
	batch.Delete(partialKey(batchNo))
	return s.db.Write(batch, nil)
}

// SetSoldTx records the terminal markSold transaction hash.
func (s *Store) SetSoldTx(batchNo, soldTx string) error {
	med, err := s.Get(batchNo)
	if err != nil {
		return err
	}
	med.SoldTx = soldTx
	data, err := json.Marshal(med)
	if err != nil {
		return err
	}
	return s.db.Put(medicineKey(batchNo), data, nil)
}

// PartialTransfer marks a transfer whose ship leg confirmed but whose
// receive leg failed. It stays on disk until a retry completes the
// transfer, so operators can reconcile manually.
type PartialTransfer struct {
	BatchNo      string    `json:"batch_no"`
	FromOwner    string    `json:"from_owner"`
	ToOwner      string    `json:"to_owner"`
	ShipTx       string    `json:"ship_tx"`
	ReceiveError string    `json:"receive_error"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// MarkPartialTransfer persists the partial-failure marker and the ship
// tx hash on the record (ownership stays unchanged).
func (s *Store) MarkPartialTransfer(p PartialTransfer) error {
	med, err := s.Get(p.BatchNo)
	if err != nil {
		return err
	}
	med.ShipTx = p.ShipTx
	medData, err := json.Marshal(med)
	if err != nil {
		return err
	}
	pData, err := json.Marshal(p)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Put(medicineKey(p.BatchNo), medData)
	batch.Put(partialKey(p.BatchNo), pData)
	return s.db.Write(batch, nil)
}

// GetPartialTransfer returns the pending partial-transfer marker for the
// batch, if any.
func (s *Store) GetPartialTransfer(batchNo string) (*PartialTransfer, bool, error) {
	data, err := s.db.Get(partialKey(batchNo), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var p PartialTransfer
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// List returns every stored record, for the debug endpoint.
func (s *Store) List() ([]*medicine.Medicine, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte("medicine:")), nil)
	defer iter.Release()

	var out []*medicine.Medicine
	for iter.Next() {
		var med medicine.Medicine
		if err := json.Unmarshal(iter.Value(), &med); err != nil {
			return nil, err
		}
		out = append(out, &med)
	}
	return out, iter.Error()
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte("medicine:")), nil)
	defer iter.Release()
	n := 0
	for iter.Next() {
		n++
	}
	return n, iter.Error()
}
