package store

import (
	"encoding/binary"
	"encoding/json"
	"log"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Durgaprasad-Developer/Pharma-SuplyChain-Verification/core/audit"
)

// AppendTrail appends one audit event to the batch's custody trail. The
// sequence counter and the entry are written in a single LevelDB batch.
func (s *Store) AppendTrail(event audit.Event) error {
	s.trailMu.Lock()
	defer s.trailMu.Unlock()

	seq := uint64(0)
	if data, err := s.db.Get(trailSeqKey(event.BatchNo), nil); err == nil {
		seq = binary.BigEndian.Uint64(data)
	} else if err != leveldb.ErrNotFound {
		return err
	}

	entry, err := json.Marshal(event)
	if err != nil {
		return err
	}
	next := make([]byte, 8)
	binary.BigEndian.PutUint64(next, seq+1)

	batch := new(leveldb.Batch)
	batch.Put(trailKey(event.BatchNo, seq), entry)
	batch.Put(trailSeqKey(event.BatchNo), next)
	return s.db.Write(batch, nil)
}

// AuditTrail returns the batch's custody trail in append order.
func (s *Store) AuditTrail(batchNo string) ([]audit.Event, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte("trail:"+batchNo+":")), nil)
	defer iter.Release()

	var out []audit.Event
	for iter.Next() {
		var ev audit.Event
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, iter.Error()
}

// TrailWriter adapts the store into an audit.Logger so lifecycle and
// verification events land on the persisted trail.
type TrailWriter struct {
	Store *Store
}

func (w *TrailWriter) LogEvent(event audit.Event) {
	if event.BatchNo == "" {
		return
	}
	if err := w.Store.AppendTrail(event); err != nil {
		log.Printf("[WARN] audit trail write failed for batch %s: %v", event.BatchNo, err)
	}
}

var _ audit.Logger = (*TrailWriter)(nil)
