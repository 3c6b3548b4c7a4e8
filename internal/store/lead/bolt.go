package lead

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"

	bolt "go.etcd.io/bbolt"

	model "github.com/zhouzirui/tgl-chat/backend/internal/model/lead"
)

var leadsBucket = []byte("leads")

// BoltStore keeps leads in a local bbolt file, keyed by insertion sequence.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates with 0600) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(leadsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create leads bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Add stamps l and writes it under the next sequence number.
func (b *BoltStore) Add(_ context.Context, l model.Lead) (model.Record, error) {
	rec := newRecord(l)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(leadsBucket)

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}

		v, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal lead: %w", err)
		}

		return bucket.Put(sequenceKey(seq), v)
	})
	if err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

// List returns stored leads, newest first.
func (b *BoltStore) List(context.Context) ([]model.Record, error) {
	var records []model.Record
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(leadsBucket).ForEach(func(_, v []byte) error {
			var rec model.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal lead: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(records)
	return records, nil
}

// Close releases the database file.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
