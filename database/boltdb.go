package database

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const (
	grindsBucket = "grinds"
	metaBucket   = "meta"
)

var ErrNotFound = errors.New("record not found")

// Record is one finished grind, keyed by the resulting txid.
type Record struct {
	TxID       string    `json:"txid"`
	OriginalID string    `json:"original_txid"`
	RawTx      string    `json:"raw_tx"`
	Grinder    string    `json:"grinder"`
	Criteria   string    `json:"criteria"`
	Iterations uint64    `json:"iterations"`
	Elapsed    string    `json:"elapsed"`
	CreatedAt  time.Time `json:"created_at"`
}

type BoltDB struct {
	DB *bolt.DB
}

func OpenDB(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{grindsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating buckets")
	}

	return &BoltDB{DB: db}, nil
}

func (db *BoltDB) Close() error {
	return db.DB.Close()
}

// Get returns a copy of the value, or nil.
func (db *BoltDB) Get(bucket, key string) []byte {
	var val []byte
	db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			val = append([]byte{}, v...)
		}
		return nil
	})
	return val
}

// Iterate visits a bucket in key order.
func (db *BoltDB) Iterate(bucket string, fn func(k, v []byte) error) error {
	return db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return errors.Errorf("bucket %s not found", bucket)
		}
		return b.ForEach(fn)
	})
}

// PutRecord stores rec and bumps the run counter in one transaction.
func (db *BoltDB) PutRecord(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	return db.DB.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(grindsBucket)).Put([]byte(rec.TxID), data); err != nil {
			return err
		}
		meta := tx.Bucket([]byte(metaBucket))
		runs := decodeCounter(meta.Get([]byte("runs"))) + 1
		return meta.Put([]byte("runs"), encodeCounter(runs))
	})
}

func (db *BoltDB) GetRecord(txid string) (*Record, error) {
	data := db.Get(grindsBucket, txid)
	if data == nil {
		return nil, errors.Wrap(ErrNotFound, txid)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, "decoding record %s", txid)
	}
	return &rec, nil
}

// ListRecords returns every record ordered by txid.
func (db *BoltDB) ListRecords() ([]*Record, error) {
	var recs []*Record
	err := db.Iterate(grindsBucket, func(k, v []byte) error {
		var rec Record
		if err := json.Unmarshal(v, &rec); err != nil {
			return errors.Wrapf(err, "decoding record %s", k)
		}
		recs = append(recs, &rec)
		return nil
	})
	return recs, err
}

// Runs is how many records were ever written, overwrites included.
func (db *BoltDB) Runs() uint64 {
	return decodeCounter(db.Get(metaBucket, "runs"))
}

func encodeCounter(n uint64) []byte {
	b, _ := json.Marshal(n)
	return b
}

func decodeCounter(b []byte) uint64 {
	var n uint64
	if b != nil {
		json.Unmarshal(b, &n)
	}
	return n
}
