// Package blob stores opaque audio and caption payloads keyed by id.
// The engine never interprets blob contents; metadata records in the
// entity store hold the ids.
package blob

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/franz/podlib/internal/util"
)

// Kind selects a blob bucket
type Kind string

const (
	KindAudio    Kind = "audio"
	KindSubtitle Kind = "subtitle"
)

// Bucket names: payload bytes and a JSON meta sidecar per kind
var (
	bucketAudio        = []byte("audio")
	bucketAudioMeta    = []byte("audio_meta")
	bucketSubtitle     = []byte("subtitle")
	bucketSubtitleMeta = []byte("subtitle_meta")
)

// Meta describes a stored payload
type Meta struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType,omitempty"`
	Format    string `json:"format,omitempty"` // subtitle format: "srt" or "vtt"
	SizeBytes int64  `json:"sizeBytes"`
	StoredAt  int64  `json:"storedAt"` // epoch ms
}

// Store is a BoltDB-backed blob store
type Store struct {
	db *bolt.DB
}

// Open opens or creates the blob database at the given path
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w: %v", util.ErrStorageUnavailable, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketAudio, bucketAudioMeta, bucketSubtitle, bucketSubtitleMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blob buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the blob database
func (s *Store) Close() error {
	return s.db.Close()
}

func buckets(kind Kind) (payload, meta []byte) {
	if kind == KindSubtitle {
		return bucketSubtitle, bucketSubtitleMeta
	}
	return bucketAudio, bucketAudioMeta
}

// Put stores a payload and its meta, minting an id if none is set
func (s *Store) Put(kind Kind, meta *Meta, payload []byte) error {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.StoredAt == 0 {
		meta.StoredAt = time.Now().UnixMilli()
	}
	meta.SizeBytes = int64(len(payload))

	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal blob meta: %w", err)
	}

	payloadBucket, metaBucket := buckets(kind)
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(payloadBucket).Put([]byte(meta.ID), payload); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put([]byte(meta.ID), metaData)
	})
	if err != nil {
		return fmt.Errorf("failed to store blob %s: %w", meta.ID, err)
	}
	return nil
}

// Get returns a payload and its meta. Returns util.ErrNotFound if the
// id has no payload.
func (s *Store) Get(kind Kind, id string) ([]byte, *Meta, error) {
	payloadBucket, metaBucket := buckets(kind)

	var payload, metaData []byte
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(payloadBucket).Get([]byte(id)); v != nil {
			payload = make([]byte, len(v))
			copy(payload, v)
		}
		if v := tx.Bucket(metaBucket).Get([]byte(id)); v != nil {
			metaData = make([]byte, len(v))
			copy(metaData, v)
		}
		return nil
	})

	if payload == nil {
		return nil, nil, fmt.Errorf("blob %s: %w", id, util.ErrNotFound)
	}

	meta := &Meta{ID: id, SizeBytes: int64(len(payload))}
	if metaData != nil {
		if err := json.Unmarshal(metaData, meta); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal blob meta: %w", err)
		}
	}
	return payload, meta, nil
}

// Has reports whether a payload exists for the id. Callers use this to
// show "not cached" for records whose blobs were never restored.
func (s *Store) Has(kind Kind, id string) bool {
	payloadBucket, _ := buckets(kind)
	found := false
	s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(payloadBucket).Get([]byte(id)) != nil
		return nil
	})
	return found
}

// Delete removes a payload and its meta
func (s *Store) Delete(kind Kind, id string) error {
	payloadBucket, metaBucket := buckets(kind)
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(payloadBucket).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", id, err)
	}
	return nil
}

// DeleteMany removes a set of payloads in one transaction
func (s *Store) DeleteMany(kind Kind, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	payloadBucket, metaBucket := buckets(kind)
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, id := range ids {
			if err := tx.Bucket(payloadBucket).Delete([]byte(id)); err != nil {
				return err
			}
			if err := tx.Bucket(metaBucket).Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete blobs: %w", err)
	}
	return nil
}

// Keys returns every stored id of a kind
func (s *Store) Keys(kind Kind) ([]string, error) {
	payloadBucket, _ := buckets(kind)
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(payloadBucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	return keys, nil
}

// Count returns the number of stored payloads of a kind
func (s *Store) Count(kind Kind) (int, error) {
	payloadBucket, _ := buckets(kind)
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(payloadBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count blobs: %w", err)
	}
	return count, nil
}

// TotalSize returns the summed payload size of a kind
func (s *Store) TotalSize(kind Kind) (int64, error) {
	payloadBucket, _ := buckets(kind)
	var total int64
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(payloadBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			total += int64(len(v))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to size blobs: %w", err)
	}
	return total, nil
}
