package session

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketSession = []byte("session")
	keyBrand      = []byte("brand")
)

// BoltStore keeps the session in a local bolt file.
type BoltStore struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSession)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Brand(ctx context.Context) (brand string, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketSession)
		if bkt == nil {
			return bolt.ErrBucketNotFound
		}
		b := bkt.Get(keyBrand)
		if b == nil {
			return ErrNoSession
		}
		brand = string(b)
		return nil
	})
	return brand, err
}

func (s *BoltStore) SignIn(ctx context.Context, brand string) error {
	brand, err := normalizeBrand(brand)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSession).Put(keyBrand, []byte(brand))
	})
}

func (s *BoltStore) SignOut(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSession).Delete(keyBrand)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
