// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package catalog

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/boltdb/bolt"
	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/gbx/gbx"
)

var (
	mode = 0600

	// path -> encoded entry
	entryBucket = []byte("entries")
	// big endian class id + path -> nothing
	classBucket = []byte("classes")
)

// BoltStore is a Store backed by boltdb.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens the store at 'path', creating it if needed.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, os.FileMode(mode), nil)
	if err != nil {
		log.Errorf("failed to open catalog %s: %s", path, err)
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(entryBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(classBucket)
		return err
	})
	if err != nil {
		db.Close()
		log.Errorf("failed to create catalog buckets: %s", err)
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func classKey(class gbx.ClassID, path string) []byte {
	k := make([]byte, 4+len(path))
	binary.BigEndian.PutUint32(k, uint32(class))
	copy(k[4:], path)
	return k
}

// Put implements Store.
func (s *BoltStore) Put(e Entry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		entries, classes := tx.Bucket(entryBucket), tx.Bucket(classBucket)
		// Drop the class index of the entry being replaced.
		if old := entries.Get([]byte(e.Path)); old != nil {
			if prev, err := decodeEntry(e.Path, old); err == nil {
				if err := classes.Delete(classKey(prev.Class, e.Path)); err != nil {
					return err
				}
			}
		}
		if err := entries.Put([]byte(e.Path), e.encode()); err != nil {
			return err
		}
		return classes.Put(classKey(e.Class, e.Path), nil)
	})
}

// Get implements Store.
func (s *BoltStore) Get(path string) (e Entry, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(entryBucket).Get([]byte(path))
		if v == nil {
			return nil
		}
		ok = true
		// decodeEntry copies everything it keeps out of 'v'.
		e, err = decodeEntry(path, v)
		return err
	})
	return
}

// Delete implements Store.
func (s *BoltStore) Delete(path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entryBucket)
		old := entries.Get([]byte(path))
		if old == nil {
			return nil
		}
		if prev, err := decodeEntry(path, old); err == nil {
			if err := tx.Bucket(classBucket).Delete(classKey(prev.Class, path)); err != nil {
				return err
			}
		}
		return entries.Delete([]byte(path))
	})
}

// List implements Store.
func (s *BoltStore) List() (out []Entry, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entryBucket).ForEach(func(k, v []byte) error {
			e, err := decodeEntry(string(k), v)
			if err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	return
}

// FindClass implements Store.
func (s *BoltStore) FindClass(class gbx.ClassID) (out []Entry, err error) {
	prefix := classKey(class, "")
	err = s.db.View(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entryBucket)
		c := tx.Bucket(classBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			path := string(k[4:])
			v := entries.Get([]byte(path))
			if v == nil {
				log.Warningf("catalog: dangling class index for %q", path)
				continue
			}
			e, err := decodeEntry(path, v)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	return
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
