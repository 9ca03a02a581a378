// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package catalog

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	// Import sqlite3 driver so that we can create db backed by sqlite.
	_ "github.com/mattn/go-sqlite3"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/gbx/gbx"
)

// SqliteStore is a Store backed by sqlite.
type SqliteStore struct {
	db *sql.DB

	// Prepared statements for operating on the 'entries' table.
	putStmt, getStmt, delStmt, listStmt, classStmt *sql.Stmt
}

const entryColumns = "path, size, mtime, class, raw_class, version, ref_compression, body_compression, header_chunks, external_files"

// OpenSqliteStore opens the store at 'path', creating it if needed.
func OpenSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Errorf("failed to open the db backed by %s: %s", path, err)
		return nil, err
	}

	// A non-integer primary key can be null in sqlite unless told otherwise.
	createStmt := `CREATE TABLE IF NOT EXISTS entries (
		path TEXT NOT NULL PRIMARY KEY,
		size INTEGER NOT NULL,
		mtime INTEGER NOT NULL,
		class INTEGER NOT NULL,
		raw_class INTEGER NOT NULL,
		version INTEGER NOT NULL,
		ref_compression INTEGER NOT NULL,
		body_compression INTEGER NOT NULL,
		header_chunks TEXT NOT NULL,
		external_files INTEGER NOT NULL)`
	if _, err := db.Exec(createStmt); err != nil {
		db.Close()
		log.Errorf("failed to create entries table: %s", err)
		return nil, err
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS entries_class ON entries (class)"); err != nil {
		db.Close()
		log.Errorf("failed to create class index: %s", err)
		return nil, err
	}

	s := &SqliteStore{db: db}
	stmts := []struct {
		stmt **sql.Stmt
		sql  string
	}{
		{&s.putStmt, "INSERT OR REPLACE INTO entries (" + entryColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"},
		{&s.getStmt, "SELECT " + entryColumns + " FROM entries WHERE path=?"},
		{&s.delStmt, "DELETE FROM entries WHERE path=?"},
		{&s.listStmt, "SELECT " + entryColumns + " FROM entries ORDER BY path"},
		{&s.classStmt, "SELECT " + entryColumns + " FROM entries WHERE class=? ORDER BY path"},
	}
	for _, st := range stmts {
		if *st.stmt, err = db.Prepare(st.sql); err != nil {
			log.Errorf("failed to prepare %q: %s", st.sql, err)
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Header chunk ids are stored as a comma separated list of hex ids.
func joinChunkIDs(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 16)
	}
	return strings.Join(parts, ",")
}

func splitChunkIDs(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}
	var ids []uint32
	for _, p := range strings.Split(s, ",") {
		id, err := strconv.ParseUint(p, 16, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (e Entry, err error) {
	var mtime int64
	var class, rawClass uint32
	var chunks string
	err = row.Scan(&e.Path, &e.Size, &mtime, &class, &rawClass, &e.Version,
		&e.RefCompression, &e.BodyCompression, &chunks, &e.ExternalFiles)
	if err != nil {
		return
	}
	e.ModTime = time.Unix(0, mtime)
	e.Class = gbx.ClassID(class)
	e.RawClass = rawClass
	e.HeaderChunks, err = splitChunkIDs(chunks)
	return
}

// Put implements Store.
func (s *SqliteStore) Put(e Entry) error {
	_, err := s.putStmt.Exec(e.Path, e.Size, e.ModTime.UnixNano(), uint32(e.Class), e.RawClass, e.Version,
		e.RefCompression, e.BodyCompression, joinChunkIDs(e.HeaderChunks), e.ExternalFiles)
	if err != nil {
		log.Errorf("failed to insert %q: %s", e.Path, err)
	}
	return err
}

// Get implements Store.
func (s *SqliteStore) Get(path string) (Entry, bool, error) {
	e, err := scanEntry(s.getStmt.QueryRow(path))
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		log.Errorf("failed to get entry for %q: %s", path, err)
		return Entry{}, false, err
	}
	return e, true, nil
}

// Delete implements Store.
func (s *SqliteStore) Delete(path string) error {
	if _, err := s.delStmt.Exec(path); err != nil {
		log.Errorf("failed to delete %q: %s", path, err)
		return err
	}
	return nil
}

func (s *SqliteStore) query(stmt *sql.Stmt, args ...interface{}) ([]Entry, error) {
	rows, err := stmt.Query(args...)
	if err != nil {
		log.Errorf("failed to select entries: %s", err)
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error in iterating through rows: %s", err)
		return nil, err
	}
	return out, nil
}

// List implements Store.
func (s *SqliteStore) List() ([]Entry, error) {
	return s.query(s.listStmt)
}

// FindClass implements Store.
func (s *SqliteStore) FindClass(class gbx.ClassID) ([]Entry, error) {
	return s.query(s.classStmt, uint32(class))
}

// Close closes the db. All errors are logged and the last one is returned.
func (s *SqliteStore) Close() (err error) {
	for _, st := range []*sql.Stmt{s.putStmt, s.getStmt, s.delStmt, s.listStmt, s.classStmt} {
		if st == nil {
			continue
		}
		if cerr := st.Close(); cerr != nil {
			err = cerr
			log.Errorf("failed to close statement: %s", err)
		}
	}
	if cerr := s.db.Close(); cerr != nil {
		err = cerr
		log.Errorf("failed to close db: %s", err)
	}
	return err
}
