// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Helpers for tests. Files a test writes go under TempDir(), or a directory
// within it, and are removed on successful runs if the package has a
// main_test.go like:
/*

package mypkg

import (
	"testing"

	"github.com/westerndigitalcorporation/gbx/pkg/testutil"
)

func TestMain(m *testing.M) {
	testutil.TestMain(m)
}

*/

package testutil

import (
	"flag"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var keepTemp = flag.Bool("keep_temp", false, "keep temp files even if tests pass")

var tempDir, createdBase string

// TempDir gets a temp directory that's exclusive to this process (but not
// necessarily other tests in the same process). Use TestDir for a directory
// exclusive to one test.
func TempDir() string {
	if tempDir == "" {
		var err error
		tempDir, err = ioutil.TempDir(getBase(), filepath.Base(os.Args[0]))
		if err != nil {
			log.Fatalf("Couldn't create temp dir: %s", err)
		}
	}
	return tempDir
}

// TestDir creates a new directory under TempDir for the calling test.
func TestDir(t *testing.T) string {
	dir, err := ioutil.TempDir(TempDir(), filepath.Base(t.Name()))
	if err != nil {
		t.Fatalf("failed to create test dir: %s", err)
	}
	return dir
}

// Get a base temp dir. Create one if it doesn't exist.
func getBase() string {
	if tmp := os.Getenv("TMPDIR"); tmp != "" {
		return tmp
	}
	// Otherwise make one in the current directory. "*.test" is ignored by
	// git.
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("could not get the current dir: %s", err)
	}
	tmp := filepath.Join(wd, time.Now().Format("20060102.150405.test"))
	if err := os.Mkdir(tmp, 0755); err != nil && !os.IsExist(err) {
		log.Fatalf("failed to create tmp dir: %s", tmp)
	}
	createdBase = tmp
	return tmp
}

func cleanup() {
	if tempDir != "" {
		os.RemoveAll(tempDir)
	}
	if createdBase != "" {
		os.RemoveAll(createdBase)
	}
}

// TestMain should be called from your package TestMain to ensure that the
// process temp directory is cleaned up on successful runs.
func TestMain(m *testing.M) {
	flag.Parse()
	ret := m.Run()
	if ret == 0 && !*keepTemp {
		cleanup()
	} else if tempDir != "" {
		log.Printf("test files kept in %s", tempDir)
	}
	os.Exit(ret)
}
