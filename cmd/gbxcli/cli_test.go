// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"flag"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codegangsta/cli"

	"github.com/westerndigitalcorporation/gbx/gbx"
	"github.com/westerndigitalcorporation/gbx/internal/classes"
	"github.com/westerndigitalcorporation/gbx/pkg/compress"
	"github.com/westerndigitalcorporation/gbx/pkg/testutil"
)

func TestMain(m *testing.M) {
	testutil.TestMain(m)
}

// optionContext returns a command context whose parent holds the option
// flags parsed from 'args'.
func optionContext(t *testing.T, args ...string) *cli.Context {
	set := flag.NewFlagSet("gbxcli", flag.ContinueOnError)
	for _, f := range optionFlags {
		f.Apply(set)
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse %v: %s", args, err)
	}
	app := cli.NewApp()
	global := cli.NewContext(app, set, nil)
	return cli.NewContext(app, flag.NewFlagSet("info", flag.ContinueOnError), global)
}

func TestLoadOptions(t *testing.T) {
	opts, err := loadOptions(optionContext(t))
	if err != nil {
		t.Fatalf("defaults: %s", err)
	}
	if opts.DiscoverWorkers != gbx.DefaultOptions.DiscoverWorkers || opts.UnknownClass != gbx.UnknownClassOpaque {
		t.Errorf("defaults not used: %+v", opts)
	}
	if _, ok := opts.Compressor.(compress.Zlib); !ok {
		t.Errorf("default codec is %T", opts.Compressor)
	}

	// The file overrides the defaults and flags override the file.
	path := filepath.Join(testutil.TestDir(t), "gbx.json")
	config := `{"UnknownClass": "fail", "DiscoverWorkers": 2, "MaxChunkSize": 1024}`
	if err := ioutil.WriteFile(path, []byte(config), 0644); err != nil {
		t.Fatalf("write config: %s", err)
	}
	opts, err = loadOptions(optionContext(t, "--config", path, "--workers", "9", "--codec", "snappy"))
	if err != nil {
		t.Fatalf("layered: %s", err)
	}
	if opts.UnknownClass != gbx.UnknownClassFail || opts.MaxChunkSize != 1024 {
		t.Errorf("config file not used: %+v", opts)
	}
	if opts.DiscoverWorkers != 9 {
		t.Errorf("flag didn't override the file: %d workers", opts.DiscoverWorkers)
	}
	if opts.MaxBodySize != gbx.DefaultOptions.MaxBodySize {
		t.Errorf("default lost: %d", opts.MaxBodySize)
	}
	if _, ok := opts.Compressor.(compress.Snappy); !ok {
		t.Errorf("codec is %T", opts.Compressor)
	}

	for _, args := range [][]string{
		{"--workers", "0"},
		{"--unknown", "guess"},
		{"--codec", "lzo"},
		{"--config", filepath.Join(testutil.TempDir(), "missing.json")},
	} {
		if _, err := loadOptions(optionContext(t, args...)); err == nil {
			t.Errorf("%v accepted", args)
		}
	}
}

func TestParseClass(t *testing.T) {
	reg := classes.Registry()
	for in, want := range map[string]gbx.ClassID{
		"CGameCtnChallenge": classes.CGameCtnChallenge,
		"cgamectnghost":     classes.CGameCtnGhost,
		"0x03093000":        classes.CGameCtnReplayRecord,
		"24003000":          classes.CGameCtnChallenge,
	} {
		if got, err := parseClass(reg, in); err != nil || got != want {
			t.Errorf("%q: got %s %v", in, got, err)
		}
	}
	if _, err := parseClass(reg, "CNothing"); err == nil {
		t.Errorf("unknown name accepted")
	}
}

func TestPrintTree(t *testing.T) {
	reg := classes.Registry()
	doc := gbx.NewDocument(classes.CGameCtnChallenge)
	stock := gbx.NewNode(classes.CGameCtnCollectorList)
	if _, err := stock.AddChunk(reg, classes.CollectorListAll, &classes.CollectorStocks{}); err != nil {
		t.Fatalf("add: %s", err)
	}
	if _, err := doc.Root.AddChunk(reg, classes.ChallengeParams, &classes.ChallengeParameters{BlockStock: stock}); err != nil {
		t.Fatalf("add: %s", err)
	}
	if _, err := doc.AddHeaderChunk(reg, classes.ChallengeHeaderXML, &classes.XML{}, true); err != nil {
		t.Fatalf("add: %s", err)
	}

	ctr, err := gbx.NewContainer(reg, gbx.DefaultOptions)
	if err != nil {
		t.Fatalf("container: %s", err)
	}
	var buf bytes.Buffer
	if err := ctr.Write(&buf, doc); err != nil {
		t.Fatalf("write: %s", err)
	}
	got, err := ctr.Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("read: %s", err)
	}

	var out bytes.Buffer
	printTree(&out, reg, got)
	for _, want := range []string{"node 0: CGameCtnChallenge", "node 1: CGameCtnCollectorList", "-> node 1", "03043011 eager"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("tree doesn't contain %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	printHeader(&out, reg, "a.Map.Gbx", got)
	if !strings.Contains(out.String(), "header chunk 03043005 header heavy") {
		t.Errorf("bad header:\n%s", out.String())
	}
}
