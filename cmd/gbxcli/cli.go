// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/beorn7/perks/quantile"
	"github.com/codegangsta/cli"
	shlex "github.com/flynn-archive/go-shlex"
	"github.com/peterh/liner"

	log "github.com/golang/glog"
	"github.com/westerndigitalcorporation/gbx/gbx"
	"github.com/westerndigitalcorporation/gbx/internal/catalog"
	"github.com/westerndigitalcorporation/gbx/internal/classes"
	"github.com/westerndigitalcorporation/gbx/internal/metrics"
	test "github.com/westerndigitalcorporation/gbx/pkg/testutil"
	"github.com/westerndigitalcorporation/gbx/pkg/tokenbucket"
)

var usage = `
	gbxcli inspects, checks and indexes Gbx container files (maps, replays
	and the files they reference).

	You can issue one command:

		gbxcli [--config <file>] [--codec <codec>] <subcommand> [<flags>...] <files>...

	or start a command line interpreter, in which the catalog stays open
	between commands:

		gbxcli [--db <path>] shell

	Compressed bodies need a codec. Real files use a codec we don't ship, so
	'--codec' picks the one the files at hand were written with.
	`

// gbxCli runs subcommands over container files and the catalog.
type gbxCli struct {
	app *cli.App

	// The catalog, opened on first use and kept open in the shell.
	store  catalog.Store
	dbPath string

	// True if we are running a shell.
	inShell bool
}

func newGbxCli() *gbxCli {
	g := &gbxCli{}
	app := cli.NewApp()
	app.Name = "gbxcli"
	app.Usage = usage
	app.Flags = append([]cli.Flag{
		cli.StringFlag{
			Name:  "db",
			Usage: "catalog file",
			Value: "gbx.catalog",
		},
		cli.StringFlag{
			Name:  "store",
			Usage: "catalog backend: bolt or sqlite",
			Value: "bolt",
		},
		cli.IntFlag{
			Name:  "cache",
			Usage: "catalog lookups to cache, 0 to disable",
			Value: 1024,
		},
		cli.IntFlag{
			Name:  "verbosity",
			Usage: "glog verbosity",
		},
	}, optionFlags...)

	discoverFlag := cli.BoolFlag{
		Name:  "discover, d",
		Usage: "discover every lazy chunk first",
	}

	app.Commands = []cli.Command{
		{
			Name:      "info",
			Aliases:   []string{"i"},
			Usage:     "Prints the header of container files.",
			ArgsUsage: "<file>...",
			Action:    g.cmdInfo,
		},
		{
			Name:      "chunks",
			Usage:     "Prints the nodes and chunks of a container file.",
			ArgsUsage: "<file>",
			Flags:     []cli.Flag{discoverFlag},
			Action:    g.cmdChunks,
		},
		{
			Name:      "roundtrip",
			Aliases:   []string{"rt"},
			Usage:     "Parses and writes back container files, and checks the bytes are the same.",
			ArgsUsage: "<file>...",
			Flags:     []cli.Flag{discoverFlag},
			Action:    g.cmdRoundTrip,
		},
		{
			Name:      "discover",
			Usage:     "Discovers every lazy chunk of container files and reports failures.",
			ArgsUsage: "<file>...",
			Action:    g.cmdDiscover,
		},
		{
			Name:      "extract",
			Usage:     "Extracts the map embedded in a replay.",
			ArgsUsage: "<replay> <output>",
			Action:    g.cmdExtract,
		},
		{
			Name:      "index",
			Usage:     "Adds the container files under a directory to the catalog.",
			ArgsUsage: "<dir>...",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "prune",
					Usage: "also remove entries of files that are gone",
				},
				cli.IntFlag{
					Name:  "rate",
					Usage: "MB per second read from disk, 0 for no limit",
				},
			},
			Action: g.cmdIndex,
		},
		{
			Name:  "find",
			Usage: "Lists catalog entries, optionally of one class.",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "class, c",
					Usage: "class name or hex id",
				},
			},
			Action: g.cmdFind,
		},
		{
			Name:      "bench",
			Usage:     "Parses a container file repeatedly and prints the latency distribution.",
			ArgsUsage: "<file>",
			Flags: []cli.Flag{
				discoverFlag,
				cli.IntFlag{
					Name:  "n",
					Usage: "iterations",
					Value: 100,
				},
			},
			Action: g.cmdBench,
		},
		{
			Name:   "stats",
			Usage:  "Prints the metrics gathered so far.",
			Action: g.cmdStats,
		},
		{
			Name:   "shell",
			Usage:  "Starts a shell for interaction.",
			Action: g.cmdShell,
		},
	}
	app.Before = g.beforeSubcommandRun
	g.app = app

	// By default 'HelpName' will be the parent command name + command name.
	// Overwrite 'HelpName' to be command name only.
	for i := range g.app.Commands {
		g.app.Commands[i].HelpName = g.app.Commands[i].Name
	}
	return g
}

// run starts a command specified by users.
func (g *gbxCli) run(args []string) error {
	return g.app.Run(args)
}

// stop frees up all resource used by the gbxCli object.
func (g *gbxCli) stop() {
	if g.store != nil {
		g.store.Close()
		g.store = nil
	}
}

func (g *gbxCli) beforeSubcommandRun(c *cli.Context) error {
	if c.GlobalIsSet("verbosity") {
		flag.Set("v", strconv.Itoa(c.GlobalInt("verbosity")))
	}
	return nil
}

func (g *gbxCli) container(c *cli.Context) (*gbx.Container, error) {
	opts, err := loadOptions(c)
	if err != nil {
		return nil, err
	}
	return gbx.NewContainer(classes.Registry(), opts)
}

// getStore opens the catalog, or reuses the one the shell has open.
func (g *gbxCli) getStore(c *cli.Context) (catalog.Store, error) {
	path := c.GlobalString("db")
	if g.store != nil && g.dbPath == path {
		return g.store, nil
	}
	g.stop()
	s, err := catalog.Open(c.GlobalString("store"), path, c.GlobalInt("cache"))
	if err != nil {
		return nil, err
	}
	g.store, g.dbPath = s, path
	return s, nil
}

func readFile(ctr *gbx.Container, path string, header bool) (*gbx.Document, []byte, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var doc *gbx.Document
	if header {
		doc, err = ctr.ReadHeader(bytes.NewReader(b))
	} else {
		doc, err = ctr.Read(bytes.NewReader(b))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %s", path, err)
	}
	return doc, b, nil
}

func needArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%s needs %d argument(s): %s", c.Command.Name, n, c.Command.ArgsUsage)
	}
	return nil
}

// cmdInfo implements the "info" subcommand.
func (g *gbxCli) cmdInfo(c *cli.Context) error {
	if err := needArgs(c, 1); err != nil {
		return err
	}
	ctr, err := g.container(c)
	if err != nil {
		return err
	}
	for _, path := range c.Args() {
		doc, _, err := readFile(ctr, path, true)
		if err != nil {
			return err
		}
		printHeader(os.Stdout, ctr.Registry(), path, doc)
	}
	return nil
}

// cmdChunks implements the "chunks" subcommand.
func (g *gbxCli) cmdChunks(c *cli.Context) error {
	if err := needArgs(c, 1); err != nil {
		return err
	}
	ctr, err := g.container(c)
	if err != nil {
		return err
	}
	doc, _, err := readFile(ctr, c.Args().First(), false)
	if err != nil {
		return err
	}
	if c.Bool("discover") {
		if err := doc.DiscoverAll(context.Background()); err != nil {
			log.Warningf("%s", err)
		}
	}
	printTree(os.Stdout, ctr.Registry(), doc)
	return nil
}

// cmdRoundTrip implements the "roundtrip" subcommand.
func (g *gbxCli) cmdRoundTrip(c *cli.Context) error {
	if err := needArgs(c, 1); err != nil {
		return err
	}
	ctr, err := g.container(c)
	if err != nil {
		return err
	}
	failed := 0
	for _, path := range c.Args() {
		doc, orig, err := readFile(ctr, path, false)
		if err != nil {
			log.Errorf("%s", err)
			failed++
			continue
		}
		if c.Bool("discover") {
			if err := doc.DiscoverAll(context.Background()); err != nil {
				log.Warningf("%s: %s", path, err)
			}
		}
		var buf bytes.Buffer
		if err := ctr.Write(&buf, doc); err != nil {
			log.Errorf("%s: write failed: %s", path, err)
			failed++
			continue
		}
		if d := test.DiffBytes(buf.Bytes(), orig); d != "" {
			log.Errorf("%s: written bytes differ: %s", path, d)
			failed++
			continue
		}
		log.Infof("%s: ok", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, c.NArg())
	}
	return nil
}

// cmdDiscover implements the "discover" subcommand.
func (g *gbxCli) cmdDiscover(c *cli.Context) error {
	if err := needArgs(c, 1); err != nil {
		return err
	}
	ctr, err := g.container(c)
	if err != nil {
		return err
	}
	for _, path := range c.Args() {
		doc, _, err := readFile(ctr, path, false)
		if err != nil {
			return err
		}
		err = doc.DiscoverAll(context.Background())
		if errs, ok := err.(gbx.DiscoveryErrors); ok {
			for _, e := range errs {
				fmt.Printf("%s: %s\n", path, e)
			}
		} else if err != nil {
			return err
		}
		fmt.Printf("%s: %d nodes, %d chunks failed\n", path, len(doc.Nodes()), countFailed(err))
	}
	return nil
}

func countFailed(err error) int {
	if errs, ok := err.(gbx.DiscoveryErrors); ok {
		return len(errs)
	}
	return 0
}

// cmdExtract implements the "extract" subcommand.
func (g *gbxCli) cmdExtract(c *cli.Context) error {
	if err := needArgs(c, 2); err != nil {
		return err
	}
	ctr, err := g.container(c)
	if err != nil {
		return err
	}
	doc, _, err := readFile(ctr, c.Args().Get(0), false)
	if err != nil {
		return err
	}
	data, err := doc.Root.Data(classes.ReplayTrack)
	if err != nil {
		return err
	}
	track, ok := data.(*classes.ReplayEmbeddedTrack)
	if !ok || len(track.Track) == 0 {
		return fmt.Errorf("%s has no embedded map", c.Args().Get(0))
	}
	// Make sure it's a map we can read before writing it out.
	m, err := track.Map(ctr)
	if err != nil {
		return fmt.Errorf("embedded map: %s", err)
	}
	if err := ioutil.WriteFile(c.Args().Get(1), track.Track, 0644); err != nil {
		return err
	}
	log.Infof("wrote %s (%s, %d bytes)", c.Args().Get(1), ctr.Registry().Name(m.Class()), len(track.Track))
	return nil
}

// cmdIndex implements the "index" subcommand.
func (g *gbxCli) cmdIndex(c *cli.Context) error {
	if err := needArgs(c, 1); err != nil {
		return err
	}
	ctr, err := g.container(c)
	if err != nil {
		return err
	}
	store, err := g.getStore(c)
	if err != nil {
		return err
	}
	ix := catalog.NewIndexer(ctr, store)
	if c.GlobalIsSet("workers") {
		ix.Workers = c.GlobalInt("workers")
	}
	if rate := int64(c.Int("rate")) << 20; rate > 0 {
		ix.Limit = tokenbucket.New(rate, rate)
	}
	for _, dir := range c.Args() {
		stats, err := ix.IndexDir(context.Background(), dir)
		if err != nil {
			return err
		}
		log.Infof("%s: %d indexed, %d unchanged, %d failed", dir, stats.Indexed, stats.Unchanged, stats.Failed)
	}
	if c.Bool("prune") {
		n, err := ix.Prune()
		if err != nil {
			return err
		}
		log.Infof("pruned %d entries", n)
	}
	return nil
}

// parseClass accepts a registered class name or a hex class id.
func parseClass(reg *gbx.Registry, s string) (gbx.ClassID, error) {
	for _, id := range reg.Classes() {
		if strings.EqualFold(reg.Name(id), s) {
			return id, nil
		}
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown class %q", s)
	}
	return reg.Remap(gbx.ClassID(v)), nil
}

// cmdFind implements the "find" subcommand.
func (g *gbxCli) cmdFind(c *cli.Context) error {
	store, err := g.getStore(c)
	if err != nil {
		return err
	}
	var entries []catalog.Entry
	if s := c.String("class"); s != "" {
		class, err := parseClass(classes.Registry(), s)
		if err != nil {
			return err
		}
		entries, err = store.FindClass(class)
		if err != nil {
			return err
		}
	} else if entries, err = store.List(); err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Println(e)
	}
	return nil
}

// cmdBench implements the "bench" subcommand.
func (g *gbxCli) cmdBench(c *cli.Context) error {
	if err := needArgs(c, 1); err != nil {
		return err
	}
	ctr, err := g.container(c)
	if err != nil {
		return err
	}
	b, err := ioutil.ReadFile(c.Args().First())
	if err != nil {
		return err
	}

	objectives := map[float64]float64{0.1: 0.05, 0.5: 0.05, 0.9: 0.01, 0.99: 0.001}
	lat := quantile.NewTargeted(objectives)
	n := c.Int("n")
	start := time.Now()
	for i := 0; i < n; i++ {
		t := time.Now()
		doc, err := ctr.Read(bytes.NewReader(b))
		if err != nil {
			return err
		}
		if c.Bool("discover") {
			doc.DiscoverAll(context.Background())
		}
		lat.Insert(float64(time.Since(t)) / 1e9)
	}
	elapsed := time.Since(start).Seconds()

	fmt.Printf("%d parses of %d bytes in %.3fs: %.2f MB/sec\n", n, len(b), elapsed, float64(n)*float64(len(b))/elapsed/(1<<20))
	fmt.Printf("latency distribution:\n")
	for _, q := range []float64{0.1, 0.5, 0.9, 0.99} {
		fmt.Printf("%g=%.3f ms\n", q*100, lat.Query(q)*1000)
	}
	return nil
}

// cmdStats implements the "stats" subcommand.
func (g *gbxCli) cmdStats(c *cli.Context) error {
	out, err := metrics.Dump("gbx")
	if err != nil {
		return err
	}
	fmt.Println(out)
	for _, op := range []string{"read", "read_header", "write", "discover"} {
		fmt.Printf("%s: %s\n", op, gbx.Stats(op))
	}
	return nil
}

// cmdShell implements "shell" subcommand.
func (g *gbxCli) cmdShell(c *cli.Context) error {
	if g.inShell {
		return fmt.Errorf("already in a shell")
	}
	g.inShell = true
	defer func() { g.inShell = false }()

	// Make cli not exit on errors.
	cli.OsExiter = func(int) {}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	// Complete command names, and file names after them.
	line.SetCompleter(func(input string) (out []string) {
		fields := strings.Fields(input)
		if len(fields) <= 1 && !strings.HasSuffix(input, " ") {
			for _, cmd := range g.app.Commands {
				if strings.HasPrefix(cmd.Name, input) {
					out = append(out, cmd.Name)
				}
			}
			return
		}
		return completeFile(input)
	})
	defer line.Close()

	for {
		input, err := line.Prompt("(gbx) ")
		if err != nil {
			if err == liner.ErrPromptAborted {
				return nil
			}
			log.Errorf("error: %v", err)
			return nil
		}

		// We use 'shlex' because we want split input line in to tokens using
		// shell-style rules for quoting and commenting.
		args, err := shlex.Split(input)
		if err != nil {
			log.Errorf("error: %v", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}

		if err := g.runCommand(c, args...); err != nil {
			log.Errorf("%s", err)
		} else {
			// Adds succeeded command to command history.
			line.AppendHistory(input)
		}
	}
}

// runCommand runs a command from the shell with the global flags the shell
// was started with.
func (g *gbxCli) runCommand(c *cli.Context, args ...string) error {
	cliArgs := []string{"gbxcli"}
	for _, name := range c.GlobalFlagNames() {
		if c.GlobalIsSet(name) {
			cliArgs = append(cliArgs, "--"+name+"="+c.GlobalString(name))
		}
	}
	cliArgs = append(cliArgs, args...)
	return g.run(cliArgs)
}
