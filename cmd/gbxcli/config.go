// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/codegangsta/cli"

	"github.com/westerndigitalcorporation/gbx/gbx"
	"github.com/westerndigitalcorporation/gbx/pkg/compress"
)

/*

Container options are set in three steps:

  (1) Defaults are pulled from 'gbx.DefaultOptions'.

  (2) An optional configuration file (in json format) given with '--config'
      overrides the defaults.

  (3) Global flags override each individual value set in the previous two
      steps, e.g. '--workers=8'. Only flags given on the command line count.

The body codec isn't part of the file: it's picked with '--codec'.

*/

var optionFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config",
		Usage: "json file with container options",
	},
	cli.StringFlag{
		Name:  "codec",
		Usage: "codec for compressed bodies: snappy, zlib or none",
		Value: "zlib",
	},
	cli.StringFlag{
		Name:  "unknown",
		Usage: "what to do with unknown root classes: opaque or fail",
	},
	cli.BoolFlag{
		Name:  "substitute",
		Usage: "substitute the last node for references to missing nodes",
	},
	cli.IntFlag{
		Name:  "workers",
		Usage: "chunks discovered in parallel",
	},
	cli.Int64Flag{
		Name:  "max_chunk",
		Usage: "largest chunk accepted, in bytes",
	},
	cli.Int64Flag{
		Name:  "max_body",
		Usage: "largest uncompressed body accepted, in bytes",
	},
}

// loadOptions builds the container options from the global flags.
func loadOptions(c *cli.Context) (gbx.Options, error) {
	opts := gbx.DefaultOptions

	if path := c.GlobalString("config"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return opts, fmt.Errorf("couldn't open the config file: %s", err)
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&opts); err != nil {
			return opts, fmt.Errorf("failed to decode the config file: %s", err)
		}
	}

	if c.GlobalIsSet("unknown") {
		if err := opts.UnknownClass.UnmarshalText([]byte(c.GlobalString("unknown"))); err != nil {
			return opts, err
		}
	}
	if c.GlobalIsSet("substitute") {
		opts.SubstituteMissingNodes = c.GlobalBool("substitute")
	}
	if c.GlobalIsSet("workers") {
		opts.DiscoverWorkers = c.GlobalInt("workers")
	}
	if c.GlobalIsSet("max_chunk") {
		opts.MaxChunkSize = c.GlobalInt64("max_chunk")
	}
	if c.GlobalIsSet("max_body") {
		opts.MaxBodySize = c.GlobalInt64("max_body")
	}

	codec, err := compress.ByName(c.GlobalString("codec"))
	if err != nil {
		return opts, err
	}
	opts.Compressor = codec

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid options: %s", err)
	}
	return opts, nil
}
