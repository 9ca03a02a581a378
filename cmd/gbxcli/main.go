// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/golang/glog"
)

func main() {
	// We should send our own log output to stderr. Every other flag belongs
	// to the cli app, which forwards --v to glog.
	flag.Set("logtostderr", "true")
	flag.CommandLine.Parse(nil)

	cli := newGbxCli()

	// Close the catalog if we're told to quit, so bolt releases its lock.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cli.stop()
		os.Exit(1)
	}()

	err := cli.run(os.Args)
	cli.stop()
	if err != nil {
		log.Errorf("%s", err)
		log.Flush()
		os.Exit(1)
	}
}
