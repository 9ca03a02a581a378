// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Package classes registers the chunk layouts of the map and replay classes
// we know how to decode.

package classes

import (
	"sync"

	"github.com/westerndigitalcorporation/gbx/gbx"
)

// Class ids.
const (
	CMwNod                      gbx.ClassID = 0x01001000
	CGameCtnCollectorList       gbx.ClassID = 0x0301B000
	CGameCtnChallenge           gbx.ClassID = 0x03043000
	CGameCtnChallengeParameters gbx.ClassID = 0x0305B000
	CGameCtnGhost               gbx.ClassID = 0x03092000
	CGameCtnReplayRecord        gbx.ClassID = 0x03093000
)

// Class ids used by older games for the same classes.
var legacy = map[gbx.ClassID]gbx.ClassID{
	0x24003000: CGameCtnChallenge,
	0x2403F000: CGameCtnChallengeParameters,
	0x2407E000: CGameCtnReplayRecord,
}

var (
	regOnce sync.Once
	reg     *gbx.Registry
)

// Registry returns the registry of all classes in this package. It's built on
// first use and shared afterwards.
func Registry() *gbx.Registry {
	regOnce.Do(func() {
		b := gbx.NewRegistryBuilder()
		b.Register(gbx.ClassInfo{ID: CMwNod, Name: "CMwNod", Abstract: true})
		b.Register(challengeClass())
		b.Register(parametersClass())
		b.Register(collectorListClass())
		b.Register(replayClass())
		b.Register(ghostClass())
		for from, to := range legacy {
			b.Remap(from, to)
		}
		var err error
		if reg, err = b.Build(); err != nil {
			// The tables above are static: this is a programming error.
			panic(err)
		}
	})
	return reg
}

func chunk(id uint32, flags gbx.ChunkFlags, f func() gbx.ChunkData) gbx.ChunkInfo {
	return gbx.ChunkInfo{ID: id, Flags: flags, New: f}
}

// nonNil drops nil references.
func nonNil(nodes ...*gbx.Node) []*gbx.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
