// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package classes

import (
	"bytes"

	"github.com/westerndigitalcorporation/gbx/gbx"
)

// Chunks of CGameCtnReplayRecord and CGameCtnGhost.
const (
	ReplayHeaderInfo   uint32 = 0x03093000
	ReplayHeaderXML    uint32 = 0x03093001
	ReplayTrack        uint32 = 0x03093002
	ReplayGhosts       uint32 = 0x03093014
	ReplayClip         uint32 = 0x03093015
	GhostSkin          uint32 = 0x03092000
	GhostRaceTime      uint32 = 0x03092005
	GhostCheckpoints   uint32 = 0x03092008
	GhostValidationMap uint32 = 0x03092010
)

func replayClass() gbx.ClassInfo {
	return gbx.ClassInfo{
		ID:     CGameCtnReplayRecord,
		Name:   "CGameCtnReplayRecord",
		Parent: CMwNod,
		HeaderChunks: []gbx.ChunkInfo{
			chunk(ReplayHeaderInfo, 0, func() gbx.ChunkData { return &ReplayInfo{} }),
			chunk(ReplayHeaderXML, 0, func() gbx.ChunkData { return &XML{} }),
		},
		Chunks: []gbx.ChunkInfo{
			chunk(ReplayTrack, 0, func() gbx.ChunkData { return &ReplayEmbeddedTrack{} }),
			chunk(ReplayGhosts, 0, func() gbx.ChunkData { return &ReplayGhostList{} }),
			chunk(ReplayClip, 0, func() gbx.ChunkData { return &ReplayClipRef{} }),
		},
	}
}

func ghostClass() gbx.ClassInfo {
	return gbx.ClassInfo{
		ID:     CGameCtnGhost,
		Name:   "CGameCtnGhost",
		Parent: CMwNod,
		Chunks: []gbx.ChunkInfo{
			chunk(GhostSkin, gbx.Lazy, func() gbx.ChunkData { return &GhostAppearance{} }),
			chunk(GhostRaceTime, gbx.Lazy, func() gbx.ChunkData { return &GhostTime{} }),
			chunk(GhostCheckpoints, gbx.Lazy, func() gbx.ChunkData { return &GhostCheckpointTimes{} }),
			chunk(GhostValidationMap, gbx.Lazy, func() gbx.ChunkData { return &GhostMapUID{} }),
		},
	}
}

// ReplayInfo is the replay summary header chunk.
type ReplayInfo struct {
	Version  int32
	MapInfo  gbx.Ident
	Time     int32
	Nickname string
	Login    string
}

// ReadWrite implements gbx.ChunkData.
func (c *ReplayInfo) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Int32(&c.Version)
	if c.Version < 2 {
		return
	}
	rw.Ident(&c.MapInfo)
	rw.Int32(&c.Time)
	rw.String(&c.Nickname)
	if c.Version >= 6 {
		rw.String(&c.Login)
	}
}

// ReplayEmbeddedTrack holds the whole map file the replay was driven on.
type ReplayEmbeddedTrack struct {
	Track []byte
}

// ReadWrite implements gbx.ChunkData.
func (c *ReplayEmbeddedTrack) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.ByteArray(&c.Track)
}

// Map decodes the embedded map with 'ctr'. It returns a nil document when the
// replay carries no map.
func (c *ReplayEmbeddedTrack) Map(ctr *gbx.Container) (*gbx.Document, error) {
	if len(c.Track) == 0 {
		return nil, nil
	}
	return ctr.Read(bytes.NewReader(c.Track))
}

// SetMap serializes 'doc' with 'ctr' and embeds it.
func (c *ReplayEmbeddedTrack) SetMap(ctr *gbx.Container, doc *gbx.Document) error {
	var buf bytes.Buffer
	if err := ctr.Write(&buf, doc); err != nil {
		return err
	}
	c.Track = buf.Bytes()
	return nil
}

// ReplayGhostList references the ghosts of the replay.
type ReplayGhostList struct {
	Version int32
	Ghosts  []*gbx.Node // CGameCtnGhost
	Extras  []int32
}

// ReadWrite implements gbx.ChunkData.
func (c *ReplayGhostList) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Int32(&c.Version)
	rw.NodeRefs(&c.Ghosts)
	rw.Int32s(&c.Extras)
}

// Refs implements gbx.Refs.
func (c *ReplayGhostList) Refs() []*gbx.Node {
	return nonNil(c.Ghosts...)
}

// ReplayClipRef references the media tracker clip, usually nil.
type ReplayClipRef struct {
	Clip *gbx.Node
}

// ReadWrite implements gbx.ChunkData.
func (c *ReplayClipRef) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.NodeRef(&c.Clip)
}

// Refs implements gbx.Refs.
func (c *ReplayClipRef) Refs() []*gbx.Node {
	return nonNil(c.Clip)
}

// GhostAppearance is the car and skin of a ghost.
type GhostAppearance struct {
	Version int32
	Model   gbx.Ident
	Color   [3]float32
	Skins   []string
	Name    string
}

// ReadWrite implements gbx.ChunkData.
func (c *GhostAppearance) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Int32(&c.Version)
	rw.Ident(&c.Model)
	rw.Vec3(&c.Color)
	rw.Strings(&c.Skins)
	rw.String(&c.Name)
}

// GhostTime is the race time in milliseconds, -1 when unfinished.
type GhostTime struct {
	RaceTime int32
}

// ReadWrite implements gbx.ChunkData.
func (c *GhostTime) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Int32(&c.RaceTime)
}

// GhostCheckpointTimes are the times at each checkpoint.
type GhostCheckpointTimes struct {
	Times []int32
}

// ReadWrite implements gbx.ChunkData.
func (c *GhostCheckpointTimes) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Int32s(&c.Times)
}

// GhostMapUID names the map the ghost was validated on.
type GhostMapUID struct {
	UID gbx.Id
}

// ReadWrite implements gbx.ChunkData.
func (c *GhostMapUID) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Id(&c.UID)
}
