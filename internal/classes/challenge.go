// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package classes

import (
	"fmt"

	"github.com/westerndigitalcorporation/gbx/gbx"
)

// Chunks of CGameCtnChallenge.
const (
	ChallengeHeaderTimes  uint32 = 0x03043002
	ChallengeHeaderCommon uint32 = 0x03043003
	ChallengeHeaderXML    uint32 = 0x03043005
	ChallengeHeaderAuthor uint32 = 0x03043008
	ChallengeVehicle      uint32 = 0x0304300D
	ChallengeParams       uint32 = 0x03043011
	ChallengeBlocks       uint32 = 0x0304301F
	ChallengeTitle        uint32 = 0x03043022
	ChallengePassword     uint32 = 0x03043029
	ChallengeItemModels   uint32 = 0x03043040
	ChallengeAuthor       uint32 = 0x03043042
)

func challengeClass() gbx.ClassInfo {
	return gbx.ClassInfo{
		ID:     CGameCtnChallenge,
		Name:   "CGameCtnChallenge",
		Parent: CMwNod,
		HeaderChunks: []gbx.ChunkInfo{
			chunk(ChallengeHeaderTimes, 0, func() gbx.ChunkData { return &ChallengeTimes{} }),
			chunk(ChallengeHeaderCommon, 0, func() gbx.ChunkData { return &ChallengeCommon{} }),
			chunk(ChallengeHeaderXML, 0, func() gbx.ChunkData { return &XML{} }),
			chunk(ChallengeHeaderAuthor, 0, func() gbx.ChunkData { return &AuthorInfo{} }),
		},
		Chunks: []gbx.ChunkInfo{
			chunk(ChallengeVehicle, 0, func() gbx.ChunkData { return &ChallengeVehicleModel{} }),
			chunk(ChallengeParams, 0, func() gbx.ChunkData { return &ChallengeParameters{} }),
			chunk(ChallengeBlocks, 0, func() gbx.ChunkData { return &ChallengeBlockList{} }),
			chunk(ChallengeTitle, 0, func() gbx.ChunkData { return &ChallengeTitleID{} }),
			chunk(ChallengePassword, gbx.Lazy, func() gbx.ChunkData { return &ChallengePasswordHash{} }),
			// Item model names are looked up by later chunks.
			chunk(ChallengeItemModels, gbx.Lazy|gbx.DiscoverOnLoad, func() gbx.ChunkData { return &ChallengeItems{} }),
			chunk(ChallengeAuthor, gbx.Lazy, func() gbx.ChunkData { return &AuthorInfo{} }),
		},
	}
}

// ChallengeTimes is the medal times header chunk.
type ChallengeTimes struct {
	Version    byte
	BronzeTime int32
	SilverTime int32
	GoldTime   int32
	AuthorTime int32
	Cost       int32
	IsLapRace  bool
	NbLaps     int32
}

// ReadWrite implements gbx.ChunkData.
func (c *ChallengeTimes) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Byte(&c.Version)
	rw.Int32(&c.BronzeTime)
	rw.Int32(&c.SilverTime)
	rw.Int32(&c.GoldTime)
	rw.Int32(&c.AuthorTime)
	if c.Version >= 4 {
		rw.Int32(&c.Cost)
	}
	if c.Version >= 5 {
		rw.Bool(&c.IsLapRace)
	}
	if c.Version >= 9 {
		rw.Int32(&c.NbLaps)
	}
}

// ChallengeCommon is the map identity header chunk.
type ChallengeCommon struct {
	Version    byte
	MapInfo    gbx.Ident
	Name       string
	Kind       byte
	Locked     bool
	Password   string
	Decoration gbx.Ident
}

// ReadWrite implements gbx.ChunkData.
func (c *ChallengeCommon) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Byte(&c.Version)
	rw.Ident(&c.MapInfo)
	rw.String(&c.Name)
	rw.Byte(&c.Kind)
	if c.Version >= 1 {
		rw.Bool(&c.Locked)
		rw.String(&c.Password)
	}
	if c.Version >= 2 {
		rw.Ident(&c.Decoration)
	}
}

// XML is a header chunk holding an XML description.
type XML struct {
	XML string
}

// ReadWrite implements gbx.ChunkData.
func (c *XML) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.String(&c.XML)
}

// AuthorInfo is stored both in the header and in the body.
type AuthorInfo struct {
	Version       int32
	AuthorVersion int32
	Login         string
	Nickname      string
	Zone          string
	Extra         string
}

// ReadWrite implements gbx.ChunkData.
func (c *AuthorInfo) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Int32(&c.Version)
	if c.Version != 0 && rw.Reading() {
		rw.Fail(fmt.Errorf("author chunk version %d", c.Version))
		return
	}
	rw.Int32(&c.AuthorVersion)
	rw.String(&c.Login)
	rw.String(&c.Nickname)
	rw.String(&c.Zone)
	rw.String(&c.Extra)
}

// ChallengeVehicleModel names the vehicle the map is driven with.
type ChallengeVehicleModel struct {
	Vehicle gbx.Ident
}

// ReadWrite implements gbx.ChunkData.
func (c *ChallengeVehicleModel) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Ident(&c.Vehicle)
}

// ChallengeParameters references the block stock and the map parameters.
type ChallengeParameters struct {
	BlockStock *gbx.Node // CGameCtnCollectorList
	Parameters *gbx.Node // CGameCtnChallengeParameters
	Kind       int32
}

// ReadWrite implements gbx.ChunkData.
func (c *ChallengeParameters) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.NodeRef(&c.BlockStock)
	rw.NodeRef(&c.Parameters)
	rw.Int32(&c.Kind)
}

// Refs implements gbx.Refs.
func (c *ChallengeParameters) Refs() []*gbx.Node {
	return nonNil(c.BlockStock, c.Parameters)
}

// Block is one placed block.
type Block struct {
	Name      gbx.Id
	Direction byte
	X, Y, Z   byte
	Flags     uint32
}

// ChallengeBlockList is the map identity and its blocks.
type ChallengeBlockList struct {
	MapInfo    gbx.Ident
	Name       string
	Decoration gbx.Ident
	Size       [3]int32
	NeedUnlock bool
	Version    int32
	Blocks     []Block
}

// ReadWrite implements gbx.ChunkData.
func (c *ChallengeBlockList) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Ident(&c.MapInfo)
	rw.String(&c.Name)
	rw.Ident(&c.Decoration)
	for i := range c.Size {
		rw.Int32(&c.Size[i])
	}
	rw.Bool(&c.NeedUnlock)
	rw.Int32(&c.Version)

	count := int32(len(c.Blocks))
	rw.Int32(&count)
	if !rw.Ok() {
		return
	}
	// A block is at least 12 bytes.
	if rw.Reading() {
		if count < 0 || int64(count)*12 > rw.Remaining() {
			rw.Failf("%d blocks", count)
			return
		}
		c.Blocks = make([]Block, count)
	}
	for i := range c.Blocks {
		b := &c.Blocks[i]
		rw.Id(&b.Name)
		rw.Byte(&b.Direction)
		rw.Byte(&b.X)
		rw.Byte(&b.Y)
		rw.Byte(&b.Z)
		rw.UInt32(&b.Flags)
	}
}

// ChallengeTitleID is a chunk we only know the shape of.
type ChallengeTitleID struct {
	Unknown int32
}

// ReadWrite implements gbx.ChunkData.
func (c *ChallengeTitleID) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Int32(&c.Unknown)
}

// ChallengePasswordHash is the hashed map password.
type ChallengePasswordHash struct {
	Hash []byte
	CRC  uint32
}

// ReadWrite implements gbx.ChunkData.
func (c *ChallengePasswordHash) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Bytes(&c.Hash, 16)
	rw.UInt32(&c.CRC)
}

// ChallengeItems lists the item models placed on the map.
type ChallengeItems struct {
	Version int32
	Models  []gbx.Id
}

// ReadWrite implements gbx.ChunkData.
func (c *ChallengeItems) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Int32(&c.Version)
	rw.Ids(&c.Models)
}
