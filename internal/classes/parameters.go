// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package classes

import (
	"github.com/westerndigitalcorporation/gbx/gbx"
)

// Chunks of CGameCtnChallengeParameters and CGameCtnCollectorList.
const (
	ParamsTips       uint32 = 0x0305B001
	ParamsTimes      uint32 = 0x0305B004
	ParamsLimits     uint32 = 0x0305B008
	ParamsAll        uint32 = 0x0305B00A
	ParamsGhost      uint32 = 0x0305B00D
	ParamsMapType    uint32 = 0x0305B00E
	CollectorListAll uint32 = 0x0301B000
)

func parametersClass() gbx.ClassInfo {
	return gbx.ClassInfo{
		ID:     CGameCtnChallengeParameters,
		Name:   "CGameCtnChallengeParameters",
		Parent: CMwNod,
		Chunks: []gbx.ChunkInfo{
			chunk(ParamsTips, 0, func() gbx.ChunkData { return &ParamsTipList{} }),
			chunk(ParamsTimes, 0, func() gbx.ChunkData { return &ParamsMedalTimes{} }),
			chunk(ParamsLimits, 0, func() gbx.ChunkData { return &ParamsTimeLimit{} }),
			chunk(ParamsAll, gbx.Lazy, func() gbx.ChunkData { return &ParamsSummary{} }),
			chunk(ParamsGhost, 0, func() gbx.ChunkData { return &ParamsValidation{} }),
			chunk(ParamsMapType, gbx.Lazy, func() gbx.ChunkData { return &ParamsType{} }),
		},
	}
}

func collectorListClass() gbx.ClassInfo {
	return gbx.ClassInfo{
		ID:     CGameCtnCollectorList,
		Name:   "CGameCtnCollectorList",
		Parent: CMwNod,
		Chunks: []gbx.ChunkInfo{
			chunk(CollectorListAll, 0, func() gbx.ChunkData { return &CollectorStocks{} }),
		},
	}
}

// ParamsTipList holds the four loading screen tips.
type ParamsTipList struct {
	Tips [4]string
}

// ReadWrite implements gbx.ChunkData.
func (c *ParamsTipList) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	for i := range c.Tips {
		rw.String(&c.Tips[i])
	}
}

// ParamsMedalTimes are the medal times in milliseconds.
type ParamsMedalTimes struct {
	BronzeTime int32
	SilverTime int32
	GoldTime   int32
	AuthorTime int32
	Unknown    int32
}

// ReadWrite implements gbx.ChunkData.
func (c *ParamsMedalTimes) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Int32(&c.BronzeTime)
	rw.Int32(&c.SilverTime)
	rw.Int32(&c.GoldTime)
	rw.Int32(&c.AuthorTime)
	rw.Int32(&c.Unknown)
}

// ParamsTimeLimit is used by stunt maps.
type ParamsTimeLimit struct {
	TimeLimit   int32
	AuthorScore int32
}

// ReadWrite implements gbx.ChunkData.
func (c *ParamsTimeLimit) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.Int32(&c.TimeLimit)
	rw.Int32(&c.AuthorScore)
}

// ParamsSummary repeats the times and limits with a single tip.
type ParamsSummary struct {
	Tip string
	ParamsMedalTimes
	ParamsTimeLimit
}

// ReadWrite implements gbx.ChunkData.
func (c *ParamsSummary) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.String(&c.Tip)
	rw.Int32(&c.BronzeTime)
	rw.Int32(&c.SilverTime)
	rw.Int32(&c.GoldTime)
	rw.Int32(&c.AuthorTime)
	rw.Int32(&c.TimeLimit)
	rw.Int32(&c.AuthorScore)
}

// ParamsValidation references the ghost that validated the map.
type ParamsValidation struct {
	Ghost *gbx.Node // CGameCtnGhost
}

// ReadWrite implements gbx.ChunkData.
func (c *ParamsValidation) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.NodeRef(&c.Ghost)
}

// Refs implements gbx.Refs.
func (c *ParamsValidation) Refs() []*gbx.Node {
	return nonNil(c.Ghost)
}

// ParamsType is the game mode script of the map.
type ParamsType struct {
	MapType  string
	MapStyle string
	Unknown  int32
}

// ReadWrite implements gbx.ChunkData.
func (c *ParamsType) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	rw.String(&c.MapType)
	rw.String(&c.MapStyle)
	rw.Int32(&c.Unknown)
}

// CollectorStock is how many of a block model are available.
type CollectorStock struct {
	Model gbx.Ident
	Count int32
}

// CollectorStocks is the block stock of a map.
type CollectorStocks struct {
	Stocks []CollectorStock
}

// ReadWrite implements gbx.ChunkData.
func (c *CollectorStocks) ReadWrite(n *gbx.Node, rw *gbx.ReadWriter) {
	count := int32(len(c.Stocks))
	rw.Int32(&count)
	if !rw.Ok() {
		return
	}
	if rw.Reading() {
		if count < 0 || int64(count)*16 > rw.Remaining() {
			rw.Failf("%d stocks", count)
			return
		}
		c.Stocks = make([]CollectorStock, count)
	}
	for i := range c.Stocks {
		rw.Ident(&c.Stocks[i].Model)
		rw.Int32(&c.Stocks[i].Count)
	}
}
