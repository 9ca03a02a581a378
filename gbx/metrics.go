// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/westerndigitalcorporation/gbx/internal/metrics"
)

var (
	// Operations: read, read_header, write, discover.
	opMetric = metrics.NewOpMetric("gbx_ops", "op")

	// Chunks dispatched while reading, by kind.
	chunkCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gbx",
		Name:      "chunks",
		Help:      "chunks dispatched while reading",
	}, []string{"kind"})
)

// Stats returns the operation summary for 'op'.
func Stats(op string) string {
	return opMetric.String(op)
}
