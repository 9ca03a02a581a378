// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fb

// You must have flatc installed to regenerate these files. Get it here:
// https://google.github.io/flatbuffers/
//go:generate flatc --go -o .. catalog.fbs

/*

Catalog entries are stored in BoltDB encoded with FlatBuffers, so that
scanning the catalog reads fields straight out of the mmaped database file.

EntryF is the only table. It is built by catalog.Entry.encode and read back by
catalog.decodeEntry; the path isn't part of it since it's the key.

*/
