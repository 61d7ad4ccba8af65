// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package buffer

import (
	"encoding/binary"
	"hash/fnv"
)

// ContentHash is a deterministic digest of a block's lines. It folds in the
// line count, the first and last line, the total byte count and every line,
// each length-prefixed so line boundaries are part of the key.
func ContentHash(lines []string) uint64 {
	hasher := fnv.New64a()
	var scratch [8]byte

	writeUint64 := func(v uint64) {
		binary.LittleEndian.PutUint64(scratch[:], v)
		hasher.Write(scratch[:])
	}
	writeString := func(s string) {
		writeUint64(uint64(len(s)))
		hasher.Write([]byte(s))
	}

	writeUint64(uint64(len(lines)))
	if len(lines) > 0 {
		writeString(lines[0])
		writeString(lines[len(lines)-1])
	}
	total := 0
	for _, l := range lines {
		total += len(l)
	}
	writeUint64(uint64(total))
	for _, l := range lines {
		writeString(l)
	}
	return hasher.Sum64()
}
