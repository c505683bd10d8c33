// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package smt

import (
	"fmt"

	"github.com/Fantom-foundation/smt/common"
)

// payloadSize is the size of encoded leaves and internal nodes: a tag
// followed by two 32-byte fields.
const payloadSize = 1 + 2*common.HashSize

// The tag of a payload equals the domain prefix used for hashing it, so the
// payload is the pre-image of the id it is stored under.

// EncodeLeaf encodes a leaf as 0x00 || key || value.
func EncodeLeaf(key common.Key, value common.Value) []byte {
	return encode(leafTag, key[:], value[:])
}

// EncodeInternal encodes an internal node as 0x01 || left || right.
func EncodeInternal(left, right common.Hash) []byte {
	return encode(internalTag, left[:], right[:])
}

func encode(tag byte, a, b []byte) []byte {
	res := make([]byte, payloadSize)
	res[0] = tag
	copy(res[1:], a)
	copy(res[1+common.HashSize:], b)
	return res
}

// DecodeLeaf decodes a payload produced by EncodeLeaf.
func DecodeLeaf(payload []byte) (common.Key, common.Value, error) {
	var key common.Key
	var value common.Value
	if err := checkPayload(payload, leafTag); err != nil {
		return key, value, err
	}
	copy(key[:], payload[1:])
	copy(value[:], payload[1+common.HashSize:])
	return key, value, nil
}

// DecodeInternal decodes a payload produced by EncodeInternal.
func DecodeInternal(payload []byte) (common.Hash, common.Hash, error) {
	var left, right common.Hash
	if err := checkPayload(payload, internalTag); err != nil {
		return left, right, err
	}
	copy(left[:], payload[1:])
	copy(right[:], payload[1+common.HashSize:])
	return left, right, nil
}

func checkPayload(payload []byte, tag byte) error {
	if len(payload) != payloadSize {
		return fmt.Errorf("%w: invalid node payload length %d, expected %d", ErrCorruptData, len(payload), payloadSize)
	}
	if payload[0] != tag {
		return fmt.Errorf("%w: invalid node tag 0x%02x, expected 0x%02x", ErrCorruptData, payload[0], tag)
	}
	return nil
}
