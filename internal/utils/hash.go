// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"sync"
)

// hasherPool holds reusable HMAC-SHA256 instances keyed with the value passed
// to InitHasherPool. Must be initialized before Hash is called.
var hasherPool sync.Pool

// InitHasherPool initializes the package-level pool of HMAC-SHA256 hashers.
// Every hasher in the pool uses hashKey.
//
// Example usage:
//
//	utils.InitHasherPool(cfg.App.HashKey)
func InitHasherPool(hashKey string) {
	hasherPool = sync.Pool{
		New: func() any {
			return hmac.New(sha256.New, []byte(hashKey))
		},
	}
}

// Hash computes an HMAC-SHA256 digest over data using a pooled hasher.
func Hash(data []byte) []byte {
	h := hasherPool.Get().(hash.Hash)
	h.Reset()

	h.Write(data)
	sum := h.Sum(nil)

	h.Reset()
	hasherPool.Put(h)

	return sum
}

// HashHex returns the hex-encoded pooled HMAC-SHA256 digest of data.
// This is the value carried in the HashSHA256 header of record requests.
func HashHex(data []byte) string {
	return hex.EncodeToString(Hash(data))
}

// VerifyHash reports whether expectedHex is the pooled HMAC-SHA256 digest
// of data. The comparison is constant-time.
func VerifyHash(data []byte, expectedHex string) bool {
	expected, err := hex.DecodeString(expectedHex)
	if err != nil {
		return false
	}

	return hmac.Equal(Hash(data), expected)
}

// HashString computes a one-off HMAC-SHA256 of data with hashKey and returns
// it hex-encoded. It does not touch the pool.
func HashString(data string, hashKey string) string {
	hasher := hmac.New(sha256.New, []byte(hashKey))
	hasher.Write([]byte(data))
	return hex.EncodeToString(hasher.Sum(nil))
}
