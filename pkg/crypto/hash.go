// Package crypto provides the hashing primitives for the Nexus ledger.
//
// Consensus structures (transaction fingerprints, block hashes) use SHA-256.
// Identity derivation and resource content hashes use BLAKE3; they never
// feed back into consensus hashing, so the two domains stay independent.
package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"

	"github.com/nexus-share/nexus-ledger/pkg/types"
)

// Hash computes a SHA-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return sha256.Sum256(data)
}

// HashString computes a SHA-256 hash of a string preimage.
func HashString(s string) types.Hash {
	return sha256.Sum256([]byte(s))
}

// DeriveIdentity derives a stable 16-hex-character identity from a user
// handle and its registration instant: the first 8 bytes of
// BLAKE3(handle || nanosecond timestamp), hex-encoded.
func DeriveIdentity(handle string, registeredAt time.Time) types.Identity {
	buf := make([]byte, 0, len(handle)+8)
	buf = append(buf, handle...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(registeredAt.UnixNano()))
	sum := blake3.Sum256(buf)
	return types.Identity(hex.EncodeToString(sum[:types.IdentitySize/2]))
}

// ContentHash computes a short BLAKE3-derived content fingerprint for
// resource payloads, matching the 16-hex form the upload pipeline produces.
func ContentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
