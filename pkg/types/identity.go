package types

import (
	"encoding/hex"
	"fmt"
)

// IdentitySize is the length of a user identity in hex characters.
const IdentitySize = 16

// Identity is the on-chain pseudonym of a participant: a 16-hex-character
// string derived from the user handle at registration. Two values are
// reserved and never derived: SystemIdentity mints credit, GenesisIdentity
// receives the genesis transaction.
type Identity string

const (
	// SystemIdentity is the sender of minting transactions (initial
	// endowment, declaration rewards, mining rewards). Sends from it
	// never debit a balance.
	SystemIdentity Identity = "0"

	// GenesisIdentity is the reserved receiver of the genesis transaction.
	GenesisIdentity Identity = "system"

	// CommunityIdentity owns the pre-seeded community resources.
	CommunityIdentity Identity = ""
)

// IsSystem returns true for the minting identity.
func (id Identity) IsSystem() bool {
	return id == SystemIdentity
}

// IsReserved returns true for identities that cannot belong to a user.
func (id Identity) IsReserved() bool {
	return id == SystemIdentity || id == GenesisIdentity || id == CommunityIdentity
}

// Valid reports whether id is a well-formed user identity:
// exactly 16 lowercase hex characters.
func (id Identity) Valid() bool {
	if len(id) != IdentitySize {
		return false
	}
	b, err := hex.DecodeString(string(id))
	return err == nil && len(b) == IdentitySize/2
}

// ParseIdentity validates a raw string as a user identity.
func ParseIdentity(s string) (Identity, error) {
	id := Identity(s)
	if id.IsReserved() {
		return id, nil
	}
	if !id.Valid() {
		return "", fmt.Errorf("identity must be %d hex characters, got %q", IdentitySize, s)
	}
	return id, nil
}
