package rondo

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/onflow/flow-go/crypto"
	"github.com/onflow/flow-go/crypto/hash"
	"github.com/vmihailenco/msgpack/v4"
)

// Identifier represents a 32-byte unique identifier for an entity.
type Identifier [32]byte

// ZeroID is the lowest value in the 32-byte ID space.
var ZeroID = Identifier{}

// HashToID returns the identifier corresponding to the SHA3-256 hash of the
// given data.
func HashToID(data []byte) Identifier {
	hasher := hash.NewSHA3_256()
	digest := hasher.ComputeHash(data)
	var id Identifier
	copy(id[:], digest)
	return id
}

// MakeID creates an identifier from the canonical (msgpack) encoding of the
// given entity. Entities must encode deterministically for MakeID to be a
// valid structural hash; in particular, maps must be converted to sorted
// slices before encoding.
func MakeID(entity interface{}) Identifier {
	data, err := msgpack.Marshal(entity)
	if err != nil {
		panic(fmt.Sprintf("could not encode entity for ID: %v", err))
	}
	return HashToID(data)
}

// MinerID derives the identifier of a miner from its public key.
func MinerID(key crypto.PublicKey) Identifier {
	return HashToID(key.Encode())
}

// HexStringToIdentifier converts a hex string to an identifier. The input
// must be 64 characters long and contain only valid hex characters.
func HexStringToIdentifier(hexString string) (Identifier, error) {
	var id Identifier
	bz, err := hex.DecodeString(hexString)
	if err != nil {
		return id, fmt.Errorf("could not decode hex string: %w", err)
	}
	if len(bz) != len(id) {
		return id, fmt.Errorf("malformed input, expected 32 bytes (64 characters), got %d bytes", len(bz))
	}
	copy(id[:], bz)
	return id, nil
}

func (id Identifier) String() string {
	return hex.EncodeToString(id[:])
}

func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identifier) UnmarshalText(text []byte) error {
	var err error
	*id, err = HexStringToIdentifier(string(text))
	return err
}

// IdentifierList defines a sortable list of identifiers.
type IdentifierList []Identifier

func (il IdentifierList) Len() int {
	return len(il)
}

func (il IdentifierList) Less(i, j int) bool {
	return IsIdentifierCanonical(il[i], il[j])
}

func (il IdentifierList) Swap(i, j int) {
	il[i], il[j] = il[j], il[i]
}

// IsIdentifierCanonical returns true if the first identifier is strictly
// smaller than the second one in the canonical (byte-lexicographic) ordering.
func IsIdentifierCanonical(a Identifier, b Identifier) bool {
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Sort returns a sorted copy of the list in canonical order.
func (il IdentifierList) Sort() IdentifierList {
	dup := make(IdentifierList, len(il))
	copy(dup, il)
	sort.Sort(dup)
	return dup
}

// Contains returns whether this identifier list contains the target identifier.
func (il IdentifierList) Contains(target Identifier) bool {
	for _, id := range il {
		if id == target {
			return true
		}
	}
	return false
}
