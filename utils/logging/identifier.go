package logging

import (
	"encoding/hex"

	"github.com/rondochain/rondo-go/model/rondo"
)

func ID(id rondo.Identifier) []byte {
	return id[:]
}

func IDs(ids rondo.IdentifierList) []string {
	ss := make([]string, 0, len(ids))
	for _, id := range ids {
		ss = append(ss, hex.EncodeToString(id[:]))
	}
	return ss
}
