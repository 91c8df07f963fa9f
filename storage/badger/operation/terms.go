package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/rondochain/rondo-go/model/rondo"
)

func InsertTerm(term *rondo.Term) func(*badger.Txn) error {
	return insert(makePrefix(codeTerm, term.Number), term)
}

func RetrieveTerm(number uint64, term *rondo.Term) func(*badger.Txn) error {
	return retrieve(makePrefix(codeTerm, number), term)
}
