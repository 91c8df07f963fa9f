package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/rondochain/rondo-go/model/rondo"
)

func InsertRound(round *rondo.Round) func(*badger.Txn) error {
	return insert(makePrefix(codeRound, round.Number), round)
}

// UpsertRound replaces the stored round with the same number, inserting it
// if it does not exist yet. Committed rounds are re-written in place as
// same-round proposals accumulate slot updates.
func UpsertRound(round *rondo.Round) func(*badger.Txn) error {
	return upsert(makePrefix(codeRound, round.Number), round)
}

func RetrieveRound(number uint64, round *rondo.Round) func(*badger.Txn) error {
	return retrieve(makePrefix(codeRound, number), round)
}

func ExistsRound(number uint64, isStored *bool) func(*badger.Txn) error {
	return exists(makePrefix(codeRound, number), isStored)
}

// InsertCurrentRound sets the current-round pointer for the first time.
func InsertCurrentRound(number uint64) func(*badger.Txn) error {
	return insert(makePrefix(codeCurrentRound), number)
}

// UpdateCurrentRound moves the current-round pointer to the given number.
func UpdateCurrentRound(number uint64) func(*badger.Txn) error {
	return update(makePrefix(codeCurrentRound), number)
}

func RetrieveCurrentRound(number *uint64) func(*badger.Txn) error {
	return retrieve(makePrefix(codeCurrentRound), number)
}
