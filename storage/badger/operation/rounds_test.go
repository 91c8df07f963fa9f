package operation

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/storage"
	"github.com/rondochain/rondo-go/utils/unittest"
)

func TestRoundInsertRetrieve(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		expected := unittest.RoundFixture(4)

		err := db.Update(InsertRound(expected))
		require.NoError(t, err)

		var actual rondo.Round
		err = db.View(RetrieveRound(expected.Number, &actual))
		require.NoError(t, err)

		// times survive encoding up to wall-clock precision, so compare
		// by content identifier
		assert.Equal(t, expected.ID(), actual.ID())
		assert.Equal(t, expected.Number, actual.Number)
		assert.Equal(t, expected.MinerCount(), actual.MinerCount())
	})
}

func TestRoundInsertDuplicate(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		round := unittest.RoundFixture(3)

		err := db.Update(InsertRound(round))
		require.NoError(t, err)

		err = db.Update(InsertRound(round))
		require.ErrorIs(t, err, storage.ErrAlreadyExists)
	})
}

func TestRoundRetrieveMissing(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		var actual rondo.Round
		err := db.View(RetrieveRound(1337, &actual))
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestCurrentRoundPointer(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		var number uint64
		err := db.View(RetrieveCurrentRound(&number))
		require.ErrorIs(t, err, storage.ErrNotFound)

		err = db.Update(InsertCurrentRound(7))
		require.NoError(t, err)

		err = db.View(RetrieveCurrentRound(&number))
		require.NoError(t, err)
		assert.Equal(t, uint64(7), number)

		err = db.Update(UpdateCurrentRound(8))
		require.NoError(t, err)

		err = db.View(RetrieveCurrentRound(&number))
		require.NoError(t, err)
		assert.Equal(t, uint64(8), number)
	})
}
