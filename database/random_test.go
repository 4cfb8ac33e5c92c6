package database

import (
	"math/rand"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"
)

// TestRandomOperationsAgainstReference drives a table with random
// batches of sets and removes, mirroring every step into a plain map and
// asserting record equality plus the structural invariants after each
// batch.
func TestRandomOperationsAgainstReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	fuzzer := fuzz.NewWithSeed(42)

	db := New[int, string]()
	table, err := db.EmptyTable("test")
	require.NoError(t, err)

	reference := make(map[int]string)

	const (
		steps    = 24
		keySpace = 512
	)
	for step := 0; step < steps; step++ {
		transaction := NewTransaction[int, string]()
		expected := make(map[int]string, len(reference))
		for k, v := range reference {
			expected[k] = v
		}

		touched := make(map[int]struct{})
		for i := 0; i < 64; i++ {
			key := rng.Intn(keySpace)
			if _, ok := touched[key]; ok {
				continue
			}
			touched[key] = struct{}{}

			if rng.Intn(3) == 0 {
				require.NoError(t, transaction.Remove(key))
				delete(expected, key)
				continue
			}
			var value string
			fuzzer.Fuzz(&value)
			require.NoError(t, transaction.Set(key, value))
			expected[key] = value
		}

		_, err := table.Execute(transaction)
		require.NoError(t, err)
		reference = expected

		assertRecords(t, table, reference)
		checkCorrectness(t, db, []*Table[int, string]{table})
	}
}

// TestRandomClonesShareCleanly interleaves mutations with clone and
// close cycles, checking the reference counts after every step.
func TestRandomClonesShareCleanly(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	db := New[int, int]()
	base := tableWithRecords(t, db, "base", 128)
	tables := []*Table[int, int]{base}

	for step := 0; step < 32; step++ {
		switch {
		case rng.Intn(3) == 0 && len(tables) > 1:
			index := 1 + rng.Intn(len(tables)-1)
			tables[index].Close()
			tables = append(tables[:index], tables[index+1:]...)

		case rng.Intn(2) == 0:
			tables = append(tables, tables[rng.Intn(len(tables))].Clone())

		default:
			target := tables[rng.Intn(len(tables))]
			transaction := NewTransaction[int, int]()
			for i := 0; i < 16; i++ {
				if err := transaction.Set(rng.Intn(256), rng.Int()); err != nil {
					require.ErrorIs(t, err, ErrKeyCollision)
				}
			}
			_, err := target.Execute(transaction)
			require.NoError(t, err)
		}
		checkCorrectness(t, db, tables)
	}
}
