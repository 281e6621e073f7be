package tests

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/todo-server/pkg/database/query"
	"github.com/code-payments/todo-server/pkg/ledger"
)

func RunTests(t *testing.T, s ledger.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s ledger.Store){
		testRoundTrip,
		testUpdate,
		testDelete,
		testStaleCreate,
		testDuplicateSignature,
		testAtomicCommit,
		testGetAllByOwner,
		testCountByOwner,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s ledger.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		expected := &ledger.Account{
			Address:  newAddress(t),
			Owner:    newAddress(t),
			Lamports: 1_000_000,
			Data:     []byte("data"),
		}

		actual, err := s.Get(ctx, expected.Address)
		assert.Equal(t, ledger.ErrAccountNotFound, err)
		assert.Nil(t, actual)

		require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{
			Signature: "sig1",
			Created:   []*ledger.Account{expected},
		}))
		assert.EqualValues(t, 1, expected.Id)
		assert.EqualValues(t, 1, expected.Version)

		actual, err = s.Get(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentAccounts(t, expected, actual)

		// Identities carry no data
		identity := &ledger.Account{
			Address:  newAddress(t),
			Owner:    newAddress(t),
			Lamports: 5,
		}
		require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{
			Signature: "sig2",
			Created:   []*ledger.Account{identity},
		}))

		actual, err = s.Get(ctx, identity.Address)
		require.NoError(t, err)
		assert.Empty(t, actual.Data)
		assert.EqualValues(t, 5, actual.Lamports)
	})
}

func testUpdate(t *testing.T, s ledger.Store) {
	t.Run("testUpdate", func(t *testing.T) {
		ctx := context.Background()

		record := &ledger.Account{
			Address:  newAddress(t),
			Owner:    newAddress(t),
			Lamports: 10,
			Data:     []byte{0, 0, 0},
		}
		require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{Signature: "create", Created: []*ledger.Account{record}}))

		stale := record.Clone()

		record.Lamports = 20
		record.Data = []byte{1, 2, 3}
		require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{Signature: "update", Updated: []*ledger.Account{record}}))
		assert.EqualValues(t, 2, record.Version)

		actual, err := s.Get(ctx, record.Address)
		require.NoError(t, err)
		assertEquivalentAccounts(t, record, actual)

		stale.Lamports = 30
		assert.Equal(t, ledger.ErrStaleAccount, s.Commit(ctx, &ledger.ChangeSet{Signature: "stale", Updated: []*ledger.Account{&stale}}))

		actual, err = s.Get(ctx, record.Address)
		require.NoError(t, err)
		assert.EqualValues(t, 20, actual.Lamports)
		assert.EqualValues(t, 2, actual.Version)

		missing := &ledger.Account{Address: newAddress(t), Owner: newAddress(t), Version: 1}
		assert.Equal(t, ledger.ErrStaleAccount, s.Commit(ctx, &ledger.ChangeSet{Signature: "missing", Updated: []*ledger.Account{missing}}))
	})
}

func testDelete(t *testing.T, s ledger.Store) {
	t.Run("testDelete", func(t *testing.T) {
		ctx := context.Background()

		record := &ledger.Account{
			Address:  newAddress(t),
			Owner:    newAddress(t),
			Lamports: 10,
			Data:     []byte{1},
		}
		require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{Signature: "create", Created: []*ledger.Account{record}}))

		stale := record.Clone()
		stale.Version = 0
		assert.Equal(t, ledger.ErrStaleAccount, s.Commit(ctx, &ledger.ChangeSet{Signature: "stale", Deleted: []*ledger.Account{&stale}}))

		require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{Signature: "delete", Deleted: []*ledger.Account{record}}))

		_, err := s.Get(ctx, record.Address)
		assert.Equal(t, ledger.ErrAccountNotFound, err)

		assert.Equal(t, ledger.ErrStaleAccount, s.Commit(ctx, &ledger.ChangeSet{Signature: "delete-again", Deleted: []*ledger.Account{record}}))
	})
}

func testStaleCreate(t *testing.T, s ledger.Store) {
	t.Run("testStaleCreate", func(t *testing.T) {
		ctx := context.Background()

		record := &ledger.Account{Address: newAddress(t), Owner: newAddress(t), Data: []byte{1}}
		require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{Signature: "first", Created: []*ledger.Account{record}}))

		duplicate := &ledger.Account{Address: record.Address, Owner: newAddress(t), Data: []byte{2}}
		assert.Equal(t, ledger.ErrStaleAccount, s.Commit(ctx, &ledger.ChangeSet{Signature: "second", Created: []*ledger.Account{duplicate}}))

		actual, err := s.Get(ctx, record.Address)
		require.NoError(t, err)
		assert.Equal(t, record.Owner, actual.Owner)
	})
}

func testDuplicateSignature(t *testing.T, s ledger.Store) {
	t.Run("testDuplicateSignature", func(t *testing.T) {
		ctx := context.Background()

		require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{Signature: "sig"}))

		record := &ledger.Account{Address: newAddress(t), Owner: newAddress(t)}
		assert.Equal(t, ledger.ErrDuplicateSignature, s.Commit(ctx, &ledger.ChangeSet{Signature: "sig", Created: []*ledger.Account{record}}))

		_, err := s.Get(ctx, record.Address)
		assert.Equal(t, ledger.ErrAccountNotFound, err)
	})
}

func testAtomicCommit(t *testing.T, s ledger.Store) {
	t.Run("testAtomicCommit", func(t *testing.T) {
		ctx := context.Background()

		existing := &ledger.Account{Address: newAddress(t), Owner: newAddress(t), Lamports: 100}
		require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{Signature: "setup", Created: []*ledger.Account{existing}}))

		created := &ledger.Account{Address: newAddress(t), Owner: newAddress(t), Lamports: 50}
		stale := existing.Clone()
		stale.Version = 5
		stale.Lamports = 50

		changes := &ledger.ChangeSet{
			Signature: "atomic",
			Created:   []*ledger.Account{created},
			Updated:   []*ledger.Account{&stale},
		}
		assert.Equal(t, ledger.ErrStaleAccount, s.Commit(ctx, changes))

		_, err := s.Get(ctx, created.Address)
		assert.Equal(t, ledger.ErrAccountNotFound, err)

		actual, err := s.Get(ctx, existing.Address)
		require.NoError(t, err)
		assert.EqualValues(t, 100, actual.Lamports)

		// The signature of a failed commit remains available
		stale.Version = existing.Version
		require.NoError(t, s.Commit(ctx, changes))

		actual, err = s.Get(ctx, existing.Address)
		require.NoError(t, err)
		assert.EqualValues(t, 50, actual.Lamports)

		_, err = s.Get(ctx, created.Address)
		require.NoError(t, err)

		// An account can't appear twice
		record := existing.Clone()
		assert.Error(t, s.Commit(ctx, &ledger.ChangeSet{
			Signature: "twice",
			Updated:   []*ledger.Account{&record},
			Deleted:   []*ledger.Account{&record},
		}))
	})
}

func testGetAllByOwner(t *testing.T, s ledger.Store) {
	t.Run("testGetAllByOwner", func(t *testing.T) {
		ctx := context.Background()

		owner := newAddress(t)
		otherOwner := newAddress(t)

		_, err := s.GetAllByOwner(ctx, owner, nil, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, ledger.ErrAccountNotFound, err)

		var expected []*ledger.Account
		for i := 0; i < 10; i++ {
			prefix := []byte("even")
			if i%2 == 1 {
				prefix = []byte("odd")
			}

			record := &ledger.Account{
				Address: newAddress(t),
				Owner:   owner,
				Data:    append(prefix, []byte(fmt.Sprintf("-%d", i))...),
			}
			require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{Signature: fmt.Sprintf("sig%d", i), Created: []*ledger.Account{record}}))
			expected = append(expected, record)

			other := &ledger.Account{
				Address: newAddress(t),
				Owner:   otherOwner,
				Data:    prefix,
			}
			require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{Signature: fmt.Sprintf("other%d", i), Created: []*ledger.Account{other}}))
		}

		actual, err := s.GetAllByOwner(ctx, owner, nil, query.EmptyCursor, 100, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 10)
		for i := range actual {
			assertEquivalentAccounts(t, expected[i], actual[i])
		}

		actual, err = s.GetAllByOwner(ctx, owner, []byte("even"), query.EmptyCursor, 100, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i := range actual {
			assertEquivalentAccounts(t, expected[2*i], actual[i])
		}

		actual, err = s.GetAllByOwner(ctx, owner, []byte("odd"), query.EmptyCursor, 100, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i := range actual {
			assertEquivalentAccounts(t, expected[9-2*i], actual[i])
		}

		actual, err = s.GetAllByOwner(ctx, owner, nil, query.EmptyCursor, 3, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assertEquivalentAccounts(t, expected[2], actual[2])

		actual, err = s.GetAllByOwner(ctx, owner, nil, query.ToCursor(actual[2].Id), 3, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assertEquivalentAccounts(t, expected[3], actual[0])

		actual, err = s.GetAllByOwner(ctx, owner, nil, query.ToCursor(expected[3].Id), 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assertEquivalentAccounts(t, expected[2], actual[0])

		_, err = s.GetAllByOwner(ctx, owner, []byte("none"), query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, ledger.ErrAccountNotFound, err)
	})
}

func testCountByOwner(t *testing.T, s ledger.Store) {
	t.Run("testCountByOwner", func(t *testing.T) {
		ctx := context.Background()

		owner := newAddress(t)

		count, err := s.CountByOwner(ctx, owner)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		var records []*ledger.Account
		for i := 0; i < 3; i++ {
			records = append(records, &ledger.Account{Address: newAddress(t), Owner: owner, Data: []byte{byte(i)}})
		}
		require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{Signature: "create", Created: records}))

		count, err = s.CountByOwner(ctx, owner)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)

		require.NoError(t, s.Commit(ctx, &ledger.ChangeSet{Signature: "delete", Deleted: records[:1]}))

		count, err = s.CountByOwner(ctx, owner)
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)
	})
}

func assertEquivalentAccounts(t *testing.T, obj1, obj2 *ledger.Account) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.Lamports, obj2.Lamports)
	assert.Equal(t, obj1.Data, obj2.Data)
	assert.Equal(t, obj1.Version, obj2.Version)
}

func newAddress(t *testing.T) string {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return base58.Encode(pub)
}
