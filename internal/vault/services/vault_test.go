package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/vaultcore/internal/common"
	"github.com/dmitrijs2005/vaultcore/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvision_SaltIsImmutable(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Salt(ctx, 7)
	require.ErrorIs(t, err, common.ErrorNotFound)

	first, err := s.Provision(ctx, 7)
	require.NoError(t, err)
	require.Len(t, first, common.SaltSize)

	second, err := s.Provision(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, first, second, "provisioning again must not replace the salt")

	other, err := s.Provision(ctx, 8)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestVerifyKey_Scenario(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	k1 := provision(t, s, 1, strongSecret)

	v, err := s.VerifyKey(ctx, 1, k1)
	require.NoError(t, err)
	assert.Equal(t, Unverifiable, v)

	_, err = s.CreateRecord(ctx, 1, "example.com", "alice", "p@ss", k1)
	require.NoError(t, err)

	salt, err := s.Salt(ctx, 1)
	require.NoError(t, err)
	k2, err := cryptox.DeriveKey([]byte("different-secret"), salt, s.kdf)
	require.NoError(t, err)
	defer k2.Destroy()

	for i := 0; i < 3; i++ {
		v, err = s.VerifyKey(ctx, 1, k1)
		require.NoError(t, err)
		assert.Equal(t, Verified, v)

		v, err = s.VerifyKey(ctx, 1, k2)
		require.NoError(t, err)
		assert.Equal(t, WrongKey, v)
	}
}

func TestVerification_String(t *testing.T) {
	assert.Equal(t, "verified", Verified.String())
	assert.Equal(t, "wrong key", WrongKey.String())
	assert.Equal(t, "unverifiable", Unverifiable.String())
}

func TestUnlock(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	_, err := s.Provision(ctx, 1)
	require.NoError(t, err)

	t.Run("weak secret on empty vault", func(t *testing.T) {
		_, _, err := s.Unlock(ctx, 1, []byte("short"))
		require.ErrorIs(t, err, common.ErrWeakSecret)
		var weak *cryptox.WeakSecretError
		require.ErrorAs(t, err, &weak)
		assert.NotEmpty(t, weak.Unmet)
	})

	t.Run("strong secret on empty vault", func(t *testing.T) {
		key, v, err := s.Unlock(ctx, 1, []byte(strongSecret))
		require.NoError(t, err)
		defer key.Destroy()
		assert.Equal(t, Unverifiable, v)

		_, err = s.CreateRecord(ctx, 1, "mail", "bob", "pw", key)
		require.NoError(t, err)
	})

	t.Run("correct secret", func(t *testing.T) {
		key, v, err := s.Unlock(ctx, 1, []byte(strongSecret))
		require.NoError(t, err)
		defer key.Destroy()
		assert.Equal(t, Verified, v)
	})

	t.Run("wrong secret yields no key", func(t *testing.T) {
		key, v, err := s.Unlock(ctx, 1, []byte("An0ther!Secret"))
		require.ErrorIs(t, err, common.ErrWrongKey)
		assert.Equal(t, WrongKey, v)
		assert.Nil(t, key)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, err := s.Unlock(ctx, 99, []byte(strongSecret))
		require.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestCreateRecord_RefusesWrongKey(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	good := provision(t, s, 1, strongSecret)
	bad, err := s.DeriveKey(ctx, 1, []byte("Wr0ng!Secret!"))
	require.NoError(t, err)
	defer bad.Destroy()

	_, err = s.CreateRecord(ctx, 1, "example.com", "alice", "p@ss", good)
	require.NoError(t, err)

	_, err = s.CreateRecord(ctx, 1, "example.com", "mallory", "x", bad)
	require.ErrorIs(t, err, common.ErrWrongKey)
	assert.Equal(t, 1, countRecords(t, db, 1))
}

func TestCreateRecord_DuplicatesAndValidation(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	key := provision(t, s, 1, strongSecret)

	for i := 0; i < 2; i++ {
		_, err := s.CreateRecord(ctx, 1, "example.com", "alice", "p@ss", key)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, countRecords(t, db, 1), "duplicates are allowed")

	_, err := s.CreateRecord(ctx, 1, "", "alice", "p@ss", key)
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = s.CreateRecord(ctx, 1, "x", "alice"+cryptox.Separator, "p@ss", key)
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = s.CreateRecord(ctx, 1, "x", "alice", string(bytes.Repeat([]byte("a"), cryptox.MaxPlaintextLen)), key)
	require.ErrorIs(t, err, common.ErrInputTooLong)
}

func TestListServices_WalksEveryServiceOnce(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	key := provision(t, s, 1, strongSecret)

	var want []string
	for i := 0; i < 7; i++ {
		name := fmt.Sprintf("svc-%02d", i)
		want = append(want, name)
		// two records per service must still list the service once
		for j := 0; j < 2; j++ {
			_, err := s.CreateRecord(ctx, 1, name, "u", "p", key)
			require.NoError(t, err)
		}
	}

	var got []string
	offset := 0
	for pages := 0; ; pages++ {
		require.Less(t, pages, 10)
		page, err := s.ListServices(ctx, 1, offset, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, page.Limit, "non-positive limit uses the configured page size")
		assert.Equal(t, offset > 0, page.HasPrev())
		got = append(got, page.Items...)
		if !page.HasMore {
			assert.Len(t, page.Items, 1)
			break
		}
		assert.Len(t, page.Items, 3)
		offset = page.Next().Offset
	}
	assert.Equal(t, want, got)
}

func TestListAndRevealRecords(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	key := provision(t, s, 1, strongSecret)

	for i := 0; i < 3; i++ {
		_, err := s.CreateRecord(ctx, 1, "mail", fmt.Sprintf("user%d", i), "pw", key)
		require.NoError(t, err)
	}
	_, err := s.CreateRecord(ctx, 1, "other", "x", "y", key)
	require.NoError(t, err)

	page, err := s.ListRecords(ctx, 1, "mail", 0, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)

	next, err := s.ListRecords(ctx, 1, "mail", page.Next().Offset, 2)
	require.NoError(t, err)
	assert.Len(t, next.Items, 1)
	assert.False(t, next.HasMore)

	revealed, err := s.RevealRecords(ctx, 1, "mail", 0, 10, key)
	require.NoError(t, err)
	require.Len(t, revealed.Items, 3)
	logins := map[string]bool{}
	for _, r := range revealed.Items {
		assert.Equal(t, "mail", r.Service)
		assert.Equal(t, "pw", r.Password)
		assert.NotEmpty(t, r.Ciphertext)
		logins[r.Login] = true
	}
	assert.Len(t, logins, 3)

	other, err := s.DeriveKey(ctx, 1, []byte("Wr0ng!Secret!"))
	require.NoError(t, err)
	defer other.Destroy()
	_, err = s.RevealRecords(ctx, 1, "mail", 0, 10, other)
	require.ErrorIs(t, err, common.ErrWrongKey)
}

func TestRenameService(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	key := provision(t, s, 1, strongSecret)

	for i := 0; i < 2; i++ {
		_, err := s.CreateRecord(ctx, 1, "old", "u", "p", key)
		require.NoError(t, err)
	}

	n, err := s.RenameService(ctx, 1, "old", "new")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err := s.ListServices(ctx, 1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, page.Items)

	_, err = s.RenameService(ctx, 1, "old", "newer")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.RenameService(ctx, 1, "new", " ")
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestDeletes(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	key := provision(t, s, 1, strongSecret)
	otherKey := provision(t, s, 2, strongSecret)

	a, err := s.CreateRecord(ctx, 1, "a", "u1", "p", key)
	require.NoError(t, err)
	_, err = s.CreateRecord(ctx, 1, "a", "u2", "p", key)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = s.CreateRecord(ctx, 1, "b", "u", "p", key)
		require.NoError(t, err)
	}
	_, err = s.CreateRecord(ctx, 2, "a", "u", "p", otherKey)
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecord(ctx, 1, "a", a.Ciphertext))
	require.ErrorIs(t, s.DeleteRecord(ctx, 1, "a", a.Ciphertext), common.ErrorNotFound)
	require.ErrorIs(t, s.DeleteRecord(ctx, 2, "a", a.Ciphertext), common.ErrorNotFound, "records are scoped to their user")
	assert.Equal(t, 4, countRecords(t, db, 1))

	n, err := s.DeleteService(ctx, 1, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = s.DeleteAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, countRecords(t, db, 1))
	assert.Equal(t, 1, countRecords(t, db, 2))

	v, err := s.VerifyKey(ctx, 1, key)
	require.NoError(t, err)
	assert.Equal(t, Unverifiable, v, "an emptied vault is unverifiable again")
}

func TestSearchServices(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	key := provision(t, s, 1, strongSecret)

	for _, name := range []string{"GitHub", "gitlab", "Mail", "100%_real", "1000 real", "git-1", "git-2", "git-3", "git-4", "Почта", "Élan"} {
		_, err := s.CreateRecord(ctx, 1, name, "u", "p", key)
		require.NoError(t, err)
	}

	got, err := s.SearchServices(ctx, 1, "MAIL")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mail"}, got)

	got, err = s.SearchServices(ctx, 1, "%_")
	require.NoError(t, err)
	assert.Equal(t, []string{"100%_real"}, got, "wildcards match literally")

	got, err = s.SearchServices(ctx, 1, "git")
	require.NoError(t, err)
	assert.Len(t, got, 5, "results are capped at the search limit")
	assert.IsNonDecreasing(t, got)

	for query, want := range map[string][]string{"Почта": {"Почта"}, "очт": {"Почта"}, "Élan": {"Élan"}, "élAN": nil} {
		got, err = s.SearchServices(ctx, 1, query)
		require.NoError(t, err)
		assert.Equal(t, want, got, query)
	}
}

func TestUpdateRecord(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	key := provision(t, s, 1, strongSecret)

	rec, err := s.CreateRecord(ctx, 1, "mail", "alice", "old", key)
	require.NoError(t, err)

	updated, err := s.UpdateRecord(ctx, 1, "mail", rec.Ciphertext, "alice", "new", key)
	require.NoError(t, err)
	assert.NotEqual(t, rec.Ciphertext, updated.Ciphertext)
	assert.Equal(t, 1, countRecords(t, db, 1))

	page, err := s.RevealRecords(ctx, 1, "mail", 0, 10, key)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "new", page.Items[0].Password)

	_, err = s.UpdateRecord(ctx, 1, "mail", rec.Ciphertext, "alice", "again", key)
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, 1, countRecords(t, db, 1), "failed update must not insert")
}
