package credstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/example/concierge/internal/domain/credential"
	"github.com/example/concierge/internal/domain/reservation"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := credential.Credential{
		Email:  "diner@example.com",
		Token:  "tok-123",
		APIKey: "key-456",
	}
	require.NoError(t, s.Save(reservation.PlatformResy, in))

	out, err := s.Get(reservation.PlatformResy)
	require.NoError(t, err)
	assert.Equal(t, "diner@example.com", out.Email)
	assert.Equal(t, "tok-123", out.Token)
	assert.Equal(t, "key-456", out.APIKey)
	assert.Equal(t, "resy", out.Platform)
	assert.False(t, out.UpdatedAt.IsZero())
}

func TestStore_ProvisionNewCredential(t *testing.T) {
	s := openTestStore(t)

	// Mirrors first-time provisioning: no stored record yet, so the
	// caller builds a fresh one keyed by the platform's string form.
	in := credential.Credential{
		Platform:  string(reservation.PlatformOpenTable),
		Email:     "diner@example.com",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Save(reservation.PlatformOpenTable, in))

	out, err := s.Get(reservation.PlatformOpenTable)
	require.NoError(t, err)
	assert.Equal(t, "opentable", out.Platform)
	assert.Equal(t, "diner@example.com", out.Email)
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(reservation.PlatformOpenTable)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_BlobIsEncrypted(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Save(reservation.PlatformResy, credential.Credential{
		Email:    "diner@example.com",
		Password: "hunter2",
	}))

	raw, err := os.ReadFile(filepath.Join(dir, "resy.cred"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
	assert.NotContains(t, string(raw), "diner@example.com")
}

func TestStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Save(reservation.PlatformResy, credential.Credential{Token: "x"}))

	info, err := os.Stat(filepath.Join(dir, "resy.cred"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save(reservation.PlatformResy, credential.Credential{Token: "x"}))
	require.NoError(t, s.Delete(reservation.PlatformResy))
	_, err := s.Get(reservation.PlatformResy)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(reservation.PlatformResy), ErrNotFound)
}

func TestStore_ReopenReadsExistingBlobs(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s1.Save(reservation.PlatformOpenTable, credential.Credential{
		Email:     "diner@example.com",
		Token:     "tok",
		CreatedAt: time.Now().UTC(),
	}))

	s2, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	out, err := s2.Get(reservation.PlatformOpenTable)
	require.NoError(t, err)
	assert.Equal(t, "tok", out.Token)
}
