// Package credstore persists one encrypted credential blob per platform
// on local disk. The encryption key comes from the OS secret store when
// available, otherwise from a locally generated key file with owner-only
// permissions.
package credstore

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/scrypt"

	"github.com/example/concierge/internal/crypto"
	"github.com/example/concierge/internal/domain/credential"
	"github.com/example/concierge/internal/domain/reservation"
)

const (
	keyringService = "concierge"
	keyringItem    = "credstore-key"
	keyFileName    = "key"
	saltFileName   = "salt"
)

var ErrNotFound = errors.New("credential not found")

type Store struct {
	dir  string
	aead *crypto.AEAD
	log  zerolog.Logger
}

// Open prepares the store directory (0700) and its AEAD. Key material is
// looked up in the OS keyring first; a missing keyring entry falls back
// to a generated key file (0600). Either way the AES key is derived with
// scrypt over a per-store salt.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("credstore dir: %w", err)
	}

	material, err := keyMaterial(dir, log)
	if err != nil {
		return nil, err
	}
	salt, err := saltBytes(dir)
	if err != nil {
		return nil, err
	}
	key, err := scrypt.Key(material, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := crypto.New(key)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, aead: aead, log: log}, nil
}

func keyMaterial(dir string, log zerolog.Logger) ([]byte, error) {
	if secret, err := keyring.Get(keyringService, keyringItem); err == nil && secret != "" {
		return []byte(secret), nil
	}

	path := filepath.Join(dir, keyFileName)
	if b, err := os.ReadFile(path); err == nil {
		return b, nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	encoded := []byte(base64.RawStdEncoding.EncodeToString(b))
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	// Best effort: mirror into the keyring so future processes prefer it.
	if err := keyring.Set(keyringService, keyringItem, string(encoded)); err != nil {
		log.Debug().Err(err).Msg("keyring unavailable, using key file")
	}
	return encoded, nil
}

func saltBytes(dir string) ([]byte, error) {
	path := filepath.Join(dir, saltFileName)
	if b, err := os.ReadFile(path); err == nil {
		return b, nil
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return nil, fmt.Errorf("write salt file: %w", err)
	}
	return b, nil
}

func (s *Store) path(p reservation.Platform) string {
	return filepath.Join(s.dir, string(p)+".cred")
}

func (s *Store) Get(p reservation.Platform) (credential.Credential, error) {
	b, err := os.ReadFile(s.path(p))
	if errors.Is(err, os.ErrNotExist) {
		return credential.Credential{}, ErrNotFound
	}
	if err != nil {
		return credential.Credential{}, err
	}
	plain, err := s.aead.DecryptString(string(b))
	if err != nil {
		return credential.Credential{}, fmt.Errorf("decrypt %s credential: %w", p, err)
	}
	var c credential.Credential
	if err := json.Unmarshal(plain, &c); err != nil {
		return credential.Credential{}, fmt.Errorf("decode %s credential: %w", p, err)
	}
	return c, nil
}

func (s *Store) Save(p reservation.Platform, c credential.Credential) error {
	c.Platform = string(p)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = time.Now().UTC()

	plain, err := json.Marshal(c)
	if err != nil {
		return err
	}
	ct, err := s.aead.EncryptToString(plain)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(p), []byte(ct), 0o600)
}

func (s *Store) Delete(p reservation.Platform) error {
	err := os.Remove(s.path(p))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
