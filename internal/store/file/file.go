package file

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	envelopeVersion = 1
	saltSize        = 16
	nonceSize       = 24
	keySize         = 32

	// scrypt cost parameters.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// ErrBadPassphrase is returned when an encrypted file cannot be opened.
var ErrBadPassphrase = errors.New("session file cannot be decrypted, wrong passphrase?")

// envelope is the on-disk form of an encrypted store.
type envelope struct {
	Version int    `json:"v"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Box     []byte `json:"box"`
}

// Store keeps entries in a single JSON file. Every write replaces the file
// atomically. With a passphrase the content is sealed with NaCl secretbox
// under a scrypt-derived key.
type Store struct {
	path       string
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	key  *[keySize]byte
}

// Option customizes a Store.
type Option func(*Store)

// WithPassphrase enables encryption at rest.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		if passphrase != "" {
			s.passphrase = []byte(passphrase)
		}
	}
}

// NewStore creates a store backed by path. The file and its directory are
// created on first write.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultPath returns the per-user session file of profile.
func DefaultPath(profile string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	if profile == "" {
		profile = "default"
	}
	return filepath.Join(dir, "shelf", profile+".session.json"), nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data[key] = value
	return s.save(data)
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		// An unreadable file is replaced, so clearing a corrupt session works.
		data = map[string]string{}
	}
	if _, ok := data[key]; !ok && err == nil {
		return nil
	}
	delete(data, key)
	return s.save(data)
}

func (s *Store) Path() string { return s.path }

func (s *Store) Encrypted() bool { return s.passphrase != nil }

func (s *Store) Close() error { return nil }

func (s *Store) Name() string { return "file" }

func (s *Store) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	if s.passphrase != nil {
		raw, err = s.open(raw)
		if err != nil {
			return nil, err
		}
	}

	data := map[string]string{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return data, nil
}

func (s *Store) save(data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if s.passphrase != nil {
		raw, err = s.seal(raw)
		if err != nil {
			return err
		}
	}
	return writeAtomic(s.path, raw)
}

func (s *Store) seal(plain []byte) ([]byte, error) {
	if s.key == nil {
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		if err := s.deriveKey(salt); err != nil {
			return nil, err
		}
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	env := envelope{
		Version: envelopeVersion,
		Salt:    s.salt,
		Nonce:   nonce[:],
		Box:     secretbox.Seal(nil, plain, &nonce, s.key),
	}
	return json.Marshal(env)
}

func (s *Store) open(raw []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if env.Version != envelopeVersion || len(env.Nonce) != nonceSize || len(env.Salt) == 0 {
		return nil, fmt.Errorf("%s: unsupported session file format", s.path)
	}
	if s.key == nil || string(env.Salt) != string(s.salt) {
		if err := s.deriveKey(env.Salt); err != nil {
			return nil, err
		}
	}

	var nonce [nonceSize]byte
	copy(nonce[:], env.Nonce)
	plain, ok := secretbox.Open(nil, env.Box, &nonce, s.key)
	if !ok {
		return nil, ErrBadPassphrase
	}
	return plain, nil
}

func (s *Store) deriveKey(salt []byte) error {
	k, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], k)
	s.key = &key
	s.salt = append([]byte(nil), salt...)
	return nil
}

// writeAtomic writes through a temp file in the same directory and renames
// it over path, so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
