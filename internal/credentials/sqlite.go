package credentials

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/supervisorapp/supervisor-client/internal/core/datamodel/user"
)

// scrypt parameters for the at-rest key. The salt is fixed: the store
// protects a local file, not a password database.
const (
	scryptN    = 1 << 15
	scryptR    = 8
	scryptP    = 1
	scryptSalt = "supervisor-credential-store"
)

type record struct {
	Name      string `gorm:"primaryKey;column:name"`
	Value     []byte `gorm:"column:value"`
	UpdatedAt time.Time
}

func (record) TableName() string { return "credentials" }

// SQLiteStore persists credentials in a local sqlite file. Values are
// sealed with a key derived from the configured secret, so tokens
// never sit on disk in the clear.
type SQLiteStore struct {
	db     *gorm.DB
	key    [32]byte
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the credential database at
// path and derives the sealing key from secret.
func OpenSQLite(path, secret string, logger *slog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate credential store: %w", err)
	}

	derived, err := scrypt.Key([]byte(secret), []byte(scryptSalt), scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, fmt.Errorf("derive storage key: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	copy(store.key[:], derived)
	return store, nil
}

func (s *SQLiteStore) seal(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

func (s *SQLiteStore) open(sealed []byte) ([]byte, error) {
	if len(sealed) < 24 {
		return nil, errors.New("sealed value too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.key)
	if !ok {
		return nil, errors.New("sealed value did not authenticate")
	}
	return plaintext, nil
}

func (s *SQLiteStore) get(name string) []byte {
	var rec record
	err := s.db.First(&rec, "name = ?", name).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("credential read failed", "name", name, "error", err)
		}
		return nil
	}

	plaintext, err := s.open(rec.Value)
	if err != nil {
		// Wrong secret or corrupt row. Treat as absent; the session
		// layer falls back to unauthenticated.
		s.logger.Warn("credential unreadable, ignoring", "name", name, "error", err)
		return nil
	}
	return plaintext
}

func (s *SQLiteStore) put(name string, plaintext []byte) error {
	sealed, err := s.seal(plaintext)
	if err != nil {
		return fmt.Errorf("seal credential %s: %w", name, err)
	}

	rec := record{Name: name, Value: sealed, UpdatedAt: time.Now()}
	if err := s.db.Save(&rec).Error; err != nil {
		return fmt.Errorf("write credential %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) delete(name string) error {
	return s.db.Delete(&record{}, "name = ?", name).Error
}

func (s *SQLiteStore) AccessToken() string {
	return string(s.get(keyAccessToken))
}

func (s *SQLiteStore) SaveAccessToken(token string) error {
	if token == "" {
		return s.delete(keyAccessToken)
	}
	return s.put(keyAccessToken, []byte(token))
}

func (s *SQLiteStore) RefreshToken() string {
	return string(s.get(keyRefreshToken))
}

func (s *SQLiteStore) SaveRefreshToken(token string) error {
	if token == "" {
		return s.delete(keyRefreshToken)
	}
	return s.put(keyRefreshToken, []byte(token))
}

func (s *SQLiteStore) User() *user.User {
	raw := s.get(keyUser)
	if len(raw) == 0 {
		return nil
	}

	var u user.User
	if err := json.Unmarshal(raw, &u); err != nil {
		s.logger.Warn("stored user snapshot unreadable, ignoring", "error", err)
		return nil
	}
	return &u
}

func (s *SQLiteStore) SaveUser(u *user.User) error {
	if u == nil {
		return s.delete(keyUser)
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user snapshot: %w", err)
	}
	return s.put(keyUser, raw)
}

func (s *SQLiteStore) Clear() error {
	return s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&record{}).Error
}

var _ Store = (*SQLiteStore)(nil)
