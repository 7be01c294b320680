package yatgupdates

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/gotd/td/telegram"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BotSession is the row holding the encrypted MTProto session of one bot.
type BotSession struct {
	BotID     int64     `gorm:"primaryKey;autoIncrement:false"`
	Data      []byte    `gorm:"type:blob"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SessionStorage persists the gotd session in SQL, sealed with AES-GCM under
// a key derived from the bot token. It implements telegram.SessionStorage.
type SessionStorage struct {
	db    *gorm.DB
	botID int64
	aead  cipher.AEAD
}

var _ telegram.SessionStorage = (*SessionStorage)(nil)

// NewSessionStorage migrates the session table and returns a storage for botID.
//
// Example usage:
//
//	storage, err := yatgupdates.NewSessionStorage(db, botID, token)
func NewSessionStorage(db *gorm.DB, botID int64, secret string) (*SessionStorage, yaerrors.Error) {
	if err := db.AutoMigrate(&BotSession{}); err != nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, err, "failed to migrate sessions")
	}

	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, err, "failed to create cipher")
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, err, "failed to create cipher")
	}

	return &SessionStorage{db: db, botID: botID, aead: aead}, nil
}

// LoadSession returns the decrypted session, or nil when none is stored yet.
func (s *SessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	var row BotSession

	err := s.db.WithContext(ctx).
		Where(&BotSession{BotID: s.botID}).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, err, "failed to load session")
	}

	nonceSize := s.aead.NonceSize()
	if len(row.Data) < nonceSize {
		return nil, yaerrors.FromError(http.StatusInternalServerError, ErrSessionNotDecoded, "session is truncated")
	}

	plain, err := s.aead.Open(nil, row.Data[:nonceSize], row.Data[nonceSize:], nil)
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			errors.Join(err, ErrSessionNotDecoded),
			"failed to load session",
		)
	}

	return plain, nil
}

// StoreSession encrypts data and upserts it.
func (s *SessionStorage) StoreSession(ctx context.Context, data []byte) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return yaerrors.FromError(http.StatusInternalServerError, err, "failed to generate nonce")
	}

	sealed := s.aead.Seal(nonce, nonce, data, nil)

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bot_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&BotSession{BotID: s.botID, Data: sealed}).Error; err != nil {
		return yaerrors.FromError(http.StatusInternalServerError, err, "failed to store session")
	}

	return nil
}
