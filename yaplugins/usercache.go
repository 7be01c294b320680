package yaplugins

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CachedUser is the last known profile of a message sender.
type CachedUser struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Username  string
	FirstName string
	LastSeen  time.Time `gorm:"index"`
}

// UserCache remembers who wrote to the bot, including banned users. Writes are
// batched through the low priority queue of the scheduler.
type UserCache struct {
	deps *yabot.Dependencies

	mu      sync.Mutex
	pending map[int64]CachedUser
	queued  bool

	subscriptions
}

// NewUserCache is the UserCache provider. It fails when no database is set.
func NewUserCache(deps *yabot.Dependencies) (yabot.Plugin, yaerrors.Error) {
	if deps.DB == nil {
		return nil, yaerrors.FromString(http.StatusInternalServerError, "user cache needs a database")
	}

	return &UserCache{deps: deps, pending: make(map[int64]CachedUser)}, nil
}

func (u *UserCache) Name() string {
	return "User cache"
}

func (u *UserCache) Init(ctx context.Context) yaerrors.Error {
	if err := u.deps.DB.WithContext(ctx).AutoMigrate(&CachedUser{}); err != nil {
		return yaerrors.FromError(http.StatusInternalServerError, err, "failed to migrate user cache")
	}

	u.add(u.deps.UnfilteredInput.OnMessage(u.remember))

	return nil
}

// Dispose writes what is still pending.
func (u *UserCache) Dispose(ctx context.Context) yaerrors.Error {
	u.unsubscribe()

	return u.flush(ctx)
}

func (u *UserCache) remember(_ context.Context, msg *yainput.Message) yaerrors.Error {
	if msg.From == nil || msg.From.IsBot {
		return nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.pending[msg.From.ID] = CachedUser{
		ID:        msg.From.ID,
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
		LastSeen:  msg.Date,
	}

	if !u.queued {
		u.queued = true
		u.deps.Scheduler.ScheduleLowPriority(u.flush)
	}

	return nil
}

func (u *UserCache) flush(ctx context.Context) yaerrors.Error {
	u.mu.Lock()
	users := make([]CachedUser, 0, len(u.pending))

	for _, user := range u.pending {
		users = append(users, user)
	}

	clear(u.pending)
	u.queued = false
	u.mu.Unlock()

	if len(users) == 0 {
		return nil
	}

	err := u.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_seen"}),
	}).Create(&users).Error
	if err != nil {
		return yaerrors.FromError(http.StatusInternalServerError, err, "failed to store cached users")
	}

	u.deps.Log.Debugf("Stored %d cached users", len(users))

	return nil
}

// Lookup returns the stored profile of userID.
func (u *UserCache) Lookup(ctx context.Context, userID int64) (*CachedUser, yaerrors.Error) {
	var user CachedUser

	err := u.deps.DB.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, yaerrors.FromError(http.StatusNotFound, err, "user is not cached")
	}

	if err != nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, err, "failed to look up user")
	}

	return &user, nil
}
