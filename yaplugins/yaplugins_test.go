package yaplugins

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yaroles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

func TestEchoText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "[Trim] - spaces are removed", in: "  привет  ", want: "Привет"},
		{name: "[Markup] - capitalized inside bold", in: "*жирный*", want: "*Жирный*"},
		{name: "[Nya] - heart is added", in: "котик ня", want: "Котик ня ❤"},
		{name: "[Nya] - capitalized nya still counts", in: "ня", want: "Ня ❤"},
		{name: "[Empty] - stays empty", in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, EchoText(tt.in))
		})
	}
}

func TestParseRoll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want RollRequest
		ok   bool
	}{
		{name: "[Default] - d20", text: "!roll", want: RollRequest{Kind: RollDice, A: 1, B: defaultFaces}, ok: true},
		{name: "[Dice] - single die", text: "!roll d6", want: RollRequest{Kind: RollDice, A: 1, B: 6}, ok: true},
		{name: "[Dice] - several dice", text: "!ролл 3d6", want: RollRequest{Kind: RollDice, A: 3, B: 6}, ok: true},
		{name: "[Dice] - too many still parses", text: "!roll 101d6", want: RollRequest{Kind: RollDice, A: 101, B: 6}, ok: true},
		{name: "[Range] - upper bound only", text: "!roll 10", want: RollRequest{Kind: RollRange, A: 1, B: 10}, ok: true},
		{name: "[Range] - explicit bounds", text: "!roll 5-10", want: RollRequest{Kind: RollRange, A: 5, B: 10}, ok: true},
		{name: "[Invalid] - bound of one", text: "!roll 1"},
		{name: "[Invalid] - reversed range", text: "!roll 10-5"},
		{name: "[Invalid] - zero faces", text: "!roll d0"},
		{name: "[Invalid] - zero dice", text: "!roll 0d6"},
		{name: "[Invalid] - huge number", text: "!roll 99999999999999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			match, err := rollPattern.FindStringSubmatch(tt.text)
			require.NoError(t, err)
			require.NotNil(t, match)

			got, ok := ParseRoll(match)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEcho_Replies(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.start(t, NewEcho)

	h.send(text(1, "просто текст"), text(1, "!скажи котик ня"))

	out := h.responder.next(t)

	assert.Equal(t, "reply", out.kind)
	assert.Equal(t, "Котик ня ❤", out.text)
	h.responder.requireQuiet(t)
}

func TestHelp_ListsCommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.start(t, NewHelp)

	h.send(text(1, "/help"))

	assert.Equal(t, HelpText, h.responder.next(t).text)
}

func TestRoll(t *testing.T) {
	t.Parallel()

	t.Run("[Dice] - roll and re-roll", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		plugin := h.start(t, NewRoll(5)).(*Roll)
		plugin.random = func(n int) int { return n - 1 }

		h.send(text(1, "!roll 3d6"))

		out := h.responder.next(t)
		require.Equal(t, "reply", out.kind)
		assert.Equal(t, "6 + 6 + 6 = 18 (3d6)", out.text)
		require.Len(t, out.buttons, 1)
		require.Len(t, out.buttons[0], 1)
		assert.Equal(t, rerollButton, out.buttons[0][0].Text)

		assert.Eventually(t, func() bool {
			return plugin.buttons.Len() == 1
		}, waitTimeout, 10*time.Millisecond)

		sentID := int(h.responder.nextID.Load())

		h.hub.HandleCallbackQuery(context.Background(), &yainput.CallbackQuery{
			ID:      "query",
			From:    yainput.User{ID: 2},
			Message: &yainput.Message{ID: sentID, Chat: out.to.Chat},
			Data:    out.buttons[0][0].Data,
		})

		edit := h.responder.next(t)
		assert.Equal(t, "edit", edit.kind)
		assert.Equal(t, "6 + 6 + 6 = 18 (3d6)", edit.text)
		assert.Equal(t, out.buttons, edit.buttons)

		answer := h.responder.next(t)
		assert.Equal(t, "answer", answer.kind)
		assert.Equal(t, "query", answer.query.ID)
	})

	t.Run("[Range] - single number", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		plugin := h.start(t, NewRoll(5)).(*Roll)
		plugin.random = func(int) int { return 0 }

		h.send(text(1, "!roll 5-10"))

		assert.Equal(t, "5 (5-10)", h.responder.next(t).text)
	})

	t.Run("[TooMany] - refuses without buttons", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.start(t, NewRoll(5))

		h.send(text(1, "!roll 101d6"))

		out := h.responder.next(t)
		assert.Equal(t, tooManyDiceMsg, out.text)
		assert.Empty(t, out.buttons)
	})

	t.Run("[Limit] - old buttons are released", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		plugin := h.start(t, NewRoll(2)).(*Roll)

		for range 4 {
			h.send(text(1, "!roll"))
			h.responder.next(t)
		}

		assert.Eventually(t, func() bool {
			return plugin.buttons.Len() == 2
		}, waitTimeout, 10*time.Millisecond)
	})

	t.Run("[RateLimit] - extra rolls are ignored", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.start(t, NewRoll(rollBurst+1))

		for range rollBurst + 1 {
			h.send(text(1, "!roll"))
		}

		for range rollBurst {
			assert.Equal(t, "reply", h.responder.next(t).kind)
		}

		h.responder.requireQuiet(t)

		h.send(text(2, "!roll"))

		assert.Equal(t, "reply", h.responder.next(t).kind)
	})

	t.Run("[Forged] - bad payload is not rolled", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.start(t, NewRoll(5))

		h.send(text(1, "!roll"))

		out := h.responder.next(t)
		sentID := int(h.responder.nextID.Load())

		h.hub.HandleCallbackQuery(context.Background(), &yainput.CallbackQuery{
			ID:      "query",
			From:    yainput.User{ID: 2},
			Message: &yainput.Message{ID: sentID, Chat: out.to.Chat},
			Data:    "not a payload",
		})

		h.responder.requireQuiet(t)
	})
}

func TestSilence(t *testing.T) {
	t.Parallel()

	const (
		admin     = 1
		moderator = 2
		user      = 3
	)

	h := newHarness(t)
	h.grant(t, admin, yaroles.RoleAdmin)
	h.grant(t, moderator, yaroles.RoleModerator)

	h.start(t, NewEcho)
	silence := h.start(t, NewSilence).(*Silence)
	silence.short = 300 * time.Millisecond

	h.send(text(user, "!тихо"))
	h.send(text(moderator, "!тихо"))

	assert.Eventually(t, func() bool {
		silence.mu.Lock()
		defer silence.mu.Unlock()

		return len(silence.active) == 1
	}, waitTimeout, 5*time.Millisecond)

	h.send(text(user, "!echo user"), text(moderator, "!echo moderator"), text(admin, "!echo admin"))

	assert.Equal(t, "Admin", h.responder.next(t).text)

	time.Sleep(silence.short + 100*time.Millisecond)

	h.send(text(user, "!echo user"))

	assert.Equal(t, "User", h.responder.next(t).text)
}

func TestSilence_DisposeLiftsSilence(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.grant(t, 1, yaroles.RoleModerator)

	h.start(t, NewEcho)

	plugin, err := NewSilence(h.deps)
	require.NoError(t, err)
	require.NoError(t, plugin.Init(context.Background()))

	silence := plugin.(*Silence)

	h.send(text(1, "!!тишина"))

	assert.Eventually(t, func() bool {
		silence.mu.Lock()
		defer silence.mu.Unlock()

		return len(silence.active) == 1
	}, waitTimeout, 5*time.Millisecond)

	require.NoError(t, silence.Dispose(context.Background()))

	h.send(text(5, "!echo free"))

	assert.Equal(t, "Free", h.responder.next(t).text)
}

func TestBan(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.grant(t, 1, yaroles.RoleAdmin)

	h.start(t, NewBan)
	h.start(t, NewEcho)

	h.send(text(7, "!ban 1"), text(1, "!бан 42"))

	assert.Equal(t, "Пользователь 42 забанен.", h.responder.next(t).text)
	assert.True(t, h.roles.HasRole(42, yaroles.RoleBanned))
	assert.False(t, h.roles.HasRole(1, yaroles.RoleBanned))

	h.send(text(42, "!echo banned"), text(7, "!echo visible"))

	assert.Equal(t, "Visible", h.responder.next(t).text)

	h.send(text(1, "!unban 42"))

	assert.Equal(t, "Пользователь 42 разбанен.", h.responder.next(t).text)
	assert.False(t, h.roles.HasRole(42, yaroles.RoleBanned))

	h.send(text(1, "!разбан 42"))

	assert.Equal(t, "Пользователь 42 не забанен.", h.responder.next(t).text)
}

func TestGreeting_FirstMatchWins(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.start(t, NewGreeting)

	h.send(text(1, "Привет и спасибо"), text(1, "большое СПАСИБО"), text(1, "приветствую"))

	replies := []string{h.responder.next(t).text, h.responder.next(t).text}

	assert.ElementsMatch(t, []string{"Привет, Ann!", "Всегда пожалуйста!"}, replies)
	h.responder.requireQuiet(t)
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "незнакомец", displayName(nil))
	assert.Equal(t, "Ann", displayName(&yainput.User{ID: 1, FirstName: "Ann", Username: "ann"}))
	assert.Equal(t, "@ann", displayName(&yainput.User{ID: 1, Username: "ann"}))
	assert.Equal(t, "id1", displayName(&yainput.User{ID: 1}))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(sqlite.Dialector{Conn: conn, DriverName: "sqlite"}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db
}

func TestUserCache(t *testing.T) {
	t.Parallel()

	t.Run("[NoDatabase] - provider fails", func(t *testing.T) {
		t.Parallel()

		_, err := NewUserCache(&yabot.Dependencies{})

		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, err.Code())
	})

	t.Run("[Store] - banned users are cached too", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.deps.DB = newTestDB(t)
		h.grant(t, 9, yaroles.RoleBanned)

		cache := h.start(t, NewUserCache).(*UserCache)

		bot := text(8, "beep")
		bot.From.IsBot = true

		h.send(text(5, "hello"), text(9, "hello"), bot)

		assert.Eventually(t, func() bool {
			cache.mu.Lock()
			defer cache.mu.Unlock()

			return len(cache.pending) == 2
		}, waitTimeout, 5*time.Millisecond)

		assert.Equal(t, 1, h.scheduler.Pending())
		require.NoError(t, h.scheduler.Flush())

		user, err := cache.Lookup(context.Background(), 9)
		require.NoError(t, err)
		assert.Equal(t, "ann", user.Username)
		assert.Equal(t, "Ann", user.FirstName)

		_, err = cache.Lookup(context.Background(), 8)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, err.Code())
	})

	t.Run("[Upsert] - newer profile overwrites", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.deps.DB = newTestDB(t)

		cache := h.start(t, NewUserCache).(*UserCache)

		first := text(5, "one")
		h.send(first)

		assert.Eventually(t, func() bool { return h.scheduler.Pending() == 1 }, waitTimeout, 5*time.Millisecond)
		require.NoError(t, h.scheduler.Flush())

		renamed := text(5, "two")
		renamed.From.Username = "anna"
		h.send(renamed)

		assert.Eventually(t, func() bool { return h.scheduler.Pending() == 1 }, waitTimeout, 5*time.Millisecond)
		require.NoError(t, h.scheduler.Flush())

		user, err := cache.Lookup(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, "anna", user.Username)
	})
}

func TestAll(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.deps.DB = newTestDB(t)

	names := make([]string, 0)

	for _, provider := range All(Options{CallbackSubscriptionLimit: 3}) {
		plugin := h.start(t, provider)
		names = append(names, plugin.Name())
	}

	assert.Equal(t, []string{"User cache", "Echo", "Help", "Dice roll", "Silence", "Ban", "Greeting"}, names)
}
