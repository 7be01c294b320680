// Package yabot orchestrates the plugins of a bot.
//
// BotAPI builds every plugin from its Provider, starts all of them at once
// with a per-plugin timeout and then forwards transport updates into the
// shared input. A plugin failing, panicking or hanging in Init is logged and
// counted, and never holds up the others.
package yabot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/google/uuid"
)

const (
	DefaultPluginInitTimeout  = 30 * time.Second
	DefaultStaleMessageWindow = 5 * time.Minute
)

// State is the lifecycle state of a BotAPI.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Config tunes a BotAPI. Zero values are replaced by package defaults.
type Config struct {
	PluginInitTimeout  time.Duration
	StaleMessageWindow time.Duration
}

// Update is one transport update. At most one of its fields is expected to
// be set; updates with none are ignored.
type Update struct {
	ID            int64
	Message       *yainput.Message
	EditedMessage *yainput.Message
	CallbackQuery *yainput.CallbackQuery
}

// InitReport summarizes InitPlugins. Failed includes TimedOut.
type InitReport struct {
	Total     int
	Succeeded int
	Failed    int
	TimedOut  int
}

// BotAPI owns the shared input and the plugin lifecycle.
type BotAPI struct {
	log       yalogger.Logger
	hub       *yainput.Hub
	input     yainput.Input
	deps      *Dependencies
	providers []Provider
	config    Config
	startTime time.Time

	state    atomic.Int32
	statuses *statusBook
}

// New creates a BotAPI fed by hub. deps.Input and deps.UnfilteredInput are
// filled in here; the other fields are handed to providers as they are.
//
// Example usage:
//
//	bot := yabot.New(hub, yabot.Dependencies{Log: log, Filters: filters, ...}, providers, yabot.Config{})
//	report := bot.InitPlugins(ctx)
func New(hub *yainput.Hub, deps Dependencies, providers []Provider, config Config) *BotAPI {
	if config.PluginInitTimeout <= 0 {
		config.PluginInitTimeout = DefaultPluginInitTimeout
	}

	if config.StaleMessageWindow <= 0 {
		config.StaleMessageWindow = DefaultStaleMessageWindow
	}

	root := hub.Input()
	shared := root.Filter()

	deps.Input = shared
	deps.UnfilteredInput = root

	return &BotAPI{
		log:       deps.Log,
		hub:       hub,
		input:     shared,
		deps:      &deps,
		providers: providers,
		config:    config,
		startTime: time.Now(),
		statuses:  newStatusBook(),
	}
}

// State returns the lifecycle state.
func (b *BotAPI) State() State {
	return State(b.state.Load())
}

// PluginStatuses returns the init outcome of every plugin in provider order.
func (b *BotAPI) PluginStatuses() []PluginStatus {
	return b.statuses.list()
}

// InitPlugins installs the ban filter, builds every plugin and initializes all
// of them concurrently. It returns when every plugin has succeeded, failed or
// timed out. A plugin that times out keeps running; if it succeeds later its
// dispose hook is still registered.
func (b *BotAPI) InitPlugins(ctx context.Context) (InitReport, yaerrors.Error) {
	if !b.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		return InitReport{}, yaerrors.FromError(
			http.StatusConflict,
			ErrAlreadyInitialized,
			"failed to init plugins",
		)
	}

	if b.deps.Filters != nil {
		b.input.InstallGlobalFilter(b.deps.Filters.NotBanned(), "banned")
	}

	var (
		wg       sync.WaitGroup
		failed   atomic.Int32
		timedOut atomic.Int32
	)

	for i, provider := range b.providers {
		plugin, err := b.provide(provider)
		if err != nil {
			name := fmt.Sprintf("provider#%d", i)

			b.log.Warnf("Error in plugin provider %s: %v", name, err)
			b.statuses.add(name).finish(StatusFailed, err, 0)
			failed.Add(1)

			continue
		}

		status := b.statuses.add(plugin.Name())

		wg.Add(1)

		go func() {
			defer wg.Done()

			switch b.initPlugin(ctx, plugin, status) {
			case StatusFailed:
				failed.Add(1)
			case StatusTimedOut:
				failed.Add(1)
				timedOut.Add(1)
			}
		}()
	}

	wg.Wait()

	report := InitReport{
		Total:    len(b.providers),
		Failed:   int(failed.Load()),
		TimedOut: int(timedOut.Load()),
	}
	report.Succeeded = report.Total - report.Failed

	if report.Failed == 0 {
		b.log.Info("All plugins initialized.")
	} else {
		b.log.Warnf("Some plugins failed (%d).", report.Failed)
	}

	b.state.Store(int32(StateReady))

	return report, nil
}

func (b *BotAPI) provide(provider Provider) (plugin Plugin, err yaerrors.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = yaerrors.FromPanic(r)
		}
	}()

	plugin, err = provider(b.deps)
	if err != nil {
		return nil, err
	}

	if plugin == nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, ErrPluginProvider, "provider returned no plugin")
	}

	return plugin, nil
}

func (b *BotAPI) initPlugin(ctx context.Context, plugin Plugin, status *PluginStatus) StatusKind {
	log := b.log.WithField(yalogger.KeyPlugin, plugin.Name())
	log.Infof("Initializing plugin: %s", plugin.Name())

	started := time.Now()
	result := make(chan yaerrors.Error, 1)

	go func() {
		result <- safeInit(ctx, plugin)
	}()

	timer := time.NewTimer(b.config.PluginInitTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		if err != nil {
			log.Warnf("Plugin %s has failed to initialize: %v", plugin.Name(), err)
			status.finish(StatusFailed, err, time.Since(started))

			return StatusFailed
		}

		b.registerDispose(plugin)
		status.finish(StatusReady, nil, time.Since(started))

		return StatusReady
	case <-timer.C:
		log.Warnf("Plugin %s has timed out in initialization!", plugin.Name())
		status.finish(
			StatusTimedOut,
			yaerrors.FromError(http.StatusGatewayTimeout, ErrInitTimeout, plugin.Name()),
			time.Since(started),
		)

		go func() {
			if err := <-result; err == nil {
				log.Infof("Plugin %s finished initialization late", plugin.Name())
				b.registerDispose(plugin)
				status.finish(StatusReady, nil, time.Since(started))
			}
		}()

		return StatusTimedOut
	}
}

func safeInit(ctx context.Context, plugin Plugin) (err yaerrors.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = yaerrors.FromPanic(r)
		}
	}()

	return plugin.Init(ctx)
}

func (b *BotAPI) registerDispose(plugin Plugin) {
	disposer, ok := plugin.(Disposer)
	if !ok || b.deps.Env == nil {
		return
	}

	log := b.log.WithField(yalogger.KeyPlugin, plugin.Name())
	hook := func(ctx context.Context) yaerrors.Error {
		log.Infof("Disposing plugin: %s", plugin.Name())

		return disposer.Dispose(ctx)
	}

	if _, err := b.deps.Env.TryOnDispose(hook); err == nil {
		return
	}

	// Shutdown already took its hooks: a late init is disposed right away.
	ctx, cancel := context.WithTimeout(context.Background(), b.deps.Env.Timeout())
	defer cancel()

	if err := safeDispose(ctx, hook); err != nil {
		log.Errorf("Plugin %s has failed to dispose: %v", plugin.Name(), err)
	}
}

func safeDispose(ctx context.Context, hook func(ctx context.Context) yaerrors.Error) (err yaerrors.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = yaerrors.FromPanic(r)
		}
	}()

	return hook(ctx)
}

// OnUpdate classifies update and forwards it into the input. Messages older
// than the staleness window relative to process start are logged and dropped.
func (b *BotAPI) OnUpdate(ctx context.Context, update Update) {
	requestID := uuid.New()
	ctx = yainput.WithRequestID(ctx, requestID)
	log := b.log.WithRequestUUID(requestID)

	switch {
	case update.Message != nil:
		b.onMessage(ctx, log, update.Message)
	case update.EditedMessage != nil:
		edited := *update.EditedMessage
		edited.Edited = true

		b.onMessage(ctx, log, &edited)
	case update.CallbackQuery != nil:
		log.WithUserID(update.CallbackQuery.From.ID).Debugf("Callback query: %s", update.CallbackQuery.ID)
		b.hub.HandleCallbackQuery(ctx, update.CallbackQuery)
	default:
		log.Debugf("Ignoring update %d", update.ID)
	}
}

func (b *BotAPI) onMessage(ctx context.Context, log yalogger.Logger, msg *yainput.Message) {
	log = log.WithChatID(msg.Chat.ID)
	log.Debugf("Message: id=%d edited=%t", msg.ID, msg.Edited)

	if b.IsOldMessage(msg) {
		log.Infof("Dropping old message [id=%d]", msg.ID)

		return
	}

	b.hub.HandleMessage(ctx, msg)
}

// IsOldMessage reports whether msg was sent, or edited, longer than the
// staleness window before the process started.
func (b *BotAPI) IsOldMessage(msg *yainput.Message) bool {
	sent := msg.Date
	if msg.Edited && !msg.EditDate.IsZero() {
		sent = msg.EditDate
	}

	return sent.Add(b.config.StaleMessageWindow).Before(b.startTime)
}

// Shutdown stops routing updates and runs the dispose hooks.
func (b *BotAPI) Shutdown(ctx context.Context) yaerrors.Error {
	b.hub.Close()

	if b.deps.Env == nil {
		return nil
	}

	if err := b.deps.Env.Dispose(ctx); err != nil {
		return err.Wrap("failed to shutdown bot")
	}

	return nil
}
