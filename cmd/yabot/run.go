package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yaconfig"
	"github.com/YaCodeDev/GoYaBotCore/yaenv"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yafilter"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/YaCodeDev/GoYaBotCore/yaplugins"
	"github.com/YaCodeDev/GoYaBotCore/yaroles"
	"github.com/YaCodeDev/GoYaBotCore/yascheduler"
	"github.com/YaCodeDev/GoYaBotCore/yastatus"
	"github.com/YaCodeDev/GoYaBotCore/yatgupdates"
	"github.com/gotd/td/tg"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

func run(ctx context.Context, config yaconfig.Bot, log yalogger.Logger) yaerrors.Error {
	roles, closeRoles, err := openRoles(ctx, config, log)
	if err != nil {
		return err
	}
	defer closeRoles()

	db, err := openDatabase(config.DatabasePath)
	if err != nil {
		return err
	}

	botID, err := yatgupdates.BotID(config.Telegram.BotToken)
	if err != nil {
		return err
	}

	session, err := yatgupdates.NewSessionStorage(db, botID, config.Telegram.BotToken)
	if err != nil {
		return err
	}

	dispatcher := tg.NewUpdateDispatcher()

	client, err := yatgupdates.NewClient(yatgupdates.ClientOptions{
		AppID:      config.Telegram.AppID,
		AppHash:    config.Telegram.AppHash,
		BotToken:   config.Telegram.BotToken,
		ProxyURL:   config.Telegram.ProxyURL,
		Session:    session,
		Dispatcher: &dispatcher,
	}, log)
	if err != nil {
		return err
	}

	scheduler := yascheduler.New(context.Background(), log, yascheduler.Config{
		LowPriorityInterval: config.LowPriorityInterval,
	})

	bot := yabot.New(yainput.NewHub(log), yabot.Dependencies{
		Filters:   yafilter.NewFactory(roles, config.BannedChats),
		Roles:     roles,
		Scheduler: scheduler,
		Env:       yaenv.New(log, config.DisposeTimeout),
		Log:       log,
		Responder: yatgupdates.NewResponder(client.API(), log),
		DB:        db,
	}, yaplugins.All(yaplugins.Options{
		CallbackSubscriptionLimit: config.CallbackSubscriptionLimit,
	}), yabot.Config{
		PluginInitTimeout:  config.PluginInitTimeout,
		StaleMessageWindow: config.StaleMessageWindow,
	})

	yatgupdates.Bind(&dispatcher, bot)

	status := yastatus.New(config.StatusAddr, bot, log)
	status.Start()

	report, err := bot.InitPlugins(ctx)
	if err != nil {
		_ = shutdown(config, log, bot, scheduler, status)

		return err
	}

	log.Infof("Plugins initialized: %d of %d, %d timed out", report.Succeeded, report.Total, report.TimedOut)

	if err := client.Start(ctx); err != nil {
		_ = shutdown(config, log, bot, scheduler, status)

		return err
	}

	<-ctx.Done()

	log.Info("Shutting down")

	return shutdown(config, log, bot, scheduler, status)
}

func shutdown(
	config yaconfig.Bot,
	log yalogger.Logger,
	bot *yabot.BotAPI,
	scheduler *yascheduler.Scheduler,
	status *yastatus.Server,
) yaerrors.Error {
	ctx, cancel := shutdownContext(config)
	defer cancel()

	errs := make([]error, 0)

	if err := bot.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := scheduler.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := status.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := yaerrors.Join(errs...); err != nil {
		return err.WrapWithLog("shutdown finished with errors", log)
	}

	log.Info("Bot stopped")

	return nil
}

// openRoles loads the role service from Redis, or from memory when no Redis
// URL is configured, and seeds it from config.Roles.
func openRoles(ctx context.Context, config yaconfig.Bot, log yalogger.Logger) (*yaroles.Service, func(), yaerrors.Error) {
	roleMap, err := parseRoles(config.Roles)
	if err != nil {
		return nil, nil, err
	}

	var repo yaroles.Repository = yaroles.NewMemoryRepository()

	release := func() {}

	if config.RedisURL != "" {
		client, err := yaroles.NewRedisClient(ctx, config.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}

		repo = yaroles.NewRedisRepository(client, yaroles.DefaultRedisKey)
		release = func() { _ = client.Close() }
	}

	roles := yaroles.NewService(repo, log)

	if err := roles.Load(ctx); err != nil {
		release()

		return nil, nil, err
	}

	if err := roles.Seed(ctx, roleMap); err != nil {
		release()

		return nil, nil, err
	}

	return roles, release, nil
}

func parseRoles(raw string) (map[string][]int64, yaerrors.Error) {
	roleMap, err := yaroles.ParseRoleMap(raw)
	if err != nil {
		return nil, err.Wrap("failed to parse ROLES")
	}

	return roleMap, nil
}

func openDatabase(path string) (*gorm.DB, yaerrors.Error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, err, "failed to open database")
	}

	conn.SetMaxOpenConns(1)

	db, err := gorm.Open(sqlite.Dialector{Conn: conn, DriverName: "sqlite"}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, err, "failed to open gorm")
	}

	return db, nil
}
