package yatgupdates

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yabackoff"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/gotd/contrib/bg"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"golang.org/x/net/proxy"
)

// ClientOptions configures NewClient. Session and ProxyURL are optional.
type ClientOptions struct {
	AppID      int
	AppHash    string
	BotToken   string
	ProxyURL   string
	Session    telegram.SessionStorage
	Dispatcher *tg.UpdateDispatcher

	// ConnectAttempts bounds Start retries, DefaultConnectAttempts when zero.
	ConnectAttempts int
}

const DefaultConnectAttempts = 5

// Client is a gotd client authorized as a bot.
type Client struct {
	*telegram.Client

	token    string
	attempts int
	log      yalogger.Logger
}

// BotID parses the numeric bot id from the head of a bot token.
func BotID(token string) (int64, yaerrors.Error) {
	head, _, _ := strings.Cut(token, ":")

	id, err := strconv.ParseInt(strings.TrimSpace(head), 10, 64)
	if err != nil || id <= 0 {
		return 0, yaerrors.FromError(http.StatusBadRequest, err, "invalid bot token provided")
	}

	return id, nil
}

// NewClient builds the gotd client. Updates go to options.Dispatcher.
//
// Example usage:
//
//	dispatcher := tg.NewUpdateDispatcher()
//	client, err := yatgupdates.NewClient(yatgupdates.ClientOptions{
//	    AppID: appID, AppHash: appHash, BotToken: token, Dispatcher: &dispatcher,
//	}, log)
func NewClient(options ClientOptions, log yalogger.Logger) (*Client, yaerrors.Error) {
	telegramOptions := telegram.Options{
		SessionStorage: options.Session,
	}

	if options.Dispatcher != nil {
		telegramOptions.UpdateHandler = options.Dispatcher
	}

	if options.ProxyURL != "" {
		resolver, err := ProxyResolver(options.ProxyURL)
		if err != nil {
			return nil, err.WrapWithLog("failed to create telegram client", log)
		}

		telegramOptions.Resolver = resolver
	}

	attempts := options.ConnectAttempts
	if attempts <= 0 {
		attempts = DefaultConnectAttempts
	}

	return &Client{
		Client:   telegram.NewClient(options.AppID, options.AppHash, telegramOptions),
		token:    options.BotToken,
		attempts: attempts,
		log:      log,
	}, nil
}

// Start connects in the background and authorizes with the bot token. A
// failed connect is retried with an exponential back-off. The connection is
// closed when ctx is cancelled.
func (c *Client) Start(ctx context.Context) yaerrors.Error {
	backoff := yabackoff.NewExponential(time.Second, 2, time.Minute)

	for attempt := 1; ; attempt++ {
		stop, err := bg.Connect(c.Client, bg.WithContext(ctx))
		if err == nil {
			go func() {
				<-ctx.Done()

				if err := stop(); err != nil && !errors.Is(err, context.Canceled) {
					c.log.Errorf("Failed to stop telegram client: %v", err)
				}
			}()

			return c.authorize(ctx)
		}

		if attempt >= c.attempts {
			return yaerrors.FromErrorWithLog(http.StatusBadGateway, err, "failed to connect telegram client", c.log)
		}

		c.log.Warnf("Failed to connect telegram client, attempt %d of %d: %v", attempt, c.attempts, err)

		if waitErr := backoff.Wait(ctx); waitErr != nil {
			return yaerrors.FromError(http.StatusBadGateway, err, "telegram client connect cancelled")
		}
	}
}

func (c *Client) authorize(ctx context.Context) yaerrors.Error {
	status, err := c.Auth().Status(ctx)
	if err != nil {
		return yaerrors.FromErrorWithLog(http.StatusBadGateway, err, "failed to check authorization", c.log)
	}

	if status.Authorized {
		return nil
	}

	if _, err := c.Auth().Bot(ctx, c.token); err != nil {
		var rpcErr *tgerr.Error
		if errors.As(err, &rpcErr) {
			c.log.Errorf("Bot authorization rejected: %s", rpcErr.Type)
		}

		return yaerrors.FromErrorWithLog(http.StatusUnauthorized, err, "failed to authorize bot", c.log)
	}

	c.log.Info("Bot authorized")

	return nil
}

// ProxyResolver builds a DC resolver dialing through a socks5:// or
// socks5h:// proxy URL.
func ProxyResolver(rawURL string) (dcs.Resolver, yaerrors.Error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, yaerrors.FromError(http.StatusBadRequest, err, "failed to parse proxy url")
	}

	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, yaerrors.FromError(http.StatusBadRequest, ErrUnsupportedProxy, u.Scheme)
	}

	dialer, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, yaerrors.FromError(http.StatusBadRequest, err, "failed to create proxy dialer")
	}

	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, yaerrors.FromError(http.StatusBadRequest, ErrUnsupportedProxy, "proxy dialer has no context support")
	}

	return dcs.Plain(dcs.PlainOptions{Dial: contextDialer.DialContext}), nil
}
