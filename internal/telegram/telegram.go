// Package telegram hosts the Telegram client and long polling loop.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_monitor_bot/internal/config"
	"tg_monitor_bot/internal/dispatch"
	"tg_monitor_bot/internal/logging"
	"tg_monitor_bot/internal/update"
)

// UpdateHandler processes one inbound update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u *models.Update) error
}

// ErrorPolicy receives receive-loop and handler failures.
type ErrorPolicy interface {
	OnReceiveLoopError(ctx context.Context, err error) bool
}

type botAPI interface {
	dispatch.Client
	Start(ctx context.Context)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"edited_message",
		"callback_query",
		"inline_query",
		"chosen_inline_result",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Option configures a Client.
type Option func(*Client)

// WithErrorPolicy routes polling and handler errors to policy instead of
// logging them only.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// Client wraps the Telegram bot instance and logging dependencies.
type Client struct {
	bot     botAPI
	logger  *logrus.Entry
	policy  ErrorPolicy
	handler UpdateHandler
	pollCtx context.Context
}

// NewClient initializes the Telegram bot with long polling. Updates are
// dropped until a handler is installed with Handle.
func NewClient(cfg config.Config, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	c := &Client{
		logger:  logger,
		pollCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(c.defaultHandler),
		bot.WithErrorsHandler(c.errorHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}
	c.bot = tgBot

	return c, nil
}

// API exposes the send side of the bot for the dispatcher.
func (c *Client) API() dispatch.Client {
	return c.bot
}

// Handle installs the update handler. It must be called before Start.
func (c *Client) Handle(handler UpdateHandler) {
	c.handler = handler
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.pollCtx = ctx

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

func (c *Client) defaultHandler(ctx context.Context, _ *bot.Bot, u *models.Update) {
	if u == nil {
		return
	}

	if c.handler == nil {
		ev := update.Classify(u)
		c.logger.WithFields(logging.Fields{
			"event":       "telegram_update_dropped",
			"update_type": string(ev.Kind),
			"update_id":   ev.UpdateID,
		}).Warn("no update handler installed")
		return
	}

	if err := c.handler.HandleUpdate(ctx, u); err != nil {
		c.reportError(ctx, err)
	}
}

func (c *Client) errorHandler(err error) {
	c.reportError(c.pollCtx, err)
}

func (c *Client) reportError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	if c.policy != nil {
		c.policy.OnReceiveLoopError(ctx, err)
		return
	}

	c.logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
}
