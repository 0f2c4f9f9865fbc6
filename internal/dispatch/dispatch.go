// Package dispatch authorizes inbound updates and routes them to command
// handlers.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tg_monitor_bot/internal/access"
	"tg_monitor_bot/internal/logging"
	"tg_monitor_bot/internal/probe"
	"tg_monitor_bot/internal/reply"
	"tg_monitor_bot/internal/update"
)

// Client is the subset of the Telegram Bot API used to answer updates.
// *bot.Bot satisfies it.
type Client interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	AnswerInlineQuery(ctx context.Context, params *bot.AnswerInlineQueryParams) (bool, error)
}

// Authorizer decides whether a chat may use the bot.
type Authorizer interface {
	IsAuthorized(chatID int64) bool
}

// Prober runs the website check behind the home menu entry.
type Prober interface {
	Run(ctx context.Context) probe.Result
}

// SightingRecorder persists that a sender contacted the bot.
type SightingRecorder interface {
	RecordSighting(ctx context.Context, sender update.Sender, authorized bool) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSightingRecorder records every gated sender. Recording failures are
// logged and never block dispatch.
func WithSightingRecorder(recorder SightingRecorder) Option {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

// WithEventIDs overrides the per-update correlation id generator.
func WithEventIDs(next func() string) Option {
	return func(d *Dispatcher) {
		if next != nil {
			d.newEventID = next
		}
	}
}

// Dispatcher classifies updates, applies the authorization gate and routes
// messages through the command registry. It keeps no per-update state.
type Dispatcher struct {
	client     Client
	roster     Authorizer
	registry   *Registry
	recorder   SightingRecorder
	logger     *logrus.Entry
	newEventID func() string
}

// New constructs a Dispatcher.
func New(client Client, roster Authorizer, registry *Registry, logger *logrus.Entry, opts ...Option) (*Dispatcher, error) {
	if client == nil {
		return nil, errors.New("telegram client is required")
	}
	if roster == nil {
		return nil, errors.New("authorization roster is required")
	}
	if registry == nil {
		return nil, errors.New("command registry is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	d := &Dispatcher{
		client:     client,
		roster:     roster,
		registry:   registry,
		logger:     logger,
		newEventID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// HandleUpdate processes one update end to end. It returns once every send
// triggered by the update has completed or failed; handler and send errors are
// returned to the caller unchanged in kind.
func (d *Dispatcher) HandleUpdate(ctx context.Context, u *models.Update) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ev := update.Classify(u)
	log := logging.With(d.logger, logging.Context{
		UserID:     ev.Sender.ID,
		ChatID:     ev.Sender.ChatID,
		UpdateID:   ev.UpdateID,
		UpdateType: string(ev.Kind),
		EventID:    d.newEventID(),
	})

	if ev.RequiresAuthorization() {
		allowed, err := d.authorize(ctx, ev, log)
		if err != nil || !allowed {
			return err
		}
	}

	switch {
	case ev.IsMessage():
		return d.onMessage(ctx, ev, log)
	case ev.Kind == update.KindCallbackQuery:
		return d.onCallbackQuery(ctx, ev, log)
	case ev.Kind == update.KindInlineQuery:
		return d.onInlineQuery(ctx, ev, log)
	case ev.Kind == update.KindChosenInlineResult:
		return d.onChosenInlineResult(ctx, ev, log)
	default:
		log.WithField("event", "telegram_update_unknown").Info("unknown update type")
		return nil
	}
}

func (d *Dispatcher) authorize(ctx context.Context, ev update.Event, log *logrus.Entry) (bool, error) {
	allowed := d.roster.IsAuthorized(ev.Sender.ChatID)

	log.WithFields(logging.Fields{
		"event":      "telegram_access",
		"first_name": ev.Sender.FirstName,
		"last_name":  ev.Sender.LastName,
		"authorized": allowed,
	}).Info("sender access")

	d.recordSighting(ctx, ev.Sender, allowed, log)

	if allowed {
		return true, nil
	}

	if _, err := d.client.SendMessage(ctx, reply.Text(ev.Sender.ChatID, access.DeniedText, nil)); err != nil {
		return false, fmt.Errorf("send access denial: %w", err)
	}

	log.WithField("event", "telegram_access_denied").Warn("rejected unauthorized sender")
	return false, nil
}

func (d *Dispatcher) recordSighting(ctx context.Context, sender update.Sender, allowed bool, log *logrus.Entry) {
	if d.recorder == nil {
		return
	}

	if err := d.recorder.RecordSighting(ctx, sender, allowed); err != nil {
		log.WithField("event", "sender_record_error").WithError(err).Warn("failed to record sender")
	}
}

func (d *Dispatcher) onMessage(ctx context.Context, ev update.Event, log *logrus.Entry) error {
	if ev.Payload == "" {
		log.WithField("event", "telegram_message_skipped").Debug("message has no text")
		return nil
	}

	token := update.CommandToken(ev.Payload)
	log = log.WithField("command", token)
	log.WithField("event", "telegram_message").Info("received message")

	sent, err := d.registry.Dispatch(ctx, token, ev.Message)
	if err != nil {
		return fmt.Errorf("dispatch %q: %w", token, err)
	}

	if sent != nil {
		log.WithFields(logging.Fields{
			"event":           "telegram_message_sent",
			"sent_message_id": sent.ID,
		}).Info("message sent")
	}

	return nil
}

func (d *Dispatcher) onCallbackQuery(ctx context.Context, ev update.Event, log *logrus.Entry) error {
	q := ev.CallbackQuery
	log = log.WithField("callback_query_id", q.ID)
	log.WithField("event", "telegram_callback").Info("received inline keyboard callback")

	text := CallbackResponse(ev.Payload)
	if _, err := d.client.SendMessage(ctx, reply.Text(ev.Sender.ChatID, text, nil)); err != nil {
		return fmt.Errorf("send callback response: %w", err)
	}

	if _, err := d.client.AnswerCallbackQuery(ctx, reply.CallbackAnswer(q.ID, CallbackAck)); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	return nil
}

func (d *Dispatcher) onInlineQuery(ctx context.Context, ev update.Event, log *logrus.Entry) error {
	log.WithField("event", "telegram_inline_query").Info("received inline query")

	if _, err := d.client.AnswerInlineQuery(ctx, reply.InlineAnswer(ev.InlineQuery.ID)); err != nil {
		return fmt.Errorf("answer inline query: %w", err)
	}

	return nil
}

func (d *Dispatcher) onChosenInlineResult(ctx context.Context, ev update.Event, log *logrus.Entry) error {
	resultID := ev.Payload
	log.WithFields(logging.Fields{
		"event":     "telegram_inline_result",
		"result_id": resultID,
	}).Info("received chosen inline result")

	text := fmt.Sprintf("You chose result with Id: %s", resultID)
	if _, err := d.client.SendMessage(ctx, reply.Text(ev.Sender.ID, text, nil)); err != nil {
		return fmt.Errorf("send chosen inline result: %w", err)
	}

	return nil
}
