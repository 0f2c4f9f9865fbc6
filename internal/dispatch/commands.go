package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_monitor_bot/internal/logging"
	"tg_monitor_bot/internal/probe"
	"tg_monitor_bot/internal/reply"
)

// Command tokens.
const (
	CmdStart          = "/start"
	CmdHelp           = "/help"
	CmdPhoto          = "/photo"
	CmdInlineKeyboard = "/inline_test"
	CmdReplyKeyboard  = "/keyboard"
	CmdRemoveKeyboard = "/remove"
	CmdRequest        = "/request"
	CmdInlineMode     = "/inline_mode"
	CmdMonitor        = "/test"
	CmdThrow          = "/throw"
)

// Outbound texts.
const (
	PhotoCaption      = "Nice Picture"
	PhotoMissingText  = "Gambar tidak tersedia."
	ProbeWaitText     = "Sedang mengecheck mohon bersabar . . ."
	ProbeSuccessText  = "Pengecekan beranda sukses . . ."
	ProbeFailedPrefix = "Pengecekan beranda gagal"
)

const defaultTypingDelay = 500 * time.Millisecond

// ErrDeliberateFailure is returned by the /throw command.
var ErrDeliberateFailure = errors.New("deliberate handler failure")

// CommandsOption configures Commands.
type CommandsOption func(*Commands)

// WithTypingDelay sets how long /inline_test shows the typing indicator
// before answering.
func WithTypingDelay(d time.Duration) CommandsOption {
	return func(c *Commands) {
		if d >= 0 {
			c.typingDelay = d
		}
	}
}

// Commands holds the collaborators shared by the command handlers. Each handler
// produces at most one message send besides chat actions.
type Commands struct {
	client      Client
	prober      Prober
	photoPath   string
	typingDelay time.Duration
	logger      *logrus.Entry
}

// NewCommands constructs the command handlers.
func NewCommands(client Client, prober Prober, photoPath string, logger *logrus.Entry, opts ...CommandsOption) *Commands {
	if logger == nil {
		logger = logging.Logger()
	}

	c := &Commands{
		client:      client,
		prober:      prober,
		photoPath:   photoPath,
		typingDelay: defaultTypingDelay,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry builds the routing table with Conversation as the fallback.
func (c *Commands) Registry() (*Registry, error) {
	return NewRegistry(map[string]CommandFunc{
		CmdStart:          c.Start,
		CmdHelp:           c.Help,
		CmdPhoto:          c.Photo,
		CmdInlineKeyboard: c.InlineKeyboard,
		CmdReplyKeyboard:  c.ReplyKeyboard,
		CmdRemoveKeyboard: c.RemoveKeyboard,
		CmdRequest:        c.RequestContactAndLocation,
		CmdInlineMode:     c.InlineMode,
		CmdMonitor:        c.MonitorMenu,
		CmdThrow:          c.Throw,
	}, c.Conversation)
}

// Start greets the sender by first name.
func (c *Commands) Start(ctx context.Context, msg *models.Message) (*models.Message, error) {
	name := msg.Chat.FirstName
	if name == "" && msg.From != nil {
		name = msg.From.FirstName
	}
	return c.client.SendMessage(ctx, reply.Text(msg.Chat.ID, reply.Greeting(name), reply.RemoveKeyboard()))
}

// Help lists the available commands.
func (c *Commands) Help(ctx context.Context, msg *models.Message) (*models.Message, error) {
	return c.client.SendMessage(ctx, reply.Text(msg.Chat.ID, reply.Usage, reply.RemoveKeyboard()))
}

// Photo uploads the configured image, or says it is unavailable when the file
// is missing.
func (c *Commands) Photo(ctx context.Context, msg *models.Message) (*models.Message, error) {
	chatID := msg.Chat.ID
	if _, err := c.client.SendChatAction(ctx, reply.ChatAction(chatID, models.ChatActionUploadPhoto)); err != nil {
		return nil, fmt.Errorf("send upload action: %w", err)
	}

	sent, ok, err := c.sendFile(ctx, chatID, c.photoPath, PhotoCaption, true)
	if err != nil || ok {
		return sent, err
	}

	return c.client.SendMessage(ctx, reply.Text(chatID, PhotoMissingText, nil))
}

// InlineKeyboard shows the typing indicator, then sends the inline menu.
func (c *Commands) InlineKeyboard(ctx context.Context, msg *models.Message) (*models.Message, error) {
	chatID := msg.Chat.ID
	if _, err := c.client.SendChatAction(ctx, reply.ChatAction(chatID, models.ChatActionTyping)); err != nil {
		return nil, fmt.Errorf("send typing action: %w", err)
	}

	if c.typingDelay > 0 {
		timer := time.NewTimer(c.typingDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	return c.client.SendMessage(ctx, reply.Text(chatID, "Pilih salah satu menu dibawah ini:", reply.InlineMenu()))
}

// ReplyKeyboard sends the sample reply keyboard.
func (c *Commands) ReplyKeyboard(ctx context.Context, msg *models.Message) (*models.Message, error) {
	return c.client.SendMessage(ctx, reply.Text(msg.Chat.ID, "Choose", reply.GridKeyboard()))
}

// RemoveKeyboard hides the reply keyboard.
func (c *Commands) RemoveKeyboard(ctx context.Context, msg *models.Message) (*models.Message, error) {
	return c.client.SendMessage(ctx, reply.Text(msg.Chat.ID, "Removing keyboard", reply.RemoveKeyboard()))
}

// RequestContactAndLocation asks for the sender's contact or location.
func (c *Commands) RequestContactAndLocation(ctx context.Context, msg *models.Message) (*models.Message, error) {
	return c.client.SendMessage(ctx, reply.Text(msg.Chat.ID, "Who or Where are you?", reply.ContactLocationKeyboard()))
}

// InlineMode sends a button that starts an inline query.
func (c *Commands) InlineMode(ctx context.Context, msg *models.Message) (*models.Message, error) {
	return c.client.SendMessage(ctx, reply.Text(msg.Chat.ID, "Press the button to start Inline Query", reply.InlineModeKeyboard()))
}

// MonitorMenu offers the monitoring menu as a reply keyboard.
func (c *Commands) MonitorMenu(ctx context.Context, msg *models.Message) (*models.Message, error) {
	return c.client.SendMessage(ctx, reply.Text(msg.Chat.ID, "Which one do you want to test?", reply.MonitorMenu()))
}

// Throw always fails; it exercises error propagation to the polling error policy.
func (c *Commands) Throw(context.Context, *models.Message) (*models.Message, error) {
	return nil, ErrDeliberateFailure
}

// Conversation handles free text, typically a label pressed on the monitoring
// menu. Unrecognized text gets no reply.
func (c *Commands) Conversation(ctx context.Context, msg *models.Message) (*models.Message, error) {
	chatID := msg.Chat.ID

	switch msg.Text {
	case reply.LabelHome:
		return c.checkHome(ctx, chatID)
	case reply.LabelSearch:
		return c.client.SendMessage(ctx, reply.Text(chatID, "Performing search...", nil))
	case reply.LabelNavigate:
		return c.client.SendMessage(ctx, reply.Text(chatID, "Navigating...", nil))
	case reply.LabelAcknowledge:
		return c.client.SendMessage(ctx, reply.Text(chatID, "Okay!", nil))
	default:
		return nil, nil
	}
}

func (c *Commands) checkHome(ctx context.Context, chatID int64) (*models.Message, error) {
	if _, err := c.client.SendMessage(ctx, reply.Text(chatID, ProbeWaitText, nil)); err != nil {
		return nil, fmt.Errorf("send probe acknowledgement: %w", err)
	}

	result := probe.Result{Status: probe.StatusFailed}
	if c.prober != nil {
		result = c.prober.Run(ctx)
	}
	status := probeStatusText(result)

	c.logger.WithFields(logging.Fields{
		"event":    "probe_result",
		"chat_id":  chatID,
		"status":   result.Status,
		"artifact": result.ArtifactPath,
	}).Info("home page probe finished")

	if result.OK() {
		sent, ok, err := c.sendFile(ctx, chatID, result.ArtifactPath, status, false)
		if err != nil || ok {
			return sent, err
		}
	}

	return c.client.SendMessage(ctx, reply.Text(chatID, status, nil))
}

// sendFile uploads path when it exists. ok is false when the file is missing,
// in which case nothing was sent.
func (c *Commands) sendFile(ctx context.Context, chatID int64, path, caption string, asPhoto bool) (*models.Message, bool, error) {
	if path == "" {
		return nil, false, nil
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.logger.WithFields(logging.Fields{
			"event": "attachment_missing",
			"path":  path,
		}).Warn("attachment not available, replying with text")
		return nil, false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)

	var sent *models.Message
	if asPhoto {
		sent, err = c.client.SendPhoto(ctx, reply.Photo(chatID, name, f, caption))
	} else {
		sent, err = c.client.SendDocument(ctx, reply.Document(chatID, name, f, caption))
	}
	if err != nil {
		return nil, true, err
	}

	return sent, true, nil
}

func probeStatusText(result probe.Result) string {
	if result.Status == probe.StatusSuccess {
		return ProbeSuccessText
	}

	if result.Err != nil {
		return fmt.Sprintf("%s: %s", ProbeFailedPrefix, result.Err)
	}
	return fmt.Sprintf("%s: %s", ProbeFailedPrefix, result.Status)
}
