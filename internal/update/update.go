// Package update classifies inbound Telegram updates into a single variant.
package update

import (
	"strings"

	"github.com/go-telegram/bot/models"
)

// Kind names the populated variant of an update.
type Kind string

// Variants in classification priority order.
const (
	KindMessage            Kind = "message"
	KindEditedMessage      Kind = "edited_message"
	KindCallbackQuery      Kind = "callback_query"
	KindInlineQuery        Kind = "inline_query"
	KindChosenInlineResult Kind = "chosen_inline_result"
	KindUnknown            Kind = "unknown"
)

// Sender identifies who an update came from. ChatID is the conversation the
// bot answers in and the key checked against the roster.
type Sender struct {
	ID        int64
	ChatID    int64
	FirstName string
	LastName  string
	Username  string
}

// Event is the classified view of an update. Exactly one of the variant
// pointers is set, matching Kind; none are set for KindUnknown.
type Event struct {
	Kind     Kind
	UpdateID int64
	Sender   Sender
	// Payload is the message text, callback data, inline query string or
	// chosen result id, depending on Kind.
	Payload string

	Message            *models.Message
	CallbackQuery      *models.CallbackQuery
	InlineQuery        *models.InlineQuery
	ChosenInlineResult *models.ChosenInlineResult
}

// RequiresAuthorization reports whether the sender must pass the roster
// check. Inline queries and chosen inline results carry no chat and are exempt.
func (e Event) RequiresAuthorization() bool {
	switch e.Kind {
	case KindMessage, KindEditedMessage, KindCallbackQuery:
		return true
	default:
		return false
	}
}

// IsMessage reports whether the event is a new or edited message.
func (e Event) IsMessage() bool {
	return e.Kind == KindMessage || e.Kind == KindEditedMessage
}

// Classify inspects the update variants in fixed priority order and returns
// the first populated one.
func Classify(u *models.Update) Event {
	if u == nil {
		return Event{Kind: KindUnknown}
	}

	switch {
	case u.Message != nil:
		return messageEvent(KindMessage, u.ID, u.Message)
	case u.EditedMessage != nil:
		return messageEvent(KindEditedMessage, u.ID, u.EditedMessage)
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		sender := fromUser(&q.From)
		if id := messageChatID(q.Message); id != 0 {
			sender.ChatID = id
		}
		return Event{
			Kind:          KindCallbackQuery,
			UpdateID:      u.ID,
			Sender:        sender,
			Payload:       q.Data,
			CallbackQuery: q,
		}
	case u.InlineQuery != nil:
		return Event{
			Kind:        KindInlineQuery,
			UpdateID:    u.ID,
			Sender:      fromUser(u.InlineQuery.From),
			Payload:     u.InlineQuery.Query,
			InlineQuery: u.InlineQuery,
		}
	case u.ChosenInlineResult != nil:
		return Event{
			Kind:               KindChosenInlineResult,
			UpdateID:           u.ID,
			Sender:             fromUser(&u.ChosenInlineResult.From),
			Payload:            u.ChosenInlineResult.ResultID,
			ChosenInlineResult: u.ChosenInlineResult,
		}
	default:
		return Event{Kind: KindUnknown, UpdateID: u.ID}
	}
}

// CommandToken returns the first whitespace-delimited token of text, or ""
// when text has none.
func CommandToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func messageEvent(kind Kind, updateID int64, msg *models.Message) Event {
	sender := fromUser(msg.From)
	sender.ChatID = msg.Chat.ID
	if sender.ID == 0 {
		sender.ID = msg.Chat.ID
	}
	if msg.Chat.FirstName != "" || msg.Chat.LastName != "" {
		sender.FirstName = msg.Chat.FirstName
		sender.LastName = msg.Chat.LastName
	}
	if msg.Chat.Username != "" {
		sender.Username = msg.Chat.Username
	}

	return Event{
		Kind:     kind,
		UpdateID: updateID,
		Sender:   sender,
		Payload:  msg.Text,
		Message:  msg,
	}
}

func fromUser(user *models.User) Sender {
	if user == nil {
		return Sender{}
	}

	return Sender{
		ID:        user.ID,
		ChatID:    user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
	}
}

func messageChatID(msg models.MaybeInaccessibleMessage) int64 {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return msg.Message.Chat.ID
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return msg.InaccessibleMessage.Chat.ID
	default:
		return 0
	}
}
