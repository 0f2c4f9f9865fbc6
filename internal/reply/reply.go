// Package reply builds outbound Telegram payloads. Every function is pure and
// safe for concurrent use.
package reply

import (
	"fmt"
	"io"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Menu labels shown on the monitoring keyboard and matched by the
// conversational handler.
const (
	LabelHome        = "Beranda"
	LabelSearch      = "Search"
	LabelNavigate    = "Navigasi"
	LabelAcknowledge = "Oke"
)

// Callback data carried by the inline menu buttons.
const (
	CallbackHome     = "Anda memilih beranda"
	CallbackSearch   = "Cari sesuatu?"
	CallbackNavigate = "Mau kemana?"
	CallbackClose    = "Keluar"
)

// InlineModeQuery pre-fills the inline query started from /inline_mode.
const InlineModeQuery = "TgBots"

// Usage lists the routed commands.
const Usage = "Usage:\n" +
	"/inline_test - send inline keyboard\n" +
	"/keyboard    - send custom keyboard\n" +
	"/remove      - remove custom keyboard\n" +
	"/photo       - send a photo\n" +
	"/request     - request location or contact\n" +
	"/inline_mode - send keyboard with Inline Query\n" +
	"/test        - run website monitoring"

// Greeting is the /start welcome text.
func Greeting(firstName string) string {
	return fmt.Sprintf("Halo %s,\n", firstName) +
		"Selamat datang di chat bot. Disini saya akan membantu Anda untuk:\n" +
		"1. /test - Melakukan monitoring aplikasi.\n" +
		"2. /inline_test - Melakukan testing sederhana.\n\n" +
		"Jika Anda membutuhkan bantuan lebih lanjut, jangan ragu untuk bertanya."
}

// InlineMenu is the two-row callback keyboard sent by /inline_test.
func InlineMenu() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: LabelHome, CallbackData: CallbackHome},
				{Text: LabelSearch, CallbackData: CallbackSearch},
			},
			{
				{Text: LabelNavigate, CallbackData: CallbackNavigate},
				{Text: "Tutup", CallbackData: CallbackClose},
			},
		},
	}
}

// MonitorMenu is the reply keyboard sent by /test; its labels are the ones the
// conversational handler recognizes.
func MonitorMenu() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: LabelHome}, {Text: LabelSearch}},
			{{Text: LabelNavigate}, {Text: LabelAcknowledge}},
		},
		ResizeKeyboard: true,
	}
}

// GridKeyboard is the sample 2x2 reply keyboard sent by /keyboard.
func GridKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: "1.1"}, {Text: "1.2"}},
			{{Text: "2.1"}, {Text: "2.2"}},
		},
		ResizeKeyboard: true,
	}
}

// ContactLocationKeyboard asks the user to share a location or contact.
func ContactLocationKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{
				{Text: "Location", RequestLocation: true},
				{Text: "Contact", RequestContact: true},
			},
		},
	}
}

// InlineModeKeyboard holds a single button that opens inline mode in the
// current chat.
func InlineModeKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Inline Mode", SwitchInlineQueryCurrentChat: InlineModeQuery}},
		},
	}
}

// RemoveKeyboard hides any reply keyboard.
func RemoveKeyboard() *models.ReplyKeyboardRemove {
	return &models.ReplyKeyboardRemove{RemoveKeyboard: true}
}

// Text builds a plain text message. markup may be nil.
func Text(chatID int64, text string, markup models.ReplyMarkup) *bot.SendMessageParams {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	return params
}

// Photo builds a photo upload from an open reader.
func Photo(chatID int64, filename string, data io.Reader, caption string) *bot.SendPhotoParams {
	return &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: filename, Data: data},
		Caption: caption,
	}
}

// Document builds a document upload from an open reader.
func Document(chatID int64, filename string, data io.Reader, caption string) *bot.SendDocumentParams {
	return &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: filename, Data: data},
		Caption:  caption,
	}
}

// ChatAction builds a chat action notification.
func ChatAction(chatID int64, action models.ChatAction) *bot.SendChatActionParams {
	return &bot.SendChatActionParams{
		ChatID: chatID,
		Action: action,
	}
}

// CallbackAnswer acknowledges a callback query.
func CallbackAnswer(callbackQueryID, text string) *bot.AnswerCallbackQueryParams {
	return &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackQueryID,
		Text:            text,
	}
}

// InlineAnswer is the canned inline query response: a single article with id
// "1", personal and uncached.
func InlineAnswer(inlineQueryID string) *bot.AnswerInlineQueryParams {
	return &bot.AnswerInlineQueryParams{
		InlineQueryID: inlineQueryID,
		Results: []models.InlineQueryResult{
			&models.InlineQueryResultArticle{
				ID:                  "1",
				Title:               "TgBots",
				InputMessageContent: &models.InputTextMessageContent{MessageText: "hello"},
			},
		},
		CacheTime:  0,
		IsPersonal: true,
	}
}
