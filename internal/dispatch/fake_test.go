package dispatch

import (
	"context"
	"io"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"tg_monitor_bot/internal/probe"
	"tg_monitor_bot/internal/update"
)

type sentCall struct {
	method  string
	chatID  any
	text    string
	markup  models.ReplyMarkup
	file    string
	content string
	action  models.ChatAction
	id      string
	answer  *bot.AnswerInlineQueryParams
}

type fakeClient struct {
	mu     sync.Mutex
	calls  []sentCall
	nextID int
	// failOn makes the named method return the error.
	failOn map[string]error
}

func newFakeClient() *fakeClient {
	return &fakeClient{failOn: map[string]error{}}
}

func (f *fakeClient) record(call sentCall) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
	if err := f.failOn[call.method]; err != nil {
		return nil, err
	}
	f.nextID++
	return &models.Message{ID: f.nextID}, nil
}

func (f *fakeClient) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	return f.record(sentCall{method: "SendMessage", chatID: params.ChatID, text: params.Text, markup: params.ReplyMarkup})
}

func (f *fakeClient) SendPhoto(_ context.Context, params *bot.SendPhotoParams) (*models.Message, error) {
	call := sentCall{method: "SendPhoto", chatID: params.ChatID, text: params.Caption}
	readUpload(&call, params.Photo)
	return f.record(call)
}

func (f *fakeClient) SendDocument(_ context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	call := sentCall{method: "SendDocument", chatID: params.ChatID, text: params.Caption}
	readUpload(&call, params.Document)
	return f.record(call)
}

func (f *fakeClient) SendChatAction(_ context.Context, params *bot.SendChatActionParams) (bool, error) {
	_, err := f.record(sentCall{method: "SendChatAction", chatID: params.ChatID, action: params.Action})
	return err == nil, err
}

func (f *fakeClient) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	_, err := f.record(sentCall{method: "AnswerCallbackQuery", id: params.CallbackQueryID, text: params.Text})
	return err == nil, err
}

func (f *fakeClient) AnswerInlineQuery(_ context.Context, params *bot.AnswerInlineQueryParams) (bool, error) {
	_, err := f.record(sentCall{method: "AnswerInlineQuery", id: params.InlineQueryID, answer: params})
	return err == nil, err
}

func (f *fakeClient) snapshot() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]sentCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeClient) methods() []string {
	calls := f.snapshot()
	out := make([]string, len(calls))
	for i, call := range calls {
		out[i] = call.method
	}
	return out
}

func readUpload(call *sentCall, file models.InputFile) {
	upload, ok := file.(*models.InputFileUpload)
	if !ok {
		return
	}
	call.file = upload.Filename
	if upload.Data != nil {
		data, _ := io.ReadAll(upload.Data)
		call.content = string(data)
	}
}

type fakeProber struct {
	result probe.Result
	runs   int
}

func (p *fakeProber) Run(context.Context) probe.Result {
	p.runs++
	return p.result
}

type fakeRecorder struct {
	mu      sync.Mutex
	senders []update.Sender
	allowed []bool
	err     error
}

func (r *fakeRecorder) RecordSighting(_ context.Context, sender update.Sender, authorized bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.senders = append(r.senders, sender)
	r.allowed = append(r.allowed, authorized)
	return r.err
}
