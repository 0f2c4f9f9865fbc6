// Package errpolicy classifies receive-loop and dispatch failures and decides
// whether polling should cool down before the next attempt.
package errpolicy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"

	"tg_monitor_bot/internal/logging"
)

// Error kinds reported in the error_kind log field.
const (
	KindAPI       = "api"
	KindTransport = "transport"
	KindOther     = "other"
)

// APIError is a failure reported by the Telegram platform itself.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Message)
}

var apiSentinels = []struct {
	err  error
	code int
}{
	{bot.ErrorBadRequest, 400},
	{bot.ErrorUnauthorized, 401},
	{bot.ErrorForbidden, 403},
	{bot.ErrorNotFound, 404},
	{bot.ErrorConflict, 409},
	{bot.ErrorTooManyRequests, 429},
}

// genericAPIError matches the error the client library builds for status
// codes it has no dedicated sentinel for.
var genericAPIError = regexp.MustCompile(`(?s)error response from telegram for method [^,]+, (\d+) (.*)$`)

// AsAPIError extracts the platform error code and message from err.
func AsAPIError(err error) (*APIError, bool) {
	if err == nil {
		return nil, false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return &APIError{Code: 429, Message: tooMany.Error()}, true
	}

	var migrate *bot.MigrateError
	if errors.As(err, &migrate) {
		return &APIError{Code: 400, Message: migrate.Error()}, true
	}

	for _, s := range apiSentinels {
		if errors.Is(err, s.err) {
			return &APIError{Code: s.code, Message: err.Error()}, true
		}
	}

	if m := genericAPIError.FindStringSubmatch(err.Error()); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return &APIError{Code: code, Message: strings.TrimSpace(m[2])}, true
		}
	}

	return nil, false
}

// IsTransport reports whether err is a network or connectivity failure as
// opposed to an application-level error.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := AsAPIError(err); ok {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// Kind classifies err as KindAPI, KindTransport or KindOther.
func Kind(err error) string {
	if _, ok := AsAPIError(err); ok {
		return KindAPI
	}
	if IsTransport(err) {
		return KindTransport
	}
	return KindOther
}

// Describe renders err for the log: platform errors as code and message,
// anything else with its full description.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := AsAPIError(err); ok {
		return fmt.Sprintf("Telegram API Error:\n[%d]\n%s", apiErr.Code, apiErr.Message)
	}
	return fmt.Sprintf("%+v", err)
}

// Policy logs receive-loop errors and pauses after transport failures. It
// holds no state besides its configuration and never stops the process.
type Policy struct {
	logger   *logrus.Entry
	cooldown time.Duration
	wait     func(ctx context.Context, d time.Duration)
}

// New constructs a Policy that pauses for cooldown after transport errors.
func New(cooldown time.Duration, logger *logrus.Entry) *Policy {
	if logger == nil {
		logger = logging.Logger()
	}
	if cooldown < 0 {
		cooldown = 0
	}

	return &Policy{
		logger:   logger,
		cooldown: cooldown,
		wait:     sleepContext,
	}
}

// Cooldown returns the configured pause after transport errors.
func (p *Policy) Cooldown() time.Duration {
	return p.cooldown
}

// OnReceiveLoopError logs err and, for transport failures, blocks for the
// cooldown or until ctx is done. It reports whether a pause was applied.
func (p *Policy) OnReceiveLoopError(ctx context.Context, err error) bool {
	if p == nil || err == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	kind := Kind(err)
	fields := logging.Fields{
		"event":      "telegram_error",
		"error_kind": kind,
	}
	if apiErr, ok := AsAPIError(err); ok {
		fields["error_code"] = apiErr.Code
	}
	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		fields["retry_after"] = tooMany.RetryAfter
	}

	p.logger.WithFields(fields).Error("HandleError: " + Describe(err))

	if kind != KindTransport || p.cooldown == 0 {
		return false
	}

	p.logger.WithFields(logging.Fields{
		"event":    "telegram_cooldown",
		"cooldown": p.cooldown.String(),
	}).Warn("network error, cooling down before next poll")

	p.wait(ctx, p.cooldown)
	return true
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
