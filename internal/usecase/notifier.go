package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"callbot/internal/domain"
	"callbot/internal/infrastructure/fcm"
)

// FCMNotifier pushes a notification to the configured devices whenever a
// call closes. Sends run in the background so a slow push service never
// stalls a reconciliation step.
type FCMNotifier struct {
	client *fcm.Client
	tokens []string
	log    *logrus.Logger
}

func NewFCMNotifier(client *fcm.Client, tokens []string, log *logrus.Logger) *FCMNotifier {
	return &FCMNotifier{
		client: client,
		tokens: tokens,
		log:    log,
	}
}

var _ Notifier = (*FCMNotifier)(nil)

func (n *FCMNotifier) CallClosed(call *domain.TradingCall) {
	if !n.client.IsEnabled() || len(n.tokens) == 0 {
		return
	}

	title := fmt.Sprintf("%s call closed", call.Symbol)
	body := call.ClosingReason
	data := map[string]string{
		"call_id": strconv.FormatInt(call.ID, 10),
		"symbol":  call.Symbol,
		"reason":  call.ClosingReason,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := n.client.SendMulticast(ctx, n.tokens, title, body, data); err != nil {
			n.log.WithError(err).WithField("call", call.ID).Warn("close notification failed")
		}
	}()
}
