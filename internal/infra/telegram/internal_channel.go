package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lease_notifier/internal/domain/delivery"
	"lease_notifier/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const payCallbackPrefix = "pay_"

// OpsChannel delivers internal reminders to the operations chats.
type OpsChannel struct {
	sender  MessageSender
	chatIDs []int64
	logger  *logrus.Entry
}

func NewOpsChannel(sender MessageSender, chatIDs []int64, logger *logrus.Entry) *OpsChannel {
	return &OpsChannel{sender: sender, chatIDs: chatIDs, logger: logger}
}

// SendInternalReminder succeeds when at least one ops chat received the message.
func (ch *OpsChannel) SendInternalReminder(ctx context.Context, r delivery.Reminder) bool {
	log := ch.logger.WithFields(logrus.Fields{
		"contract_id": r.Contract.ID,
		"kind":        r.Kind,
	})
	if len(ch.chatIDs) == 0 {
		log.Warn("No ops chats configured, internal reminder not sent")
		return false
	}

	text := FormatReminder(r)
	opts := &telebot.SendOptions{ParseMode: telebot.ModeMarkdown}
	if r.Kind == notification.KindAnnuityExpiry && r.Year.Valid {
		opts.ReplyMarkup = &telebot.ReplyMarkup{
			InlineKeyboard: [][]telebot.InlineButton{{
				{Text: "Mark as paid", Data: PayCallbackData(r.Contract.ID, int(r.Year.Int32))},
			}},
		}
	}

	delivered := 0
	for _, chatID := range ch.chatIDs {
		if err := ch.send(ctx, chatID, text, opts); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("Failed to send internal reminder")
			continue
		}
		delivered++
	}
	return delivered > 0
}

// send gives up when ctx is done; the telebot call itself is not cancellable.
func (ch *OpsChannel) send(ctx context.Context, chatID int64, text string, opts *telebot.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- ch.sender.SendMessage(chatID, text, opts)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FormatReminder renders the ops message for a reminder.
func FormatReminder(r delivery.Reminder) string {
	var b strings.Builder
	due := r.DueDate.Format("2006-01-02")
	switch r.Kind {
	case notification.KindAnnuityExpiry:
		fmt.Fprintf(&b, "*Annuity due in %d days*\n\n", r.HorizonDays)
		fmt.Fprintf(&b, "Contract #%d, year %d, due on %s.\n", r.Contract.ID, r.Year.Int32, due)
	default:
		fmt.Fprintf(&b, "*Contract expiring in %d days*\n\n", r.HorizonDays)
		fmt.Fprintf(&b, "Contract #%d ends on %s.\n", r.Contract.ID, due)
	}
	fmt.Fprintf(&b, "Owner #%d, tenant #%d", r.Contract.OwnerID, r.Contract.TenantID)
	if !r.Contract.MonthlyRent.IsZero() {
		fmt.Fprintf(&b, ", rent %s/month", r.Contract.MonthlyRent.StringFixed(2))
	}
	b.WriteString(".")
	return b.String()
}

// PayCallbackData encodes the inline "mark as paid" action.
func PayCallbackData(contractID int64, year int) string {
	return fmt.Sprintf("%s%d_%d", payCallbackPrefix, contractID, year)
}

// ParsePayCallbackData decodes data produced by PayCallbackData.
func ParsePayCallbackData(data string) (contractID int64, year int, err error) {
	if !strings.HasPrefix(data, payCallbackPrefix) {
		return 0, 0, fmt.Errorf("not a pay callback: %q", data)
	}
	parts := strings.Split(strings.TrimPrefix(data, payCallbackPrefix), "_")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid pay callback format: %q", data)
	}
	contractID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid contract ID in callback %q: %w", data, err)
	}
	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year in callback %q: %w", data, err)
	}
	return contractID, year, nil
}
