// internal/infra/telegram/payment_callback_handler.go
package telegram

import (
	"context"
	"fmt"

	"lease_notifier/internal/domain"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterPaymentCallbackHandler handles the "mark as paid" button under annuity reminders.
// Members of the ops chats and the admin may press it.
func RegisterPaymentCallbackHandler(
	ctx context.Context,
	b *telebot.Bot,
	annuities AnnuityManager,
	adminTelegramID int64,
	opsChatIDs []int64,
	baseLogger *logrus.Entry,
) {
	allowed := make(map[int64]bool, len(opsChatIDs))
	for _, id := range opsChatIDs {
		allowed[id] = true
	}

	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := c.Callback().Data
		log := baseLogger.WithFields(logrus.Fields{
			"handler":   "pay_callback",
			"sender_id": c.Sender().ID,
		})

		if c.Sender().ID != adminTelegramID && (c.Chat() == nil || !allowed[c.Chat().ID]) {
			log.Warn("Unauthorized callback")
			return c.Respond(&telebot.CallbackResponse{Text: msgUnauthorized})
		}

		contractID, year, err := ParsePayCallbackData(data)
		if err != nil {
			c.Bot().OnError(err, c)
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
		}
		log = log.WithFields(logrus.Fields{"contract_id": contractID, "year": year})

		if _, err := annuities.MarkAnnuityPaid(ctx, contractID, year); err != nil {
			if domain.IsInvalidState(err) || domain.IsNotFound(err) {
				log.WithError(err).Warn("Payment callback rejected")
				return c.Respond(&telebot.CallbackResponse{Text: "Error: " + err.Error() + "."})
			}
			c.Bot().OnError(fmt.Errorf("error marking annuity %d of contract %d paid: %w", year, contractID, err), c)
			return c.Respond(&telebot.CallbackResponse{Text: "An error occurred."})
		}

		log.Info("Annuity marked paid from callback")
		return c.Respond(&telebot.CallbackResponse{Text: fmt.Sprintf("Annuity %d of contract #%d marked as paid.", year, contractID)})
	})
}
