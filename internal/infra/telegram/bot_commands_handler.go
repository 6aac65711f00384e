// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"fmt"
	"strings"

	"lease_notifier/internal/domain"
	"lease_notifier/internal/domain/party"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminTelegramID int64,
	parties party.Repository,
	baseLogger *logrus.Entry,
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Hello, %s! Lease reminders are running. Use /help for the command list.", c.Sender().FirstName))
		}

		p, err := parties.GetByTelegramID(ctx, senderID)
		if err == nil {
			logCtx.WithField("party_id", p.ID).Info("User identified as known party")
			return c.Send(fmt.Sprintf("Hello, %s! You will be reminded here about your contract deadlines.", p.FullName))
		} else if !domain.IsNotFound(err) {
			logCtx.WithError(err).Error("Error looking up party for /start command")
			return c.Send("Something went wrong while checking your account. Please try again later.")
		}

		logCtx.Info("User is unknown")
		return c.Send("Hello! This bot sends lease contract reminders. Ask the agency to register your Telegram account.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID == adminTelegramID {
			return c.Send(AdminHelpText(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}
		return c.Send("Reminders arrive a few days before a contract ends or an annuity falls due. There are no commands for you.")
	})
}

func AdminHelpText() string {
	var helpText strings.Builder
	helpText.WriteString("Admin commands:\n\n")
	helpText.WriteString("`/dispatch`\n - Run the expiry dispatch now.\n\n")
	helpText.WriteString("`/annuities <contract_id>`\n - List the annuities of a contract.\n\n")
	helpText.WriteString("`/recalculate <contract_id>`\n - Rebuild the annuities from the contract dates.\n\n")
	helpText.WriteString("`/pay <contract_id> <year>`\n - Mark an annuity as paid.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return helpText.String()
}
