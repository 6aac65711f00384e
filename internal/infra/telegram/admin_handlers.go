package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lease_notifier/internal/app"
	"lease_notifier/internal/domain"
	"lease_notifier/internal/domain/annuity"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// AnnuityManager is the part of the annuity service the bot exposes to the admin.
type AnnuityManager interface {
	ListAnnuities(ctx context.Context, contractID int64) ([]*annuity.Annuity, error)
	RecalculateAnnuities(ctx context.Context, contractID int64) ([]*annuity.Annuity, error)
	MarkAnnuityPaid(ctx context.Context, contractID int64, year int) (*annuity.Annuity, error)
}

const msgUnauthorized = "Error: you are not allowed to run this command."

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(
	ctx context.Context,
	b *telebot.Bot,
	runner app.DispatchRunner,
	annuities AnnuityManager,
	adminTelegramID int64,
	dispatchTimeout time.Duration,
	baseLogger *logrus.Entry,
) {
	guard := func(command string, next func(c telebot.Context, log *logrus.Entry) error) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			handlerLogger.Info("Command received")
			if c.Sender().ID != adminTelegramID {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send(msgUnauthorized)
			}
			return next(c, handlerLogger)
		}
	}

	b.Handle("/dispatch", guard("/dispatch", func(c telebot.Context, log *logrus.Entry) error {
		runCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
		defer cancel()

		stats, err := runner.RunExpiryDispatch(runCtx)
		if err != nil {
			log.WithError(err).Error("Manual dispatch failed")
			return c.Send(fmt.Sprintf("Dispatch aborted: %s\n\n%s", err.Error(), FormatStats(stats)))
		}
		return c.Send(FormatStats(stats))
	}))

	b.Handle("/annuities", guard("/annuities", func(c telebot.Context, log *logrus.Entry) error {
		contractID, err := parseContractArgs(c.Args())
		if err != nil {
			return c.Send("Invalid format. Use: /annuities <contract_id>")
		}
		rows, err := annuities.ListAnnuities(ctx, contractID)
		if err != nil {
			return c.Send(replyForError(log, err, "list annuities"))
		}
		return c.Send(FormatAnnuities(contractID, rows))
	}))

	b.Handle("/recalculate", guard("/recalculate", func(c telebot.Context, log *logrus.Entry) error {
		contractID, err := parseContractArgs(c.Args())
		if err != nil {
			return c.Send("Invalid format. Use: /recalculate <contract_id>")
		}
		rows, err := annuities.RecalculateAnnuities(ctx, contractID)
		if err != nil {
			return c.Send(replyForError(log, err, "recalculate annuities"))
		}
		return c.Send(FormatAnnuities(contractID, rows))
	}))

	b.Handle("/pay", guard("/pay", func(c telebot.Context, log *logrus.Entry) error {
		contractID, year, err := parsePayArgs(c.Args())
		if err != nil {
			return c.Send("Invalid format. Use: /pay <contract_id> <year>")
		}
		a, err := annuities.MarkAnnuityPaid(ctx, contractID, year)
		if err != nil {
			return c.Send(replyForError(log, err, "mark annuity paid"))
		}
		log.WithFields(logrus.Fields{"contract_id": contractID, "year": year}).Info("Annuity marked paid from bot")
		return c.Send(fmt.Sprintf("Annuity %d of contract #%d marked as paid.", a.Year, contractID))
	}))
}

func parseContractArgs(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	return strconv.ParseInt(args[0], 10, 64)
}

func parsePayArgs(args []string) (int64, int, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected 2 arguments, got %d", len(args))
	}
	contractID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	year, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, err
	}
	return contractID, year, nil
}

// replyForError maps the error taxonomy to a chat reply and logs infrastructure failures.
func replyForError(log *logrus.Entry, err error, action string) string {
	switch {
	case domain.IsNotFound(err):
		log.WithError(err).Warn("Not found")
		return "Error: " + err.Error() + "."
	case domain.IsInvalidState(err):
		log.WithError(err).Warn("Rejected")
		return "Error: " + err.Error() + "."
	default:
		log.WithError(err).Error("Failed to " + action)
		return fmt.Sprintf("Failed to %s, please try again later.", action)
	}
}

func FormatStats(s app.Stats) string {
	return fmt.Sprintf("Run %s for %s\nprocessed: %d\nsent: %d\nskipped: %d\nfailed: %d",
		s.RunID, s.TargetDate.Format("2006-01-02"), s.Processed, s.Sent, s.Skipped, s.Failed)
}

func FormatAnnuities(contractID int64, rows []*annuity.Annuity) string {
	if len(rows) == 0 {
		return fmt.Sprintf("Contract #%d has no annuities.", contractID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Annuities of contract #%d:\n", contractID)
	for _, a := range rows {
		status := "unpaid"
		if a.IsPaid {
			status = "paid"
			if a.PaidAt.Valid {
				status += " on " + a.PaidAt.Time.Format("2006-01-02")
			}
		}
		fmt.Fprintf(&b, "%d. due %s, %s\n", a.Year, a.DueDate.Format("2006-01-02"), status)
	}
	return strings.TrimRight(b.String(), "\n")
}
