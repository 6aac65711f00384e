package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lease_notifier/internal/app"
	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"
	"lease_notifier/internal/domain/delivery"
	"lease_notifier/internal/domain/notification"
	"lease_notifier/internal/domain/party"
	"lease_notifier/internal/domain/store"
	"lease_notifier/internal/infra/config"
	idb "lease_notifier/internal/infra/database"
	"lease_notifier/internal/infra/logger"
	"lease_notifier/internal/infra/mailer"
	"lease_notifier/internal/infra/memory"
	"lease_notifier/internal/infra/metrics"
	"lease_notifier/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// application holds the wired components shared by the commands.
type application struct {
	cfg *config.AppConfig
	db  *sql.DB

	store         store.Store
	contracts     contract.Repository
	annuities     annuity.Repository
	notifications notification.Repository
	parties       party.Repository

	annuityService  *app.AnnuityService
	contractService *app.ContractService
	dispatcher      *app.Dispatcher
	metrics         *metrics.DispatchMetrics
	bot             *telebot.Bot
}

func buildApplication(ctx context.Context, cfg *config.AppConfig, withPoller bool) (*application, error) {
	a := &application{cfg: cfg}
	mainLogger := logger.WithComponent("main")

	if err := a.openStorage(ctx, mainLogger); err != nil {
		return nil, err
	}

	a.annuityService = app.NewAnnuityService(a.store, a.contracts, a.annuities, logger.WithComponent("annuities"))
	a.contractService = app.NewContractService(a.store, a.contracts, a.annuityService, logger.WithComponent("contracts"))

	registry := metrics.NewRegistry()
	m, err := metrics.NewDispatchMetrics(registry)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.metrics = m

	internal, err := a.internalChannel(withPoller, mainLogger)
	if err != nil {
		a.Close()
		return nil, err
	}

	scanner := app.NewExpiryScanner(a.contracts, a.annuities, cfg.ExpiryHorizonDays, cfg.Location)
	ledger := app.NewNotificationLedger(a.notifications, logger.WithComponent("ledger"))
	a.dispatcher = app.NewDispatcher(
		scanner,
		ledger,
		a.contracts,
		internal,
		a.subjectChannel(mainLogger),
		logger.WithComponent("dispatcher"),
		app.WithRecorder(a.metrics),
		app.WithDeliveryTimeout(cfg.DeliveryTimeout),
	)
	return a, nil
}

func (a *application) openStorage(ctx context.Context, log *logrus.Entry) error {
	if a.cfg.StorageDriver == config.DriverMemory {
		st := memory.NewStore()
		a.store, a.contracts, a.annuities, a.notifications, a.parties =
			st, st.Contracts(), st.Annuities(), st.Notifications(), st.Parties()
		log.Warn("Using in-memory storage, data is lost on exit")
		return nil
	}

	if a.cfg.MigrateOnStart {
		if err := idb.MigrateUp(a.cfg.DatabaseURL); err != nil {
			return fmt.Errorf("could not migrate database: %w", err)
		}
		log.Info("Database migrations applied")
	}
	db, err := idb.NewPostgresConnection(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	a.db = db
	a.store = idb.NewPostgresStore(db)
	a.contracts = idb.NewPostgresContractRepository(db)
	a.annuities = idb.NewPostgresAnnuityRepository(db)
	a.notifications = idb.NewPostgresNotificationRepository(db)
	a.parties = idb.NewPostgresPartyRepository(db)
	log.Info("Database connection established successfully")
	return nil
}

func (a *application) internalChannel(withPoller bool, log *logrus.Entry) (delivery.InternalChannel, error) {
	if !a.cfg.TelegramEnabled() {
		log.Warn("TELEGRAM_TOKEN is not set, internal reminders are disabled")
		return disabledInternal(log), nil
	}

	botLogger := logger.WithComponent("telegram")
	pref := telebot.Settings{
		Token: a.cfg.TelegramToken,
		OnError: func(err error, c telebot.Context) {
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Telegram handler error")
		},
	}
	if withPoller {
		pref.Poller = &telebot.LongPoller{Timeout: 10 * time.Second}
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	a.bot = bot
	return telegram.NewOpsChannel(telegram.NewTelebotAdapter(bot), a.cfg.OpsTelegramChatIDs, botLogger), nil
}

func (a *application) subjectChannel(log *logrus.Entry) delivery.SubjectChannel {
	if !a.cfg.MailEnabled() {
		log.Warn("SMTP_HOST or SMTP_FROM is not set, subject reminders are disabled")
		return delivery.SubjectFunc(func(context.Context, delivery.Reminder) bool { return false })
	}
	return mailer.New(mailer.Config{
		Host:     a.cfg.SMTPHost,
		Port:     a.cfg.SMTPPort,
		Username: a.cfg.SMTPUsername,
		Password: a.cfg.SMTPPassword,
		From:     a.cfg.SMTPFrom,
	}, a.parties, logger.WithComponent("mailer"))
}

func disabledInternal(log *logrus.Entry) delivery.InternalChannel {
	return delivery.InternalFunc(func(_ context.Context, r delivery.Reminder) bool {
		log.WithField("contract_id", r.Contract.ID).Debug("Internal channel disabled")
		return false
	})
}

// registerBot wires the admin commands and callbacks. No-op without a bot.
func (a *application) registerBot(ctx context.Context) {
	if a.bot == nil {
		return
	}
	botLogger := logger.WithComponent("telegram")
	telegram.RegisterBotCommands(ctx, a.bot, a.cfg.AdminTelegramID, a.parties, botLogger)
	telegram.RegisterAdminHandlers(ctx, a.bot, a.dispatcher, a.annuityService, a.cfg.AdminTelegramID, a.cfg.DispatchTimeout, botLogger)
	telegram.RegisterPaymentCallbackHandler(ctx, a.bot, a.annuityService, a.cfg.AdminTelegramID, a.cfg.OpsTelegramChatIDs, botLogger)
}

func (a *application) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

