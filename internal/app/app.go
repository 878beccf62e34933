package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/vladmir0512/deadline-bot/internal/config"
	"github.com/vladmir0512/deadline-bot/internal/notify"
	"github.com/vladmir0512/deadline-bot/internal/scheduler"
	"github.com/vladmir0512/deadline-bot/internal/store"
	"github.com/vladmir0512/deadline-bot/internal/telegram"
	"github.com/vladmir0512/deadline-bot/internal/yonote"
)

// Expired deadlines are kept this long after their due date before the
// sync job prunes them.
const expiredGrace = 30 * 24 * time.Hour

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
	loc     *time.Location
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	loc, err := time.LoadLocation(cfg.DefaultTZ)
	if err != nil {
		log.Warn("invalid DEFAULT_TZ, falling back to UTC", zap.String("tz", cfg.DefaultTZ), zap.Error(err))
		loc = time.UTC
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv, loc: loc}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting deadline-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("syncInterval", a.cfg.SyncInterval),
		zap.Duration("notifyInterval", a.cfg.NotifyInterval),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Yonote sync is optional: without credentials the bot still serves
	// manually created data and notifications.
	var syncer *yonote.Syncer
	if a.cfg.YonoteAPIKey != "" && a.cfg.YonoteDatabaseID != "" {
		client, err := yonote.New(a.cfg.YonoteBaseURL, a.cfg.YonoteAPIKey, a.cfg.YonoteDatabaseID)
		if err != nil {
			a.log.Error("yonote client init failed", zap.Error(err))
			return err
		}
		syncer = yonote.NewSyncer(repo, client, a.log)
	} else {
		a.log.Warn("yonote credentials missing, deadline sync disabled")
	}

	var routerSyncer telegram.Syncer
	if syncer != nil {
		routerSyncer = syncer
	}
	a.router = telegram.NewRouter(a.bot, a.log, repo, a.cfg, a.loc, routerSyncer)

	dispatcher := notify.NewDispatcher(repo, a.router, a.log, a.loc)
	a.router.SetPassRunner(dispatcher)

	go scheduler.New("notify", a.cfg.NotifyInterval, func(ctx context.Context) error {
		_, err := dispatcher.RunPass(ctx, time.Now().UTC())
		return err
	}, a.log).Run(ctx)

	if syncer != nil {
		go scheduler.New("sync", a.cfg.SyncInterval, func(ctx context.Context) error {
			if _, _, err := syncer.SyncAll(ctx); err != nil {
				return err
			}
			// Deadlines long past their due date are no longer useful to
			// anyone; drop them to keep the table small.
			_, err := syncer.PruneExpired(ctx, expiredGrace)
			return err
		}, a.log).Run(ctx)
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
