// Package server assembles the quillpost backend: it opens the database,
// runs migrations, connects object storage, and serves the HTTP API until
// the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/quillpost/internal/logging"
	"github.com/dmitrijs2005/quillpost/internal/server/auth"
	"github.com/dmitrijs2005/quillpost/internal/server/blobstore"
	"github.com/dmitrijs2005/quillpost/internal/server/config"
	"github.com/dmitrijs2005/quillpost/internal/server/httpapi"
	"github.com/dmitrijs2005/quillpost/internal/server/metrics"
	"github.com/dmitrijs2005/quillpost/internal/server/oauth"
	"github.com/dmitrijs2005/quillpost/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/quillpost/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	blobs, err := blobstore.NewS3Store(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	var ox oauth.Exchanger
	if c.KakaoClientID != "" {
		ox = oauth.NewKakaoProvider(c.KakaoClientID, c.KakaoClientSecret, c.KakaoRedirectURL)
	} else {
		logger.Info(ctx, "external login disabled: no kakao client id")
	}

	codec := auth.NewCodec([]byte(c.SecretKey), c.SessionTokenTTL)

	us := services.NewUserService(db, rm, codec, blobs, c, logger.With("module", "users"))
	ps := services.NewPostService(db, rm, blobs, logger.With("module", "posts"))
	cs := services.NewCommentService(db, rm, logger.With("module", "comments"))

	srv := httpapi.NewServer(c, logger, codec, us, ps, cs, ox, metrics.New())

	return &App{config: c, logger: logger, db: db, http: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
