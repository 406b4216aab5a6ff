package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsdevblog/festwallet/internal/config"
	"github.com/fsdevblog/festwallet/internal/ledger"
	"github.com/fsdevblog/festwallet/internal/persistence"
	"github.com/fsdevblog/festwallet/internal/persistence/filestore"
	"github.com/fsdevblog/festwallet/internal/persistence/pgstore"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/fsdevblog/festwallet/internal/repository/pgrepo"
	"github.com/fsdevblog/festwallet/internal/session"
	"github.com/fsdevblog/festwallet/internal/transport/api"
	"github.com/fsdevblog/festwallet/internal/transport/ws"
	"github.com/fsdevblog/festwallet/pkg/uow"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.WithFields(logrus.Fields{
		"node":     a.Config.NodeID,
		"address":  a.Config.RunAddress,
		"storage":  a.Config.Storage,
		"syncMode": a.Config.SyncMode,
	}).Info("Starting app")

	changes := replication.NewLog()
	defer changes.Close()
	lg := ledger.New(a.Config.NodeID, changes, a.Logger)

	adapter, closeStorage, err := a.openStorage(notifyCtx)
	if err != nil {
		return fmt.Errorf("app run: %w", err)
	}
	defer closeStorage()

	var saver *persistence.Saver
	if adapter != nil {
		if restoreErr := persistence.Restore(notifyCtx, adapter, lg, a.Logger); restoreErr != nil {
			return fmt.Errorf("app run: %w", restoreErr)
		}
		saver = persistence.NewSaver(adapter, lg, changes, a.Logger).SetDebounce(a.Config.SaveDebounce)
		go saver.Run(notifyCtx, changes.LastSeq())
	}

	manager := session.NewManager(lg, changes, ws.New(a.Logger), a.Logger).
		SetHandshakeTimeout(a.Config.HandshakeTimeout)
	a.startSync(notifyCtx, manager)
	downlink := a.startDownlink(notifyCtx, lg, changes)

	router, err := api.New(api.RouterArgs{
		Logger:       a.Logger,
		Ledger:       lg,
		Sync:         manager,
		JWTSecretKey: []byte(a.Config.JWTSecret),
	})
	if err != nil {
		return fmt.Errorf("app run: %w", err)
	}

	srv := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second, //nolint:mnd
	}
	errChan := make(chan error, 1)
	go func() {
		if runErr := srv.ListenAndServe(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			errChan <- runErr
		}
	}()

	var runErr error
	select {
	case <-notifyCtx.Done():
		runErr = notifyCtx.Err()
	case runErr = <-errChan:
	}

	a.shutdown(srv, saver, manager, downlink)
	return runErr
}

// openStorage возвращает nil адаптер для STORAGE=none.
func (a *App) openStorage(ctx context.Context) (persistence.Adapter, func(), error) {
	switch a.Config.Storage {
	case config.StorageFile:
		return filestore.New(a.Config.DataFile), func() {}, nil
	case config.StoragePostgres:
		conn, connErr := pgrepo.Connect(ctx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
		if connErr != nil {
			return nil, nil, fmt.Errorf("open storage: %w", connErr)
		}
		store, storeErr := pgstore.New(uow.NewUnitOfWork(conn), a.Config.NodeID)
		if storeErr != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("open storage: %w", storeErr)
		}
		return store, conn.Close, nil
	default:
		a.Logger.Warn("storage disabled, state is kept in memory only")
		return nil, func() {}, nil
	}
}

// startSync запускает сессию из конфигурации. Ошибка подключения не мешает узлу работать
// автономно.
func (a *App) startSync(ctx context.Context, manager *session.Manager) {
	switch a.Config.SyncMode {
	case config.SyncServer:
		if err := manager.StartServer(ctx, a.Config.SyncAddress); err != nil {
			a.Logger.WithError(err).Error("starting sync server")
		}
	case config.SyncClient:
		if err := manager.Connect(ctx, a.Config.SyncAddress); err != nil {
			a.Logger.WithError(err).Warn("connecting to sync server")
		}
	}
	if a.Config.Reconnect {
		go session.NewReconnector(manager, a.Config.SyncAddress, a.Logger).Run(ctx)
	}
}

// startDownlink поднимает вторую, серверную сессию над тем же ledger и журналом: изменения от
// вышестоящего сервера уходят дочерним узлам и обратно. Без SYNC_DOWNLINK_ADDRESS возвращает nil.
func (a *App) startDownlink(ctx context.Context, lg *ledger.Ledger, changes *replication.Log) *session.Manager {
	if a.Config.DownlinkAddress == "" {
		return nil
	}
	downlink := session.NewManager(lg, changes, ws.New(a.Logger), a.Logger).
		SetHandshakeTimeout(a.Config.HandshakeTimeout)
	if err := downlink.StartServer(ctx, a.Config.DownlinkAddress); err != nil {
		a.Logger.WithError(err).Error("starting sync downlink")
	}
	return downlink
}

func (a *App) shutdown(srv *http.Server, saver *persistence.Saver, managers ...*session.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.Logger.WithError(err).Error("http server shutdown")
	}
	for _, manager := range managers {
		if manager == nil {
			continue
		}
		if err := manager.Disconnect(ctx); err != nil {
			a.Logger.WithError(err).Error("sync session shutdown")
		}
	}
	if saver != nil {
		if err := saver.Flush(ctx); err != nil {
			a.Logger.WithError(err).Error("final save")
		}
	}
}
