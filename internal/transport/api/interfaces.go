package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/festwallet/internal/session"
)

// SyncServicer управление сессией синхронизации, реализуется *session.Manager.
type SyncServicer interface {
	StartServer(ctx context.Context, address string) error
	Connect(ctx context.Context, address string) error
	Disconnect(ctx context.Context) error
	Status() session.Status
}
