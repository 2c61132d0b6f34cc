package service

import (
	"log/slog"

	"shopmaster/internal/repository"
	ws "shopmaster/internal/websocket"
)

// CommonDeps are the collaborators shared by the bookkeeping services.
// Events and Logger may be nil.
type CommonDeps struct {
	Tx       repository.TransactionManager
	Activity repository.ActivityRepository
	Events   ChangePublisher
	Logger   *slog.Logger
}

func (d CommonDeps) log() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d CommonDeps) publish(collection, action, id string) {
	if d.Events != nil {
		d.Events.Publish(ws.Event{Collection: collection, Action: action, ID: id})
	}
}
