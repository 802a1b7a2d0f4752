package db

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/ticket-sync/internal/batch"
	"github.com/Kamar-Folarin/ticket-sync/internal/config"
)

// Store groups the repositories that share one Adapter.
type Store struct {
	adapter Adapter
	Tickets *TicketStore
	Clients *ClientStore
	Runs    *RunStore
}

func NewStore(adapter Adapter, batchCfg *config.BatchConfig, logger *logrus.Logger) *Store {
	return &Store{
		adapter: adapter,
		Tickets: NewTicketStore(adapter, batch.NewProcessor(batchCfg), logger),
		Clients: NewClientStore(adapter),
		Runs:    NewRunStore(adapter),
	}
}

func (s *Store) Adapter() Adapter {
	return s.adapter
}

// Backend names the backend actually in use, which may be the fallback.
func (s *Store) Backend() string {
	return s.adapter.Dialect().Name()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.adapter.Ping(ctx)
}

func (s *Store) Close() error {
	return s.adapter.Close()
}
