package backend

import (
	"context"
	"fmt"
	"log/slog"

	"conti/internal/adapters"
	"conti/internal/amqp"
	"conti/internal/services"
	"conti/internal/storage"
	"conti/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional: without it mutations still land in the export
	// queue, the worker just drains it on its poll timer alone.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without export events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	transactions := services.NewTransactionService(repo, amqpClient)
	summaries := services.NewSummaryService(repo)
	adapter := adapters.NewBackendAdapter(repo, transactions, summaries)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	cleanup := func() error {
		var errs []error
		if err := transactions.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := repo.Close(); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			return fmt.Errorf("close sqlite backend: %v", errs)
		}
		return nil
	}

	return &BackendResult{
		Backend: adapter,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	st := memory.New()
	transactions := services.NewTransactionService(st, nil)
	summaries := services.NewSummaryService(st)
	adapter := adapters.NewBackendAdapter(st, transactions, summaries)

	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Backend: adapter,
		Cleanup: nil, // Nothing to release for the memory backend
	}, nil
}
