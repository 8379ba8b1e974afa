package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-payhooks/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

type FactoryOption func(*RepositoryFactory)

// WithUserCache puts a read-through cache in front of user lookups. The order
// store invalidates entries after every ltv change.
func WithUserCache(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.userCache = cacheService
	}
}

type RepositoryFactory struct {
	db        *bun.DB
	userCache repositorycache.CacheService

	orderStore    *OrderStore
	eventLogStore *EventLogStore
	userDirectory core.UserDirectory
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.orderStore != nil && f.eventLogStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) OrderStore() *OrderStore {
	if f == nil {
		return nil
	}
	return f.orderStore
}

func (f *RepositoryFactory) Ledger() core.OrderLedger {
	if f == nil || f.orderStore == nil {
		return nil
	}
	return f.orderStore
}

// UserDirectory returns the cached directory when a cache was configured and
// the order store otherwise.
func (f *RepositoryFactory) UserDirectory() core.UserDirectory {
	if f == nil {
		return nil
	}
	return f.userDirectory
}

func (f *RepositoryFactory) EventLogStore() *EventLogStore {
	if f == nil {
		return nil
	}
	return f.eventLogStore
}

func (f *RepositoryFactory) initStores() error {
	orderStore, err := NewOrderStore(f.db)
	if err != nil {
		return err
	}
	eventLogStore, err := NewEventLogStore(f.db)
	if err != nil {
		return err
	}
	f.orderStore = orderStore
	f.eventLogStore = eventLogStore
	f.userDirectory = orderStore

	if f.userCache != nil {
		cached, err := NewCachedUserDirectory(orderStore, f.userCache)
		if err != nil {
			return err
		}
		orderStore.OnUserChanged(cached.Invalidate)
		f.userDirectory = cached
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
