package storage

import "fmt"

const (
	KindMemory   = "memory"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindMySQL    = "mysql"
	KindBadger   = "badger"
)

func DefaultStoreKind() string {
	return KindMemory
}

// NewStore builds a backend by name. location is a file path for sqlite, a
// directory for badger (empty means in-memory) and a DSN for postgres/mysql.
func NewStore(kind, location string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite, KindPostgres, KindMySQL:
		return NewSQLStore(kind, location)
	case KindBadger:
		return NewBadgerStore(location), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
