package cache

import (
	"database/sql"
	"fmt"
)

// New returns the cache named by cfg.Driver. db backs the sqlite driver.
func New(cfg Config, db *sql.DB) (Cache, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		if db == nil {
			return nil, fmt.Errorf("sqlite cache: no database")
		}
		return NewSQLite(db), nil
	case DriverRedis:
		return NewRedis(cfg), nil
	}
	return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
}
