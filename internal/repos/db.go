package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenDB connects to the catalog store, bootstraps the schema and returns a
// Store. Only sqlite and postgres are supported.
func OpenDB(driver, dsn string, maxConns int) (*Store, error) {
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One connection: writers are serialized and :memory: databases
		// survive for the life of the pool.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns / 2)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}
	return NewStore(db), nil
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "krishighor.db"
	}
	if strings.Contains(dsn, "_pragma=") || strings.HasPrefix(dsn, ":memory:") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func ensureSchema(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == DriverPostgres {
		schema = postgresSchema
	}
	_, err := db.ExecContext(context.Background(), schema)
	return err
}

const sqliteSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS crops(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL CHECK (price >= 0),
  quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0)
);
CREATE INDEX IF NOT EXISTS idx_crops_name   ON crops(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_crops_type   ON crops(type);
CREATE INDEX IF NOT EXISTS idx_crops_region ON crops(region);

CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  order_date TEXT NOT NULL,
  total_amount NUMERIC NOT NULL CHECK (total_amount >= 0),
  status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending' CHECK (payment_status IN ('pending','completed','failed')),
  payment_reference TEXT NOT NULL DEFAULT '',
  shipping_address TEXT NOT NULL,
  shipping_region TEXT NOT NULL DEFAULT '',
  shipping_phone TEXT NOT NULL,
  shipping_email TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_orders_user_date ON orders(user_id, order_date);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  line_no INTEGER NOT NULL,
  crop_id INTEGER NOT NULL REFERENCES crops(id),
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price NUMERIC NOT NULL,
  total_price NUMERIC NOT NULL,
  PRIMARY KEY(order_id, line_no)
);

CREATE TABLE IF NOT EXISTS outbox(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  topic TEXT NOT NULL,
  msg_key TEXT NOT NULL DEFAULT '',
  content BLOB NOT NULL,
  status INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  sent_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, id);

CREATE TABLE IF NOT EXISTS recommendation_indexes(
  version INTEGER PRIMARY KEY,
  schema_version INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  payload BLOB NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS crops(
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
  quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0)
);
CREATE INDEX IF NOT EXISTS idx_crops_name   ON crops(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_crops_type   ON crops(type);
CREATE INDEX IF NOT EXISTS idx_crops_region ON crops(region);

CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  order_date TEXT NOT NULL,
  total_amount NUMERIC(14,2) NOT NULL CHECK (total_amount >= 0),
  status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending' CHECK (payment_status IN ('pending','completed','failed')),
  payment_reference TEXT NOT NULL DEFAULT '',
  shipping_address TEXT NOT NULL,
  shipping_region TEXT NOT NULL DEFAULT '',
  shipping_phone TEXT NOT NULL,
  shipping_email TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_orders_user_date ON orders(user_id, order_date);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  line_no INTEGER NOT NULL,
  crop_id BIGINT NOT NULL REFERENCES crops(id),
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price NUMERIC(12,2) NOT NULL,
  total_price NUMERIC(14,2) NOT NULL,
  PRIMARY KEY(order_id, line_no)
);

CREATE TABLE IF NOT EXISTS outbox(
  id BIGSERIAL PRIMARY KEY,
  topic TEXT NOT NULL,
  msg_key TEXT NOT NULL DEFAULT '',
  content BYTEA NOT NULL,
  status INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  sent_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, id);

CREATE TABLE IF NOT EXISTS recommendation_indexes(
  version BIGINT PRIMARY KEY,
  schema_version INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  payload BYTEA NOT NULL
);
`
