package postgres

import (
	"database/sql"
	"fmt"
	"time"

	// pgx registered as a database/sql driver
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/realtoken-app/go-realtoken/env"
	"github.com/realtoken-app/go-realtoken/service/logger"
)

type connectionParams struct {
	user     string
	password string
	dbname   string
	host     string
	port     int
}

func (c connectionParams) toConnectionString() string {
	port := c.port
	if port == 0 {
		port = 5432
	}
	connStr := fmt.Sprintf("user=%s dbname=%s host=%s port=%d", c.user, c.dbname, c.host, port)
	if c.password != "" {
		connStr += fmt.Sprintf(" password=%s", c.password)
	}
	return connStr
}

func newConnectionParamsFromEnv() connectionParams {
	return connectionParams{
		user:     env.GetString("POSTGRES_USER"),
		password: env.GetString("POSTGRES_PASSWORD"),
		dbname:   env.GetString("POSTGRES_DB"),
		host:     env.GetString("POSTGRES_HOST"),
		port:     env.GetInt("POSTGRES_PORT"),
	}
}

// ConnectionOption overrides a connection parameter otherwise read from the environment
type ConnectionOption func(params *connectionParams)

// WithUser sets the connection's user
func WithUser(user string) ConnectionOption {
	return func(params *connectionParams) {
		params.user = user
	}
}

// WithPassword sets the connection's password
func WithPassword(password string) ConnectionOption {
	return func(params *connectionParams) {
		params.password = password
	}
}

// WithDBName sets the connection's database
func WithDBName(dbname string) ConnectionOption {
	return func(params *connectionParams) {
		params.dbname = dbname
	}
}

// WithHost sets the connection's host
func WithHost(host string) ConnectionOption {
	return func(params *connectionParams) {
		params.host = host
	}
}

// WithPort sets the connection's port
func WithPort(port int) ConnectionOption {
	return func(params *connectionParams) {
		params.port = port
	}
}

// NewClient opens a postgres connection pool, panicking if the database is unreachable
func NewClient(opts ...ConnectionOption) *sql.DB {
	params := newConnectionParamsFromEnv()
	for _, opt := range opts {
		opt(&params)
	}

	db, err := sql.Open("pgx", params.toConnectionString())
	if err != nil {
		panic(err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		panic(fmt.Sprintf("error connecting to postgres: %s", err))
	}

	logger.For(nil).Infof("connected to postgres at %s:%d", params.host, params.port)
	return db
}

func checkNoErr(err error) {
	if err != nil {
		panic(err)
	}
}
