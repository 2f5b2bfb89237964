package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DBConfig takes a full DSN, or the discrete host/user/name settings that
// Cloud SQL deployments inject, which resolveDSN assembles into one.
type DBConfig struct {
	DSN    string `envconfig:"SEALCARD_DB_DSN"`
	Driver string `envconfig:"SEALCARD_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SEALCARD_DB_HOST"`
	Port     int    `envconfig:"SEALCARD_DB_PORT" default:"5432"`
	User     string `envconfig:"SEALCARD_DB_USER"`
	Password string `envconfig:"SEALCARD_DB_PASSWORD"`
	Name     string `envconfig:"SEALCARD_DB_NAME"`
	SSLMode  string `envconfig:"SEALCARD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SEALCARD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SEALCARD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SEALCARD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SEALCARD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"SEALCARD_DB_SLOW_QUERY" default:"500ms"`
}

func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}
	var missing []string
	for env, v := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%s is empty and %s not set", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}
