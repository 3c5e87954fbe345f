package postgresql

import (
	"fmt"
	"net/url"

	"github.com/loykin/webstep/internal/constants"
	"github.com/loykin/webstep/internal/util"
)

type Config struct {
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// ConnString prefers an explicit DSN; otherwise it is built from the
// components when a host is set. Empty means not configured.
func (c *Config) ConnString() string {
	if dsn, ok := util.TrimEmptyCheck(c.DSN); ok {
		return dsn
	}
	host, ok := util.TrimEmptyCheck(c.Host)
	if !ok {
		return ""
	}
	port := c.Port
	if port == 0 {
		port = constants.DefaultPostgresPort
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(util.TrimWithDefault(c.SSLMode, constants.DefaultPostgresSSLMode)),
	}
	return u.String()
}
