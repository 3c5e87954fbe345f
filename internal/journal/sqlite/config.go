package sqlite

import (
	"fmt"

	"github.com/loykin/webstep/internal/constants"
	"github.com/loykin/webstep/internal/util"
)

const busyTimeoutMS = 5000

type Config struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DSN returns a modernc DSN with a busy timeout, defaulting the file name.
func (c *Config) DSN() string {
	path := util.TrimWithDefault(c.Path, constants.DefaultJournalDBFile)
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, busyTimeoutMS)
}
