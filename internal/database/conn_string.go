package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/treasury-basis/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config. A
// non-empty appName is sent as application_name so cycles can be traced to
// the hedger instance that wrote them.
func BuildConnString(cfg config.DBConfig, appName string) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	if appName != "" {
		q.Set("application_name", appName)
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		q.Encode(),
	)
}
