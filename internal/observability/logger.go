package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceLogger returns the global logger tagged with app.
func ServiceLogger(app string) zerolog.Logger {
	return log.Logger.With().Str("app", app).Logger()
}
