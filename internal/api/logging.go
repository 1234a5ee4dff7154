package api

import (
	"github.com/rs/zerolog"

	adlog "github.com/ManuGH/adpod/internal/log"
)

// logger returns a logger configured with component metadata.
func logger(component string) *zerolog.Logger {
	l := adlog.WithComponent(component)
	return &l
}
