package app

import (
	"github.com/go-chi/oauth"
	"github.com/mbolis/vsaq/config"
	"github.com/mbolis/vsaq/store"
)

// App is what every handler factory receives.
type App struct {
	*store.Store
	*oauth.BearerServer
	config.Config
}
