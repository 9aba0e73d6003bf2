package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/mbolis/vsaq/app"
	"github.com/mbolis/vsaq/config"
	"github.com/mbolis/vsaq/database"
	"github.com/mbolis/vsaq/httpx"
	"github.com/mbolis/vsaq/log"
	"github.com/mbolis/vsaq/routes"
	"github.com/mbolis/vsaq/store"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vsaq",
		Short: "Vendor security questionnaires: build, send, fill",
		Long: `vsaq serves questionnaire templates to admins and questionnaire instances
to respondents, who fill them through a unique link.

Configuration is read from a JSON file, VSAQ_* environment variables and
flags, later sources overriding earlier ones.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "vsaq.json", "path to the JSON config file")
	flags.String("host", "", "interface to listen on")
	flags.Uint("port", 0, "port to listen on")
	flags.String("db-url", "", "path to the SQLite database")
	flags.String("token-secret", "", "secret signing admin tokens")
	flags.Uint("token-ttl", 0, "admin access token lifetime, in seconds")
	flags.Bool("debug", false, "log debug messages")
	flags.String("log-format", "", "log format: text or json")
	flags.String("base-url", "", "public address used in fill links")
	flags.Bool("secure-cookies", false, "mark token cookies as Secure")

	root.AddCommand(
		newServeCmd(),
		newAdminCmd(),
		newValidateCmd(),
		newEditCmd(),
		newFillCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireSecret(); err != nil {
				return err
			}

			db, err := database.Open(cfg.DBUrl)
			if err != nil {
				log.Error("main.db.open:", err)
				return err
			}
			defer db.Close()

			st := store.New(db)
			app := app.App{
				Store:        st,
				BearerServer: httpx.NewBearerServer(st, cfg),
				Config:       cfg,
			}

			handler := routes.Wire(app)

			err = runServer(cfg, handler)
			if !errors.Is(err, http.ErrServerClosed) {
				log.Error("main.server:", err)
				return err
			}
			return nil
		},
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
