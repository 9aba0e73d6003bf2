package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/vsaq/app"
	"github.com/mbolis/vsaq/log"
	"github.com/mbolis/vsaq/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Logger, NoColor: true}),
		middleware.Recoverer,
	)

	// the link is the respondent's only credential
	root.Route("/fill/{link}", func(r chi.Router) {
		r.Get("/", GetFill(app))
		r.Post("/save", SaveAnswer(app))
		r.Post("/submit", SubmitFill(app))
	})

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Route("/admin", func(r chi.Router) {
		r.Use(
			middlewares.CookieAuth(app.BearerServer, app.Config.SecureCookies),
			middlewares.Admin(app.Config.TokenSecret),
		)

		// CRUD template
		r.Post("/templates", CreateTemplate(app))
		r.Get("/templates", ListTemplates(app))
		r.Post("/templates/preview", PreviewContent(app))
		r.Get(`/templates/{id:^\d+$}`, GetTemplateById(app))
		r.Put(`/templates/{id:^\d+$}`, UpdateTemplate(app))
		r.Delete(`/templates/{id:^\d+$}`, DeleteTemplate(app))

		r.Post(`/templates/{id:^\d+$}/duplicate`, DuplicateTemplate(app))
		r.Post(`/templates/{id:^\d+$}/archive`, ArchiveTemplate(app))
		r.Get(`/templates/{id:^\d+$}/preview`, PreviewTemplate(app))

		// instance lifecycle
		r.Post("/instances", CreateInstance(app))
		r.Get("/instances", ListInstances(app))
		r.Get(`/instances/{id:^\d+$}`, GetInstanceById(app))
		r.Delete(`/instances/{id:^\d+$}`, DeleteInstance(app))
		r.Post(`/instances/{id:^\d+$}/unlock`, UnlockInstance(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
