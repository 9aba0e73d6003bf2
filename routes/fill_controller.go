package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/vsaq/app"
	"github.com/mbolis/vsaq/httpx"
	"github.com/mbolis/vsaq/log"
	"github.com/mbolis/vsaq/model"
)

func GetFill(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")

		fill, err := app.GetFill(r.Context(), link)
		if err != nil {
			httpx.LogStoreError(w, "db.get_fill", link, err)
			return
		}

		render.JSON(w, r, fill)
	}
}

// SaveAnswer stores one answer under optimistic concurrency. A stale version
// is not an error: the response says conflict and carries the server's
// version so the respondent can reload.
func SaveAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")

		req := model.SaveRequest{}
		if !decodeBody(w, r, &req) {
			return
		}
		version := 1
		if req.Version != nil {
			version = *req.Version
		}

		res, err := app.SaveAnswer(r.Context(), link, req.QuestionID, req.AnswerValue, version)
		if err != nil {
			httpx.LogStoreError(w, "db.save_answer", link, err)
			return
		}

		if res.Outcome == model.Conflict {
			log.WithFields(log.Fields{
				"question":       req.QuestionID,
				"client_version": version,
				"server_version": res.Version,
			}).Debug("answer conflict")

			render.JSON(w, r, model.SaveResponse{
				Conflict:      true,
				ServerVersion: res.Version,
				UpdatedAt:     res.UpdatedAt,
			})
			return
		}

		render.JSON(w, r, model.SaveResponse{
			Success:   true,
			Version:   res.Version,
			UpdatedAt: res.UpdatedAt,
		})
	}
}

func SubmitFill(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")

		err := app.Submit(r.Context(), link)
		if err != nil {
			httpx.LogStoreError(w, "db.submit", link, err)
			return
		}

		log.WithFields(log.Fields{"link": link}).Info("questionnaire submitted")
		render.JSON(w, r, map[string]any{
			"success": true,
		})
	}
}
