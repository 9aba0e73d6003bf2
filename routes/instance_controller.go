package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/vsaq/app"
	"github.com/mbolis/vsaq/httpx"
	"github.com/mbolis/vsaq/log"
	"github.com/mbolis/vsaq/model"
	"github.com/mbolis/vsaq/questionnaire"
	"github.com/mbolis/vsaq/routes/middlewares"
)

type instanceRequest struct {
	TemplateID  int    `json:"template_id" validate:"required"`
	TargetName  string `json:"target_name"`
	TargetEmail string `json:"target_email" validate:"omitempty,email"`
}

func CreateInstance(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := instanceRequest{}
		if !decodeBody(w, r, &req) {
			return
		}

		instance, err := app.CreateInstance(r.Context(), model.Instance{
			TemplateID:  req.TemplateID,
			TargetName:  req.TargetName,
			TargetEmail: req.TargetEmail,
			CreatedBy:   middlewares.AdminID(r),
		})
		if err != nil {
			httpx.LogStoreError(w, "db.insert_instance", req.TemplateID, err)
			return
		}

		log.WithFields(log.Fields{
			"instance": instance.ID,
			"template": instance.TemplateID,
		}).Info("questionnaire sent")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":          instance.ID,
			"unique_link": instance.UniqueLink,
			"url":         app.Config.FillURL(instance.UniqueLink),
		})
	}
}

func ListInstances(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instances, err := app.ListInstances(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.get_instances", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"instances": instances,
		})
	}
}

type instanceDetail struct {
	model.Instance
	TemplateContent string                  `json:"template_content"`
	Answers         map[string]model.Answer `json:"answers"`
	Progress        *questionnaire.Progress `json:"progress,omitempty"`
}

// GetInstanceById returns an instance with its answers and the progress the
// respondent has made, computed the same way the fill page does.
func GetInstanceById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instanceId, ok := urlID(w, r)
		if !ok {
			return
		}

		instance, err := app.GetInstance(r.Context(), instanceId)
		if err != nil {
			httpx.LogStoreError(w, "db.get_instance", instanceId, err)
			return
		}

		template, err := app.GetTemplate(r.Context(), instance.TemplateID)
		if err != nil {
			httpx.LogInternalError(w, "db.get_instance.template", err)
			return
		}

		answers, err := app.LoadAnswers(r.Context(), instanceId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_instance.answers", err)
			return
		}

		detail := instanceDetail{
			Instance:        instance,
			TemplateContent: template.Content,
			Answers:         answers,
		}

		doc, err := questionnaire.Parse([]byte(template.Content))
		if err != nil {
			log.WithFields(log.Fields{"instance": instanceId}).Warn("unreadable template content: ", err)
		} else {
			values := questionnaire.Answers{}
			for id, a := range answers {
				values[id] = a.Value
			}
			progress := questionnaire.Render(doc, values).Progress()
			detail.Progress = &progress
		}

		render.JSON(w, r, detail)
	}
}

func DeleteInstance(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instanceId, ok := urlID(w, r)
		if !ok {
			return
		}

		err := app.DeleteInstance(r.Context(), instanceId)
		if err != nil {
			httpx.LogStoreError(w, "db.delete_instance", instanceId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func UnlockInstance(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instanceId, ok := urlID(w, r)
		if !ok {
			return
		}

		err := app.Unlock(r.Context(), instanceId)
		if err != nil {
			httpx.LogStoreError(w, "db.unlock_instance", instanceId, err)
			return
		}

		log.WithFields(log.Fields{"instance": instanceId}).Info("questionnaire unlocked")
		w.WriteHeader(http.StatusNoContent)
	}
}
