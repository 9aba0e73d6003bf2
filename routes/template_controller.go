package routes

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/vsaq/app"
	"github.com/mbolis/vsaq/httpx"
	"github.com/mbolis/vsaq/log"
	"github.com/mbolis/vsaq/model"
	"github.com/mbolis/vsaq/questionnaire"
	"github.com/mbolis/vsaq/routes/middlewares"
)

type templateRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Content     string `json:"content" validate:"required"`
}

type validationIssue struct {
	questionnaire.ValidationError
	Message string `json:"message"`
}

// checkContent parses and validates template content. Nothing is stored
// unless the whole document is clean; otherwise the 400 response, listing
// every problem, has already been sent.
func checkContent(w http.ResponseWriter, r *http.Request, content string) (*questionnaire.Document, bool) {
	doc, err := questionnaire.Parse([]byte(content))
	if err != nil {
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "template.parse_content", "invalid questionnaire content: %s", err)
		return nil, false
	}

	errs := questionnaire.Validate(doc)
	if len(errs) > 0 {
		log.WithFields(log.Fields{"code": "template.validate", "problems": len(errs)}).Debug(errs.Err())

		issues := make([]validationIssue, len(errs))
		for i, e := range errs {
			issues[i] = validationIssue{e, e.Error()}
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]any{
			"errors": issues,
		})
		return nil, false
	}
	return doc, true
}

func CreateTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := templateRequest{}
		if !decodeBody(w, r, &req) {
			return
		}
		if _, ok := checkContent(w, r, req.Content); !ok {
			return
		}

		templateId, err := app.CreateTemplate(r.Context(), model.Template{
			Name:        req.Name,
			Description: req.Description,
			Content:     req.Content,
			CreatedBy:   middlewares.AdminID(r),
		})
		if err != nil {
			httpx.LogInternalError(w, "db.insert_template", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": templateId,
		})
	}
}

func ListTemplates(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeArchived := r.URL.Query().Get("archived") == "true"

		templates, err := app.ListTemplates(r.Context(), includeArchived)
		if err != nil {
			httpx.LogInternalError(w, "db.get_templates", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"templates": templates,
		})
	}
}

func GetTemplateById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, ok := urlID(w, r)
		if !ok {
			return
		}

		template, err := app.GetTemplate(r.Context(), templateId)
		if err != nil {
			httpx.LogStoreError(w, "db.get_template", templateId, err)
			return
		}

		render.JSON(w, r, template)
	}
}

func UpdateTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, ok := urlID(w, r)
		if !ok {
			return
		}

		req := templateRequest{}
		if !decodeBody(w, r, &req) {
			return
		}
		if _, ok := checkContent(w, r, req.Content); !ok {
			return
		}

		err := app.UpdateTemplate(r.Context(), model.Template{
			ID:          templateId,
			Name:        req.Name,
			Description: req.Description,
			Content:     req.Content,
		})
		if err != nil {
			httpx.LogStoreError(w, "db.update_template", templateId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, ok := urlID(w, r)
		if !ok {
			return
		}

		err := app.DeleteTemplate(r.Context(), templateId)
		if err != nil {
			httpx.LogStoreError(w, "db.delete_template", templateId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DuplicateTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, ok := urlID(w, r)
		if !ok {
			return
		}

		newId, err := app.DuplicateTemplate(r.Context(), templateId, middlewares.AdminID(r))
		if err != nil {
			httpx.LogStoreError(w, "db.duplicate_template", templateId, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": newId,
		})
	}
}

// ArchiveTemplate hides or restores a template. The body {"archive": false}
// restores; an empty body archives.
func ArchiveTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, ok := urlID(w, r)
		if !ok {
			return
		}

		req := struct {
			Archive *bool `json:"archive"`
		}{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil && !errors.Is(err, io.EOF) {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		archive := req.Archive == nil || *req.Archive

		err = app.SetArchived(r.Context(), templateId, archive)
		if err != nil {
			httpx.LogStoreError(w, "db.archive_template", templateId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type previewRequest struct {
	Content string                `json:"content" validate:"required"`
	Answers questionnaire.Answers `json:"answers"`
}

type preview struct {
	Entries  []questionnaire.Entry  `json:"entries"`
	Progress questionnaire.Progress `json:"progress"`
}

func renderPreview(doc *questionnaire.Document, answers questionnaire.Answers) preview {
	p := questionnaire.Render(doc, answers)
	entries := p.Entries()
	if entries == nil {
		entries = []questionnaire.Entry{}
	}
	return preview{entries, p.Progress()}
}

// PreviewContent renders unsaved content against sample answers, the way a
// respondent would see it.
func PreviewContent(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := previewRequest{}
		if !decodeBody(w, r, &req) {
			return
		}
		doc, ok := checkContent(w, r, req.Content)
		if !ok {
			return
		}

		render.JSON(w, r, renderPreview(doc, req.Answers))
	}
}

func PreviewTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, ok := urlID(w, r)
		if !ok {
			return
		}

		template, err := app.GetTemplate(r.Context(), templateId)
		if err != nil {
			httpx.LogStoreError(w, "db.get_template", templateId, err)
			return
		}

		doc, err := questionnaire.Parse([]byte(template.Content))
		if err != nil {
			httpx.LogInternalError(w, "template.parse_content", err)
			return
		}

		render.JSON(w, r, renderPreview(doc, nil))
	}
}
