package model

type Template struct {
	ID            int    `json:"id,omitempty"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Content       string `json:"content"`
	CreatedBy     int    `json:"created_by,omitempty"`
	CreatedByName string `json:"created_by_username,omitempty"`
	CreatedAt     int64  `json:"created_at,omitempty"`
	UpdatedAt     int64  `json:"updated_at,omitempty"`
	IsArchived    bool   `json:"is_archived"`
}

type Instance struct {
	ID           int    `json:"id"`
	TemplateID   int    `json:"template_id"`
	TemplateName string `json:"template_name,omitempty"`
	UniqueLink   string `json:"unique_link"`
	TargetName   string `json:"target_name"`
	TargetEmail  string `json:"target_email"`
	CreatedBy    int    `json:"created_by"`
	CreatedAt    int64  `json:"created_at"`
	SentAt       *int64 `json:"sent_at"`
	SubmittedAt  *int64 `json:"submitted_at"`
	IsLocked     bool   `json:"is_locked"`
	Version      int    `json:"version"`
	AnswerCount  int    `json:"answer_count"`
}

// State is the lifecycle position of an instance.
type State string

const (
	StateOpen   State = "open"
	StateLocked State = "locked"
)

func (i Instance) State() State {
	if i.IsLocked {
		return StateLocked
	}
	return StateOpen
}

type Answer struct {
	Value     string `json:"value"`
	Version   int    `json:"version"`
	UpdatedAt int64  `json:"updated_at"`
}

type Outcome int

const (
	Accepted Outcome = iota
	Conflict
)

// SaveResult is the outcome of a versioned answer write. Rejections are
// reported as errors instead.
type SaveResult struct {
	Outcome   Outcome
	Version   int
	UpdatedAt int64
}

type Admin struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	CreatedAt int64  `json:"created_at"`
	LastLogin *int64 `json:"last_login"`
}

// Fill is everything a respondent needs to render and answer an instance.
type Fill struct {
	InstanceID  int               `json:"instance_id"`
	Name        string            `json:"questionnaire_name"`
	Description string            `json:"questionnaire_description"`
	Content     string            `json:"template_content"`
	IsLocked    bool              `json:"is_locked"`
	SubmittedAt *int64            `json:"submitted_at"`
	Answers     map[string]Answer `json:"answers"`
	Version     int               `json:"version"`
}

// SaveRequest is the body of a respondent's answer write. A missing version
// counts as 1.
type SaveRequest struct {
	QuestionID  string `json:"question_id" validate:"required"`
	AnswerValue string `json:"answer_value"`
	Version     *int   `json:"version,omitempty"`
}

// SaveResponse carries either an accepted write (Success, Version) or a
// conflict (Conflict, ServerVersion). UpdatedAt belongs to whichever version
// is now stored.
type SaveResponse struct {
	Success       bool  `json:"success,omitempty"`
	Conflict      bool  `json:"conflict,omitempty"`
	Version       int   `json:"version,omitempty"`
	ServerVersion int   `json:"server_version,omitempty"`
	UpdatedAt     int64 `json:"updated_at"`
}
