package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mbolis/vsaq/log"
	"github.com/mbolis/vsaq/store"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// Will translate an error coming from the store into its HTTP status:
// 404 for missing rows, 403 for refused state transitions, 409 for
// duplicates and 500 for everything else
func LogStoreError(w http.ResponseWriter, code string, id any, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		LogNotFound(w, code, id)
	case errors.Is(err, store.ErrLocked),
		errors.Is(err, store.ErrAlreadySubmitted),
		errors.Is(err, store.ErrCannotDeleteSubmitted),
		errors.Is(err, store.ErrTemplateInUse),
		errors.Is(err, store.ErrTemplateHasInstances):
		LogStatusMsg(w, http.StatusForbidden, log.DebugLevel, code, "%s", err)
	case errors.Is(err, store.ErrUsernameTaken):
		LogStatusMsg(w, http.StatusConflict, log.DebugLevel, code, "%s", err)
	default:
		LogInternalError(w, code, err)
	}
}
