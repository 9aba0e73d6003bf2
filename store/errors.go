package store

import "github.com/pkg/errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrLocked                = errors.New("questionnaire is locked")
	ErrAlreadySubmitted      = errors.New("questionnaire already submitted")
	ErrCannotDeleteSubmitted = errors.New("cannot delete submitted instance")
	ErrTemplateInUse         = errors.New("cannot edit template that has been sent")
	ErrTemplateHasInstances  = errors.New("cannot delete template with instances, archive it instead")
	ErrUsernameTaken         = errors.New("username already taken")
	ErrBadCredentials        = errors.New("bad credentials")
)
