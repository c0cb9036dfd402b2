package practicum

import (
	"errors"
	"strings"
)

// Fetch failures. The relay treats them uniformly; they are distinct only for logs and tests.
var (
	ErrRequest          = errors.New("status request failed")
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrDecode           = errors.New("response is not valid json")
)

// Response shape failures, checked in this order by CheckResponse.
var (
	ErrNotObject          = errors.New("response is not an object")
	ErrMissingHomeworks   = errors.New("key homeworks is missing")
	ErrHomeworksNotList   = errors.New("homeworks is not a list")
	ErrMissingCurrentDate = errors.New("key current_date is missing")
	ErrBadCurrentDate     = errors.New("current_date is not a unix timestamp")
)

// Homework record failures.
var (
	ErrRecordNotObject = errors.New("homework record is not an object")
	ErrMissingName     = errors.New("key homework_name is missing")
	ErrMissingStatus   = errors.New("key status is missing")
	ErrUnknownStatus   = errors.New("unknown homework status")
)

// UnknownStatusError names the status value missing from the verdict table.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return ErrUnknownStatus.Error() + ": " + e.Status + " (known: " + strings.Join(knownStatuses(), ", ") + ")"
}

func (e *UnknownStatusError) Is(target error) bool { return target == ErrUnknownStatus }
