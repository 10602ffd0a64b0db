package service

import "errors"

var (
	ErrTeacherNotFound    = errors.New("teacher not found")
	ErrClassroomNotFound  = errors.New("classroom not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrImportRunNotFound  = errors.New("import run not found")
)
