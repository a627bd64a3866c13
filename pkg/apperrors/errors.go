package apperrors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrUploadNotFound   = errors.New("upload not found")
	ErrEmptyWorkbook    = errors.New("workbook has no data rows")
	ErrRuleNotFound     = errors.New("rule not found")
	ErrRuleUnregistered = errors.New("rule code has no registered handler")
)
