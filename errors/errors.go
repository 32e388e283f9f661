package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind identifies the failure category an AppError carries. Pipeline
// stages, the cache, and the streaming handler each surface their own kind
// so callers can react without string matching.
type Kind string

const (
	KindMissingInput      Kind = "missing_input"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindMalformedCaption  Kind = "malformed_caption"
	KindProbe             Kind = "probe_failed"
	KindTranscode         Kind = "transcode_failed"
	KindThumbnail         Kind = "thumbnail_failed"
	KindPersistence       Kind = "persistence_failed"
	KindRangeRequired     Kind = "range_required"
	KindAssetNotFound     Kind = "asset_not_found"
	KindCacheIO           Kind = "cache_io"
	KindInvalidInput      Kind = "invalid_input"
	KindInternal          Kind = "internal"
)

type AppError struct {
	Kind    Kind   `json:"-"`
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err if it is (or wraps) an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func newError(kind Kind, code int, op string, err error, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func MissingInput(op string, err error, message string) *AppError {
	return newError(KindMissingInput, http.StatusBadRequest, op, err, message)
}

func UnsupportedFormat(op string, err error, message string) *AppError {
	return newError(KindUnsupportedFormat, http.StatusBadRequest, op, err, message)
}

func MalformedCaption(op string, err error, message string) *AppError {
	return newError(KindMalformedCaption, http.StatusBadRequest, op, err, message)
}

func Probe(op string, err error, message string) *AppError {
	return newError(KindProbe, http.StatusInternalServerError, op, err, message)
}

func Transcode(op string, err error, message string) *AppError {
	return newError(KindTranscode, http.StatusInternalServerError, op, err, message)
}

func Thumbnail(op string, err error, message string) *AppError {
	return newError(KindThumbnail, http.StatusInternalServerError, op, err, message)
}

func Persistence(op string, err error, message string) *AppError {
	return newError(KindPersistence, http.StatusInternalServerError, op, err, message)
}

func RangeRequired(op string, err error, message string) *AppError {
	return newError(KindRangeRequired, http.StatusBadRequest, op, err, message)
}

func AssetNotFound(op string, err error, message string) *AppError {
	return newError(KindAssetNotFound, http.StatusNotFound, op, err, message)
}

func CacheIO(op string, err error, message string) *AppError {
	return newError(KindCacheIO, http.StatusInternalServerError, op, err, message)
}

func InvalidInput(op string, err error, message string) *AppError {
	return newError(KindInvalidInput, http.StatusBadRequest, op, err, message)
}

func Internal(op string, err error, message string) *AppError {
	return newError(KindInternal, http.StatusInternalServerError, op, err, message)
}
