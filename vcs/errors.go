package vcs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Registry errors.
var (
	ErrProviderNotFound  = errors.New("vcs: provider not found")
	ErrDuplicateProvider = errors.New("vcs: duplicate provider kind")
	ErrNilProvider       = errors.New("vcs: provider is nil")
	ErrUnknownKind       = errors.New("vcs: unknown provider kind")
)

// Classification sentinels. Match with errors.Is.
var (
	ErrBadRequest         = errors.New("vcs: bad request")
	ErrRateLimited        = errors.New("vcs: rate limited")
	ErrUpstreamAPI        = errors.New("vcs: upstream api error")
	ErrServiceUnavailable = errors.New("vcs: service unavailable")
)

// Error codes.
const (
	CodeBadRequest                   = "BAD_REQUEST"
	CodeQueryMaxLengthExceeded       = "QUERY_MAX_LENGTH_EXCEEDED"
	CodeQueryTooManyBooleanOperators = "QUERY_TOO_MANY_BOOLEAN_OPERATORS"
	CodeInvalidSort                  = "INVALID_SORT"
	CodeInvalidOrder                 = "INVALID_ORDER"
	CodeRateLimitExceeded            = "VCS_RATE_LIMIT_EXCEEDED"
	CodeAPIError                     = "VCS_API_ERROR"
)

// CodedError is implemented by every classified error.
type CodedError interface {
	error
	ErrorCode() string
	HTTPStatus() int
}

// BadRequestError is a query rejected before any network call.
type BadRequestError struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("vcs: bad request (%s): %s", e.ErrorCode(), e.Message)
}

func (e *BadRequestError) Is(target error) bool { return target == ErrBadRequest }

// ErrorCode returns the specific rejection code.
func (e *BadRequestError) ErrorCode() string {
	if e.Code == "" {
		return CodeBadRequest
	}
	return e.Code
}

func (e *BadRequestError) HTTPStatus() int { return http.StatusBadRequest }

// RateLimitedError reports an exhausted upstream quota.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("vcs: rate limit exceeded, retry after %ds", e.RetryAfterSeconds)
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }
func (e *RateLimitedError) ErrorCode() string    { return CodeRateLimitExceeded }
func (e *RateLimitedError) HTTPStatus() int      { return http.StatusTooManyRequests }

// UpstreamAPIError is any upstream error status that is not a rate limit.
type UpstreamAPIError struct {
	Status int
	Body   []byte
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("vcs: upstream api error status=%d", e.Status)
}

func (e *UpstreamAPIError) Is(target error) bool { return target == ErrUpstreamAPI }
func (e *UpstreamAPIError) ErrorCode() string    { return CodeAPIError }

// HTTPStatus mirrors the upstream status, or 502 when it is unknown.
func (e *UpstreamAPIError) HTTPStatus() int {
	if e.Status < 400 || e.Status > 599 {
		return http.StatusBadGateway
	}
	return e.Status
}

// ServiceUnavailableError reports a transport failure reaching Service.
type ServiceUnavailableError struct {
	Service string
	Err     error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("vcs: %s unavailable: %v", e.Service, e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

func (e *ServiceUnavailableError) Is(target error) bool { return target == ErrServiceUnavailable }

// ErrorCode returns <SERVICE>_UNAVAILABLE.
func (e *ServiceUnavailableError) ErrorCode() string {
	return strings.ToUpper(e.Service) + "_UNAVAILABLE"
}

func (e *ServiceUnavailableError) HTTPStatus() int { return http.StatusServiceUnavailable }

// ErrorBody is the machine-readable rendering of an error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Describe renders err as an ErrorBody. Unclassified errors become
// INTERNAL_ERROR with status 500.
func Describe(err error) ErrorBody {
	var coded CodedError
	if errors.As(err, &coded) {
		msg := coded.Error()
		var br *BadRequestError
		if errors.As(err, &br) {
			msg = br.Message
		}
		return ErrorBody{Code: coded.ErrorCode(), Message: msg, Status: coded.HTTPStatus()}
	}
	return ErrorBody{Code: "INTERNAL_ERROR", Message: err.Error(), Status: http.StatusInternalServerError}
}

var (
	_ CodedError = (*BadRequestError)(nil)
	_ CodedError = (*RateLimitedError)(nil)
	_ CodedError = (*UpstreamAPIError)(nil)
	_ CodedError = (*ServiceUnavailableError)(nil)
)
