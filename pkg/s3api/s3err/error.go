package s3err

import (
	"encoding/xml"
	"net/http"
	"strings"
)

// APIError represents an S3 API error with its code, description, and HTTP status.
// Based on: https://docs.aws.amazon.com/AmazonS3/latest/API/ErrorResponses.html#ErrorCodeList
type APIError struct {
	Code           string
	Description    string
	HTTPStatusCode int
}

// Error represents the XML error response returned to S3 clients.
// ArgumentName/ArgumentValue and MissingHeaderName carry the extra
// detail elements AWS returns for InvalidArgument and
// MissingSecurityHeader responses.
type Error struct {
	XMLName           xml.Name `xml:"Error"`
	Code              string   `xml:"Code"`
	Message           string   `xml:"Message"`
	Resource          string   `xml:"Resource"`
	RequestID         string   `xml:"RequestId"`
	ArgumentName      string   `xml:"ArgumentName,omitempty"`
	ArgumentValue     string   `xml:"ArgumentValue,omitempty"`
	MissingHeaderName string   `xml:"MissingHeaderName,omitempty"`
	HTTPCode          int      `xml:"-"`
}

func (e Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	if e.Resource != "" {
		b.WriteString(e.Resource)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ErrorCode is an enumeration of the S3 error codes this layer produces.
type ErrorCode int

const (
	ErrNone ErrorCode = iota

	// Authorization failures
	ErrAccessDenied

	// Malformed input
	ErrInvalidArgument
	ErrInvalidRequest
	ErrMalformedACLError
	ErrMalformedXML
	ErrUnexpectedContent
	ErrMissingSecurityHeader
	ErrEntityTooLarge
	ErrInvalidURI

	// Unsupported features
	ErrNotImplemented
	ErrUnresolvableGrantByEmailAddress

	// Backend absence and conflicts
	ErrNoSuchBucket
	ErrNoSuchKey
	ErrBucketAlreadyExists
	ErrMethodNotAllowed

	ErrInternalError
)

var errorCodeResponse = map[ErrorCode]APIError{
	ErrAccessDenied: {
		Code:           "AccessDenied",
		Description:    "Access Denied.",
		HTTPStatusCode: http.StatusForbidden,
	},
	ErrInvalidArgument: {
		Code:           "InvalidArgument",
		Description:    "Invalid Argument.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrInvalidRequest: {
		Code:           "InvalidRequest",
		Description:    "Invalid Request.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrMalformedACLError: {
		Code:           "MalformedACLError",
		Description:    "The XML you provided was not well-formed or did not validate against our published schema.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrMalformedXML: {
		Code:           "MalformedXML",
		Description:    "The XML you provided was not well-formed or did not validate against our published schema.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrUnexpectedContent: {
		Code:           "UnexpectedContent",
		Description:    "This request does not support content.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrMissingSecurityHeader: {
		Code:           "MissingSecurityHeader",
		Description:    "Your request was missing a required header.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrEntityTooLarge: {
		Code:           "EntityTooLarge",
		Description:    "Your proposed upload exceeds the maximum allowed object size.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrInvalidURI: {
		Code:           "InvalidURI",
		Description:    "Couldn't parse the specified URI.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrNotImplemented: {
		Code:           "NotImplemented",
		Description:    "A header you provided implies functionality that is not implemented.",
		HTTPStatusCode: http.StatusNotImplemented,
	},
	ErrUnresolvableGrantByEmailAddress: {
		Code:           "UnresolvableGrantByEmailAddress",
		Description:    "The email address you provided does not match any account on record.",
		HTTPStatusCode: http.StatusBadRequest,
	},
	ErrNoSuchBucket: {
		Code:           "NoSuchBucket",
		Description:    "The specified bucket does not exist.",
		HTTPStatusCode: http.StatusNotFound,
	},
	ErrNoSuchKey: {
		Code:           "NoSuchKey",
		Description:    "The specified key does not exist.",
		HTTPStatusCode: http.StatusNotFound,
	},
	ErrBucketAlreadyExists: {
		Code:           "BucketAlreadyExists",
		Description:    "The requested bucket name is not available. The bucket namespace is shared by all users of the system. Please select a different name and try again.",
		HTTPStatusCode: http.StatusConflict,
	},
	ErrMethodNotAllowed: {
		Code:           "MethodNotAllowed",
		Description:    "The specified method is not allowed against this resource.",
		HTTPStatusCode: http.StatusMethodNotAllowed,
	},
	ErrInternalError: {
		Code:           "InternalError",
		Description:    "We encountered an internal error. Please try again.",
		HTTPStatusCode: http.StatusInternalServerError,
	},
}

// =========================================================================
// ErrorCode Methods
// =========================================================================

// APIError returns the full APIError struct for this error code.
func (e ErrorCode) APIError() APIError {
	if err, ok := errorCodeResponse[e]; ok {
		return err
	}
	return APIError{
		Code:           "InternalError",
		Description:    "We encountered an internal error. Please try again.",
		HTTPStatusCode: http.StatusInternalServerError,
	}
}

// Code returns the S3 error code string.
func (e ErrorCode) Code() string {
	return e.APIError().Code
}

// Description returns the error description.
func (e ErrorCode) Description() string {
	return e.APIError().Description
}

// Error implements the error interface.
func (e ErrorCode) Error() string {
	return e.Description()
}

// HTTPStatusCode returns the HTTP status code for this error.
func (e ErrorCode) HTTPStatusCode() int {
	return e.APIError().HTTPStatusCode
}

// ToErrorResponse creates an Error response suitable for XML serialization.
func (e ErrorCode) ToErrorResponse(resource string) Error {
	api := e.APIError()
	return Error{
		Code:      api.Code,
		Message:   api.Description,
		Resource:  resource,
		RequestID: "", // Will be filled in by response handler
		HTTPCode:  api.HTTPStatusCode,
	}
}

// ToErrorResponseWithMessage creates an Error response with a custom message.
func (e ErrorCode) ToErrorResponseWithMessage(resource, message string) Error {
	api := e.APIError()
	return Error{
		Code:      api.Code,
		Message:   message,
		Resource:  resource,
		RequestID: "",
		HTTPCode:  api.HTTPStatusCode,
	}
}

// =========================================================================
// Detailed error constructors
// =========================================================================

// InvalidArgument builds an InvalidArgument response naming the offending
// argument and value.
func InvalidArgument(name, value, reason string) Error {
	api := ErrInvalidArgument.APIError()
	return Error{
		Code:          api.Code,
		Message:       reason,
		ArgumentName:  name,
		ArgumentValue: value,
		HTTPCode:      api.HTTPStatusCode,
	}
}

// InvalidRequest builds an InvalidRequest response with a diagnostic message.
func InvalidRequest(message string) Error {
	api := ErrInvalidRequest.APIError()
	if message == "" {
		message = api.Description
	}
	return Error{
		Code:     api.Code,
		Message:  message,
		HTTPCode: api.HTTPStatusCode,
	}
}

// MissingSecurityHeader builds a MissingSecurityHeader response naming the
// header that was expected.
func MissingSecurityHeader(headerName string) Error {
	api := ErrMissingSecurityHeader.APIError()
	return Error{
		Code:              api.Code,
		Message:           api.Description,
		MissingHeaderName: headerName,
		HTTPCode:          api.HTTPStatusCode,
	}
}
