// Package s3consts defines S3 protocol constants shared across packages.
package s3consts

// Common response headers
const (
	XAmzRequestID = "x-amz-request-id"
)

// XAmzAccountID carries the authenticated canonical account id, set by
// the fronting authenticator. Requests without it are rejected before
// any ACL evaluation.
const XAmzAccountID = "x-amz-account-id"

// ACL headers
const (
	XAmzACL = "x-amz-acl"

	XAmzGrantFullControl = "x-amz-grant-full-control"
	XAmzGrantRead        = "x-amz-grant-read"
	XAmzGrantWrite       = "x-amz-grant-write"
	XAmzGrantReadACP     = "x-amz-grant-read-acp"
	XAmzGrantWriteACP    = "x-amz-grant-write-acp"

	XAmzGrantPrefix = "x-amz-grant-"
)

// Copy headers
const (
	XAmzCopySource = "x-amz-copy-source"
)

// MultiuploadSuffix is appended to a bucket name to form the internal
// bucket holding multipart upload segment data. Segment buckets have no
// ACL of their own; the suffix is stripped before any ACL check so
// segments inherit the parent bucket's ACL.
const MultiuploadSuffix = "+segments"

// MaxACLBodySize caps the size of an AccessControlPolicy request body.
// Oversize bodies are rejected before parsing.
const MaxACLBodySize = 200 * 1024
