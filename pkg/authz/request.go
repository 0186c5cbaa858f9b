package authz

import (
	"net/http"

	"github.com/LeeDigitalWorks/aclgate/pkg/backend"
)

// Target selects the handling logic for the resource type an incoming
// operation addresses. The set is closed; Engine.Authorize maps each
// member to its handler directly.
type Target int

const (
	// TargetDefault covers plain bucket/object operations with no
	// subresource; handling comes entirely from the policy table.
	TargetDefault Target = iota
	TargetBucket
	TargetObject
	TargetACL
	TargetPart
	TargetUpload
	TargetUploads
	TargetMultiDelete
)

func (t Target) String() string {
	switch t {
	case TargetBucket:
		return "bucket"
	case TargetObject:
		return "object"
	case TargetACL:
		return "acl"
	case TargetPart:
		return "part"
	case TargetUpload:
		return "upload"
	case TargetUploads:
		return "uploads"
	case TargetMultiDelete:
		return "multi_delete"
	default:
		return "default"
	}
}

// Request carries the authorization-relevant view of one inbound S3
// request. Instances are scoped to a single request and never shared.
type Request struct {
	// Method is the originally requested S3 method.
	Method string
	Bucket string
	Object string

	// AccountID is the authenticated identity. Unauthenticated requests
	// never reach this layer.
	AccountID string

	Header http.Header

	// Body is the request body for ACL-document PUTs, already read and
	// capped at s3consts.MaxACLBodySize by the boundary.
	Body []byte

	// Meta receives ACLs staged by handlers; the boundary persists it
	// as resource metadata on its next backend write.
	Meta backend.Metadata
}

// IsBucketRequest reports whether the original request targets a bucket.
func (r *Request) IsBucketRequest() bool {
	return r.Object == ""
}

// IsObjectRequest reports whether the original request targets an object.
func (r *Request) IsObjectRequest() bool {
	return r.Object != ""
}
