// Package backend defines the storage collaborator contract the
// authorization layer runs against. The backing store has no native
// notion of per-resource grants; ACLs ride along as resource metadata.
package backend

import (
	"context"

	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3types"
)

// Metadata carries ACL documents to persist as resource metadata on a
// mutating call. A nil field leaves the stored value untouched.
type Metadata struct {
	BucketACL *s3types.AccessControlList
	ObjectACL *s3types.AccessControlList
}

// Response is the result of a backend call. Fetches against a bucket
// populate BucketACL; fetches against an object populate both the
// object's ACL and its bucket's.
type Response struct {
	BucketACL *s3types.AccessControlList
	ObjectACL *s3types.AccessControlList
}

// Store is the storage collaborator. Method is the backend operation
// (HEAD, GET, PUT, POST, DELETE), which may differ from the incoming
// S3 method. Absent resources fail with s3err.ErrNoSuchBucket or
// s3err.ErrNoSuchKey; callers probing for existence tolerate those.
//
// Retry, timeout, and cancellation policy belong to implementations;
// the authorization layer issues at most a small constant number of
// calls per request and never retries.
type Store interface {
	Fetch(ctx context.Context, method, bucket, object string, meta *Metadata) (*Response, error)
}
