package authz

import (
	"net/http"

	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3types"
)

// ResourceKind names the two ACL-bearing entity types.
type ResourceKind string

const (
	KindBucket ResourceKind = "bucket"
	KindObject ResourceKind = "object"
)

// policyKey identifies an operation: the incoming S3 method, the method
// issued against the backend for it, and the kind of resource the
// backend call targets.
type policyKey struct {
	Method        string
	BackendMethod string
	Kind          ResourceKind
}

// policyRule names the permission an operation requires and, when the
// check runs against a different resource than the one the backend call
// targets, the resource kind to check instead.
type policyRule struct {
	Kind       ResourceKind // empty: same as the key's kind
	Permission s3types.Permission
}

// aclPolicy is the operation policy table. Built once, read-only.
// Operations absent here are covered by resource-specific handler logic
// that supplies the permission directly.
var aclPolicy = map[policyKey]policyRule{
	// HEAD Bucket
	{http.MethodHead, http.MethodHead, KindBucket}: {Permission: s3types.PermissionRead},
	// GET Service
	{http.MethodGet, http.MethodHead, KindBucket}: {Permission: s3types.PermissionOwner},
	// GET Bucket, List Parts, List Multipart Uploads
	{http.MethodGet, http.MethodGet, KindBucket}: {Permission: s3types.PermissionRead},
	// PUT Object, PUT Object Copy (destination bucket)
	{http.MethodPut, http.MethodHead, KindBucket}: {Permission: s3types.PermissionWrite},
	// DELETE Bucket
	{http.MethodDelete, http.MethodDelete, KindBucket}: {Permission: s3types.PermissionOwner},
	// HEAD Object
	{http.MethodHead, http.MethodHead, KindObject}: {Permission: s3types.PermissionRead},
	// GET Object
	{http.MethodGet, http.MethodGet, KindObject}: {Permission: s3types.PermissionRead},
	// PUT Object, PUT Object Copy (destination object overwrite probe)
	{http.MethodPut, http.MethodHead, KindObject}: {Permission: s3types.PermissionWrite},
	// Complete Multipart Upload
	{http.MethodPost, http.MethodGet, KindBucket}: {Permission: s3types.PermissionWrite},
	// Initiate Multipart Upload
	{http.MethodPost, http.MethodPut, KindBucket}: {Permission: s3types.PermissionWrite},
	// Abort Multipart Upload
	{http.MethodDelete, http.MethodHead, KindObject}: {Kind: KindBucket, Permission: s3types.PermissionWrite},
	// Upload Part
	{http.MethodPut, http.MethodPut, KindObject}: {Kind: KindBucket, Permission: s3types.PermissionWrite},
	// DELETE Object
	{http.MethodDelete, http.MethodDelete, KindObject}: {Kind: KindBucket, Permission: s3types.PermissionWrite},
	// DELETE Multiple Objects
	{http.MethodPost, http.MethodHead, KindBucket}: {Permission: s3types.PermissionWrite},
}

// lookupPolicy resolves the rule for an operation triple.
func lookupPolicy(method, backendMethod string, kind ResourceKind) (policyRule, bool) {
	rule, ok := aclPolicy[policyKey{Method: method, BackendMethod: backendMethod, Kind: kind}]
	return rule, ok
}
