package s3types

import (
	"net/http"
	"strings"

	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3err"
)

// grantHeaders lists the x-amz-grant-* headers in a fixed scan order so
// header-built grant lists are deterministic.
var grantHeaders = []struct {
	name       string
	permission Permission
}{
	{s3consts.XAmzGrantFullControl, PermissionFullControl},
	{s3consts.XAmzGrantRead, PermissionRead},
	{s3consts.XAmzGrantWrite, PermissionWrite},
	{s3consts.XAmzGrantReadACP, PermissionReadACP},
	{s3consts.XAmzGrantWriteACP, PermissionWriteACP},
}

// GranteeFromHeader parses a compact type=value grantee spec as used in
// x-amz-grant-* header values:
//
//	id="canonical-id"
//	uri="http://acs.amazonaws.com/groups/global/AllUsers"
//	emailAddress="user@example.com"   (not supported)
func GranteeFromHeader(spec string) (Grantee, error) {
	kind, value, found := strings.Cut(spec, "=")
	if !found {
		return Grantee{}, s3err.InvalidRequest("")
	}
	value = strings.Trim(value, `"'`)

	switch kind {
	case "id":
		return UserGrantee(NewUserOwner(value)), nil
	case "uri":
		return GroupGranteeFromURI(value)
	case "emailAddress":
		return Grantee{}, s3err.ErrNotImplemented
	default:
		return Grantee{}, s3err.InvalidArgument(kind, value, "Argument format not recognized")
	}
}

// ACLFromHeaders builds an ACL from x-amz-grant-* headers or a single
// x-amz-acl canned ACL header. Specifying both forms fails with
// InvalidRequest. Returns nil when no ACL headers are present; the
// caller then falls back to parsing a request body.
func ACLFromHeaders(headers http.Header, bucketOwner Owner, objectOwner *Owner) (*AccessControlList, error) {
	// A grant header naming anything but the five real permissions is an
	// unsupported grant, not an ignorable one.
	for key := range headers {
		name := strings.ToLower(key)
		if !strings.HasPrefix(name, s3consts.XAmzGrantPrefix) {
			continue
		}
		suffix := strings.TrimPrefix(name, s3consts.XAmzGrantPrefix)
		permission := strings.ToUpper(strings.ReplaceAll(suffix, "-", "_"))
		if _, err := ParsePermission(permission); err != nil {
			return nil, s3err.ErrNotImplemented
		}
	}

	var grants []Grant
	for _, gh := range grantHeaders {
		value := headers.Get(gh.name)
		if value == "" {
			continue
		}
		for _, spec := range strings.Split(value, ",") {
			grantee, err := GranteeFromHeader(strings.TrimSpace(spec))
			if err != nil {
				return nil, err
			}
			grants = append(grants, Grant{Grantee: grantee, Permission: gh.permission})
		}
	}

	if canned := headers.Get(s3consts.XAmzACL); canned != "" {
		if len(grants) > 0 {
			return nil, s3err.InvalidRequest(
				"Specifying both Canned ACLs and Header Grants is not allowed")
		}

		cannedGrants, ok := CannedACLGrants(CannedACL(canned), bucketOwner, objectOwner)
		if !ok {
			return nil, s3err.InvalidRequest("")
		}
		grants = cannedGrants
	}

	if len(grants) == 0 {
		// No ACL headers
		return nil, nil
	}

	owner := bucketOwner
	if objectOwner != nil {
		owner = *objectOwner
	}
	return NewACL(owner, grants...), nil
}
