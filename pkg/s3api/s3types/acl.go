package s3types

import (
	"fmt"

	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3err"
)

// Canned ACL types
type CannedACL string

const (
	ACLPrivate           CannedACL = "private"
	ACLPublicRead        CannedACL = "public-read"
	ACLPublicReadWrite   CannedACL = "public-read-write"
	ACLAuthenticatedRead CannedACL = "authenticated-read"
	ACLBucketOwnerRead   CannedACL = "bucket-owner-read"
	ACLBucketOwnerFull   CannedACL = "bucket-owner-full-control"
	ACLLogDeliveryWrite  CannedACL = "log-delivery-write"
)

func (ca CannedACL) String() string {
	return string(ca)
}

// Predefined ACL group URIs
const (
	AllUsersGroup           = "http://acs.amazonaws.com/groups/global/AllUsers"
	AuthenticatedUsersGroup = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
	LogDeliveryGroup        = "http://acs.amazonaws.com/groups/s3/LogDelivery"
)

// ACL permission types
type Permission string

const (
	PermissionFullControl Permission = "FULL_CONTROL"
	PermissionRead        Permission = "READ"
	PermissionWrite       Permission = "WRITE"
	PermissionReadACP     Permission = "READ_ACP"
	PermissionWriteACP    Permission = "WRITE_ACP"

	// PermissionOwner is a pseudo-permission used by operation policy
	// rules that require resource ownership. It is never grantable:
	// ParsePermission rejects it, so no Grant can carry it and only the
	// owner bypass (or a FULL_CONTROL grant) satisfies a check for it.
	PermissionOwner Permission = "OWNER"
)

// ParsePermission validates a grant permission value.
func ParsePermission(input string) (Permission, error) {
	switch Permission(input) {
	case PermissionFullControl, PermissionRead, PermissionWrite,
		PermissionReadACP, PermissionWriteACP:
		return Permission(input), nil
	default:
		return "", fmt.Errorf("invalid permission: %s", input)
	}
}

// GranteeType identifies how a grantee is specified
type GranteeType string

const (
	GranteeTypeCanonicalUser GranteeType = "CanonicalUser"
	GranteeTypeGroup         GranteeType = "Group"
	GranteeTypeEmail         GranteeType = "AmazonCustomerByEmail"
)

// Owner identifies the owner of an object or bucket
type Owner struct {
	ID          string `xml:"ID" json:"id"`
	DisplayName string `xml:"DisplayName,omitempty" json:"display_name,omitempty"`
}

// NewUserOwner builds an Owner whose display name equals its id, the
// form used when the authenticated account id is all we know.
func NewUserOwner(id string) Owner {
	return Owner{ID: id, DisplayName: id}
}

// Grantee identifies who receives the permission
type Grantee struct {
	Type        GranteeType `xml:"type,attr" json:"type"`
	ID          string      `xml:"ID,omitempty" json:"id,omitempty"`
	DisplayName string      `xml:"DisplayName,omitempty" json:"display_name,omitempty"`
	URI         string      `xml:"URI,omitempty" json:"uri,omitempty"`
}

// UserGrantee builds a CanonicalUser grantee for the given account.
func UserGrantee(owner Owner) Grantee {
	return Grantee{
		Type:        GranteeTypeCanonicalUser,
		ID:          owner.ID,
		DisplayName: owner.DisplayName,
	}
}

// GroupGrantee builds a predefined-group grantee from its URI.
func GroupGrantee(uri string) Grantee {
	return Grantee{Type: GranteeTypeGroup, URI: uri}
}

// GroupGranteeFromURI resolves a group URI against the predefined group
// table. Unknown URIs fail with InvalidArgument.
func GroupGranteeFromURI(uri string) (Grantee, error) {
	switch uri {
	case AllUsersGroup, AuthenticatedUsersGroup, LogDeliveryGroup:
		return GroupGrantee(uri), nil
	default:
		return Grantee{}, s3err.InvalidArgument("uri", uri, "Invalid group uri")
	}
}

// Contains reports whether the given account id belongs to this grantee.
//
// AllUsers and AuthenticatedUsers both match every account: unsigned
// requests never reach this layer, so the two groups are equivalent
// here. LogDelivery membership is always false; log delivery is not
// supported.
func (g Grantee) Contains(accountID string) bool {
	switch g.Type {
	case GranteeTypeCanonicalUser:
		return g.ID == accountID
	case GranteeTypeGroup:
		switch g.URI {
		case AllUsersGroup, AuthenticatedUsersGroup:
			return true
		}
	}
	return false
}

// Grant represents a single permission grant to a grantee
type Grant struct {
	Grantee    Grantee    `xml:"Grantee" json:"grantee"`
	Permission Permission `xml:"Permission" json:"permission"`
}

// NewGrant builds a Grant, validating the permission value.
func NewGrant(grantee Grantee, permission string) (Grant, error) {
	p, err := ParsePermission(permission)
	if err != nil {
		return Grant{}, err
	}
	return Grant{Grantee: grantee, Permission: p}, nil
}

// Allow reports whether this grant gives the account the requested
// permission: the permissions must match exactly and the grantee must
// contain the account.
func (g Grant) Allow(accountID string, permission Permission) bool {
	return g.Permission == permission && g.Grantee.Contains(accountID)
}

// AccessControlList represents an S3 Access Control List: one owner plus
// an ordered list of grants. Grant order is preserved for faithful XML
// round-tripping; permission checks scan all grants.
type AccessControlList struct {
	Owner  Owner   `xml:"Owner" json:"owner"`
	Grants []Grant `xml:"AccessControlList>Grant" json:"grants"`
}

// NewACL builds an ACL with a freshly allocated grant list.
func NewACL(owner Owner, grants ...Grant) *AccessControlList {
	acl := &AccessControlList{Owner: owner, Grants: make([]Grant, 0, len(grants))}
	acl.Grants = append(acl.Grants, grants...)
	return acl
}

// CheckOwner verifies that the account owns the resource.
func (acl *AccessControlList) CheckOwner(accountID string) error {
	if acl == nil || acl.Owner.ID != accountID {
		return s3err.ErrAccessDenied
	}
	return nil
}

// CheckPermission verifies that the account holds the required
// permission. Owners always pass. Otherwise any grant of FULL_CONTROL
// or of the required permission matching the account suffices.
func (acl *AccessControlList) CheckPermission(accountID string, required Permission) error {
	if acl == nil {
		return s3err.ErrAccessDenied
	}

	if acl.Owner.ID == accountID {
		return nil
	}

	for _, g := range acl.Grants {
		if g.Allow(accountID, PermissionFullControl) || g.Allow(accountID, required) {
			return nil
		}
	}

	return s3err.ErrAccessDenied
}

// CannedACLGrants returns the ordered grant list for a canned ACL,
// parameterized by the bucket owner and, for objects, the object owner.
// The second return value is false for unknown canned ACL names.
func CannedACLGrants(canned CannedACL, bucketOwner Owner, objectOwner *Owner) ([]Grant, bool) {
	owner := bucketOwner
	if objectOwner != nil {
		owner = *objectOwner
	}

	switch canned {
	case ACLPrivate:
		return []Grant{
			{Permission: PermissionFullControl, Grantee: UserGrantee(owner)},
		}, true
	case ACLPublicRead:
		return []Grant{
			{Permission: PermissionRead, Grantee: GroupGrantee(AllUsersGroup)},
			{Permission: PermissionFullControl, Grantee: UserGrantee(owner)},
		}, true
	case ACLPublicReadWrite:
		return []Grant{
			{Permission: PermissionRead, Grantee: GroupGrantee(AllUsersGroup)},
			{Permission: PermissionWrite, Grantee: GroupGrantee(AllUsersGroup)},
			{Permission: PermissionFullControl, Grantee: UserGrantee(owner)},
		}, true
	case ACLAuthenticatedRead:
		return []Grant{
			{Permission: PermissionRead, Grantee: GroupGrantee(AuthenticatedUsersGroup)},
			{Permission: PermissionFullControl, Grantee: UserGrantee(owner)},
		}, true
	case ACLBucketOwnerRead:
		return []Grant{
			{Permission: PermissionRead, Grantee: UserGrantee(bucketOwner)},
			{Permission: PermissionFullControl, Grantee: UserGrantee(owner)},
		}, true
	case ACLBucketOwnerFull:
		return []Grant{
			{Permission: PermissionFullControl, Grantee: UserGrantee(owner)},
			{Permission: PermissionFullControl, Grantee: UserGrantee(bucketOwner)},
		}, true
	case ACLLogDeliveryWrite:
		return []Grant{
			{Permission: PermissionWrite, Grantee: GroupGrantee(LogDeliveryGroup)},
			{Permission: PermissionReadACP, Grantee: GroupGrantee(LogDeliveryGroup)},
			{Permission: PermissionFullControl, Grantee: UserGrantee(owner)},
		}, true
	default:
		return nil, false
	}
}

// FromCannedACL expands a canned ACL into a full ACL owned by the
// object owner when present, else the bucket owner.
func FromCannedACL(canned CannedACL, bucketOwner Owner, objectOwner *Owner) (*AccessControlList, bool) {
	grants, ok := CannedACLGrants(canned, bucketOwner, objectOwner)
	if !ok {
		return nil, false
	}
	owner := bucketOwner
	if objectOwner != nil {
		owner = *objectOwner
	}
	return NewACL(owner, grants...), true
}

// NewPrivateACL creates a private ACL owned by the given account.
func NewPrivateACL(owner Owner) *AccessControlList {
	acl, _ := FromCannedACL(ACLPrivate, owner, nil)
	return acl
}
