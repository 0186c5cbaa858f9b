package backend

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3err"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3types"
)

func TestMemoryBucketLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := NewMemory()
	acl := s3types.NewPrivateACL(s3types.NewUserOwner("alice"))

	_, err := m.Fetch(ctx, http.MethodPut, "bkt", "", &Metadata{BucketACL: acl})
	require.NoError(t, err)

	resp, err := m.Fetch(ctx, http.MethodHead, "bkt", "", nil)
	require.NoError(t, err)
	require.NotNil(t, resp.BucketACL)
	assert.Equal(t, "alice", resp.BucketACL.Owner.ID)

	_, err = m.Fetch(ctx, http.MethodPut, "bkt", "", nil)
	assert.ErrorIs(t, err, s3err.ErrBucketAlreadyExists)

	_, err = m.Fetch(ctx, http.MethodDelete, "bkt", "", nil)
	require.NoError(t, err)

	_, err = m.Fetch(ctx, http.MethodHead, "bkt", "", nil)
	assert.ErrorIs(t, err, s3err.ErrNoSuchBucket)
}

func TestMemoryObjectLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := NewMemory()
	_, err := m.Fetch(ctx, http.MethodPut, "bkt", "", nil)
	require.NoError(t, err)

	_, err = m.Fetch(ctx, http.MethodHead, "bkt", "obj", nil)
	assert.ErrorIs(t, err, s3err.ErrNoSuchKey)

	acl := s3types.NewPrivateACL(s3types.NewUserOwner("alice"))
	_, err = m.Fetch(ctx, http.MethodPut, "bkt", "obj", &Metadata{ObjectACL: acl})
	require.NoError(t, err)

	resp, err := m.Fetch(ctx, http.MethodHead, "bkt", "obj", nil)
	require.NoError(t, err)
	require.NotNil(t, resp.ObjectACL)
	assert.Equal(t, "alice", resp.ObjectACL.Owner.ID)

	// metadata update replaces the ACL in place
	updated := s3types.NewACL(s3types.NewUserOwner("alice"),
		s3types.Grant{Grantee: s3types.GroupGrantee(s3types.AllUsersGroup), Permission: s3types.PermissionRead})
	_, err = m.Fetch(ctx, http.MethodPost, "bkt", "obj", &Metadata{ObjectACL: updated})
	require.NoError(t, err)

	resp, err = m.Fetch(ctx, http.MethodHead, "bkt", "obj", nil)
	require.NoError(t, err)
	require.Len(t, resp.ObjectACL.Grants, 1)
	assert.Equal(t, s3types.PermissionRead, resp.ObjectACL.Grants[0].Permission)

	_, err = m.Fetch(ctx, http.MethodDelete, "bkt", "obj", nil)
	require.NoError(t, err)
	_, err = m.Fetch(ctx, http.MethodDelete, "bkt", "obj", nil)
	assert.ErrorIs(t, err, s3err.ErrNoSuchKey)
}

func TestMemorySegmentBucketRecreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := NewMemory()
	seg := "bkt" + s3consts.MultiuploadSuffix

	_, err := m.Fetch(ctx, http.MethodPut, seg, "", nil)
	require.NoError(t, err)

	// every upload initiation re-puts the segment bucket
	_, err = m.Fetch(ctx, http.MethodPut, seg, "", nil)
	require.NoError(t, err)
}

func TestMemoryObjectFetchIncludesBucketACL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := NewMemory()
	bucketACL := s3types.NewPrivateACL(s3types.NewUserOwner("alice"))
	_, err := m.Fetch(ctx, http.MethodPut, "bkt", "", &Metadata{BucketACL: bucketACL})
	require.NoError(t, err)
	_, err = m.Fetch(ctx, http.MethodPut, "bkt", "obj", &Metadata{ObjectACL: s3types.NewPrivateACL(s3types.NewUserOwner("bob"))})
	require.NoError(t, err)

	resp, err := m.Fetch(ctx, http.MethodHead, "bkt", "obj", nil)
	require.NoError(t, err)
	require.NotNil(t, resp.BucketACL)
	require.NotNil(t, resp.ObjectACL)
	assert.Equal(t, "alice", resp.BucketACL.Owner.ID)
	assert.Equal(t, "bob", resp.ObjectACL.Owner.ID)
}

func TestMemoryCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory()
	_, err := m.Fetch(ctx, http.MethodHead, "bkt", "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryUnknownMethod(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	_, err := m.Fetch(context.Background(), "PATCH", "bkt", "", nil)
	assert.ErrorIs(t, err, s3err.ErrMethodNotAllowed)
}
