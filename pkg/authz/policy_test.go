package authz

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3types"
)

func TestLookupPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		backendMethod string
		kind          ResourceKind
		wantOK        bool
		wantKind      ResourceKind
		wantPerm      s3types.Permission
	}{
		{
			name:          "get object",
			method:        http.MethodGet,
			backendMethod: http.MethodGet,
			kind:          KindObject,
			wantOK:        true,
			wantPerm:      s3types.PermissionRead,
		},
		{
			name:          "head bucket",
			method:        http.MethodHead,
			backendMethod: http.MethodHead,
			kind:          KindBucket,
			wantOK:        true,
			wantPerm:      s3types.PermissionRead,
		},
		{
			name:          "put object probes destination bucket for write",
			method:        http.MethodPut,
			backendMethod: http.MethodHead,
			kind:          KindBucket,
			wantOK:        true,
			wantPerm:      s3types.PermissionWrite,
		},
		{
			name:          "delete object checks bucket write",
			method:        http.MethodDelete,
			backendMethod: http.MethodDelete,
			kind:          KindObject,
			wantOK:        true,
			wantKind:      KindBucket,
			wantPerm:      s3types.PermissionWrite,
		},
		{
			name:          "upload part checks bucket write",
			method:        http.MethodPut,
			backendMethod: http.MethodPut,
			kind:          KindObject,
			wantOK:        true,
			wantKind:      KindBucket,
			wantPerm:      s3types.PermissionWrite,
		},
		{
			name:          "abort upload probe checks bucket write",
			method:        http.MethodDelete,
			backendMethod: http.MethodHead,
			kind:          KindObject,
			wantOK:        true,
			wantKind:      KindBucket,
			wantPerm:      s3types.PermissionWrite,
		},
		{
			name:          "delete bucket requires ownership",
			method:        http.MethodDelete,
			backendMethod: http.MethodDelete,
			kind:          KindBucket,
			wantOK:        true,
			wantPerm:      s3types.PermissionOwner,
		},
		{
			name:          "list buckets requires ownership per bucket",
			method:        http.MethodGet,
			backendMethod: http.MethodHead,
			kind:          KindBucket,
			wantOK:        true,
			wantPerm:      s3types.PermissionOwner,
		},
		{
			name:          "batch delete checks bucket write once",
			method:        http.MethodPost,
			backendMethod: http.MethodHead,
			kind:          KindBucket,
			wantOK:        true,
			wantPerm:      s3types.PermissionWrite,
		},
		{
			name:          "initiate upload checks bucket write",
			method:        http.MethodPost,
			backendMethod: http.MethodPut,
			kind:          KindBucket,
			wantOK:        true,
			wantPerm:      s3types.PermissionWrite,
		},
		{
			name:          "unmapped operation",
			method:        "PATCH",
			backendMethod: http.MethodGet,
			kind:          KindObject,
			wantOK:        false,
		},
		{
			name:          "put bucket is not table-driven",
			method:        http.MethodPut,
			backendMethod: http.MethodPut,
			kind:          KindBucket,
			wantOK:        false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rule, ok := lookupPolicy(tc.method, tc.backendMethod, tc.kind)
			require.Equal(t, tc.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tc.wantKind, rule.Kind)
			assert.Equal(t, tc.wantPerm, rule.Permission)
		})
	}
}
