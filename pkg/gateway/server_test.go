package gateway

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/aclgate/pkg/backend"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(backend.NewMemory())
}

func doRequest(t *testing.T, srv *Server, method, target, accountID string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reqBody)
	if accountID != "" {
		req.Header.Set(s3consts.XAmzAccountID, accountID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeS3Error(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		XMLName xml.Name `xml:"Error"`
		Code    string   `xml:"Code"`
	}
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestMissingAccountHeader(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/bkt", "", nil, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AccessDenied", decodeS3Error(t, rec))
	assert.NotEmpty(t, rec.Header().Get(s3consts.XAmzRequestID))
}

func TestRootPathRejected(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/", "alice", nil, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidURI", decodeS3Error(t, rec))
}

func TestBucketCreateAndACLRead(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/bkt", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/bkt?acl", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))

	var policy s3types.AccessControlPolicy
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &policy))
	assert.Equal(t, "alice", policy.Owner.ID)
	require.Len(t, policy.AccessControlList.Grants, 1)
	assert.Equal(t, string(s3types.PermissionFullControl), policy.AccessControlList.Grants[0].Permission)
}

func TestObjectFlow(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/bkt", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPut, "/bkt/obj", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// private object: stranger denied
	rec = doRequest(t, srv, http.MethodGet, "/bkt/obj", "bob", nil, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AccessDenied", decodeS3Error(t, rec))

	// owner grants READ to bob through PUT ?acl
	rec = doRequest(t, srv, http.MethodPut, "/bkt/obj?acl", "alice", nil, map[string]string{
		s3consts.XAmzGrantRead: `id="bob"`,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/bkt/obj", "bob", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// READ does not extend to the ACL document
	rec = doRequest(t, srv, http.MethodGet, "/bkt/obj?acl", "bob", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPutACLFromBody(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/bkt", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	policy := s3types.NewACL(s3types.NewUserOwner("alice"),
		s3types.Grant{Grantee: s3types.GroupGrantee(s3types.AllUsersGroup), Permission: s3types.PermissionRead},
	).ToAccessControlPolicy()
	body, err := xml.Marshal(policy)
	require.NoError(t, err)

	rec = doRequest(t, srv, http.MethodPut, "/bkt?acl", "alice", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/bkt?acl", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got s3types.AccessControlPolicy
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.AccessControlList.Grants, 1)
	assert.Equal(t, s3types.AllUsersGroup, got.AccessControlList.Grants[0].Grantee.URI)
}

func TestPutACLWithoutDocument(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/bkt", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPut, "/bkt?acl", "alice", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MissingSecurityHeader", decodeS3Error(t, rec))
}

func TestOversizeACLBody(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/bkt", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := []byte(strings.Repeat("x", s3consts.MaxACLBodySize+1))
	rec = doRequest(t, srv, http.MethodPut, "/bkt?acl", "alice", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EntityTooLarge", decodeS3Error(t, rec))
}

func TestMultiDelete(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/bkt", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, srv, http.MethodPut, "/bkt/a", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, srv, http.MethodPut, "/bkt/b", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := []byte(`<Delete><Object><Key>a</Key></Object><Object><Key>b</Key></Object><Object><Key>missing</Key></Object></Delete>`)
	rec = doRequest(t, srv, http.MethodPost, "/bkt?delete", "alice", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result deleteResult
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Deleted, 3)
	assert.Empty(t, result.Errors)

	rec = doRequest(t, srv, http.MethodGet, "/bkt/a", "alice", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEncodedObjectKey(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/bkt", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPut, "/bkt/hello%20world%2Fa", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The backend sees the decoded key, encoded slash included.
	_, err := srv.store.Fetch(context.Background(), http.MethodHead, "bkt", "hello world/a", nil)
	require.NoError(t, err)

	rec = doRequest(t, srv, http.MethodGet, "/bkt/hello%20world%2Fa", "alice", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMultiDeleteMalformedBody(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/bkt", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/bkt?delete", "alice", []byte("not a document"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MalformedXML", decodeS3Error(t, rec))
}

func TestMultiDeleteRequiresBucketWrite(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/bkt", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := []byte(`<Delete><Object><Key>a</Key></Object></Delete>`)
	rec = doRequest(t, srv, http.MethodPost, "/bkt?delete", "bob", body, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteBucketByNonOwner(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/bkt", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/bkt", "bob", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/bkt", "alice", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
