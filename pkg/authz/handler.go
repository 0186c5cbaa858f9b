package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/aclgate/pkg/backend"
	"github.com/LeeDigitalWorks/aclgate/pkg/logger"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3err"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3types"
)

// errNoPermission marks a reachable operation missing from the policy
// table. It is a programming error, surfaced as an internal failure and
// never mapped to a client-facing S3 code.
var errNoPermission = errors.New("authz: no permission resolvable for operation")

// Engine runs ACL checks for incoming operations against ACL metadata
// fetched through the storage collaborator. It is stateless; a single
// Engine serves concurrent requests without locking.
type Engine struct {
	store backend.Store
}

func NewEngine(store backend.Store) *Engine {
	return &Engine{store: store}
}

// Decision is the outcome of a successful authorization. When the check
// already performed the backend fetch the caller was about to issue,
// Cached returns that response for reuse; otherwise the caller performs
// its own backend call.
type Decision struct {
	cached *backend.Response
}

func (d Decision) Cached() (*backend.Response, bool) {
	return d.cached, d.cached != nil
}

// Authorize verifies that the request's account may perform the given
// operation. backendMethod is the method about to be issued against the
// backend; empty means the incoming method. A nil error means access is
// granted.
func (e *Engine) Authorize(ctx context.Context, target Target, backendMethod string, req *Request) (Decision, error) {
	if backendMethod == "" {
		backendMethod = req.Method
	}

	start := time.Now()
	d, err := e.authorize(ctx, target, backendMethod, req)
	observeDecision(target, err, time.Since(start))
	return d, err
}

func (e *Engine) authorize(ctx context.Context, target Target, backendMethod string, req *Request) (Decision, error) {
	h := &handler{eng: e, req: req}

	switch target {
	case TargetBucket:
		if backendMethod == http.MethodPut {
			return h.bucketPUT(ctx)
		}
	case TargetObject:
		if backendMethod == http.MethodPut {
			return h.objectPUT(ctx)
		}
	case TargetACL:
		switch backendMethod {
		case http.MethodGet:
			return h.aclGET(ctx)
		case http.MethodPut:
			return h.aclPUT(ctx)
		}
	case TargetMultiDelete:
		if backendMethod == http.MethodDelete {
			// Bucket WRITE was already verified by the batch-level HEAD;
			// the per-object deletes inside the batch are exempt.
			return Decision{}, nil
		}
	case TargetPart:
		switch backendMethod {
		case http.MethodPut:
			return h.partPUT(ctx)
		case http.MethodHead:
			// Upload-info probe, no check of its own.
			return Decision{}, nil
		}
	case TargetUploads:
		if backendMethod == http.MethodPut {
			return h.uploadsPUT(ctx)
		}
	case TargetUpload:
		switch backendMethod {
		case http.MethodHead:
			return h.uploadHEAD(ctx)
		case http.MethodPut:
			return h.uploadPUT(ctx)
		case http.MethodGet:
			return h.uploadGET(ctx)
		case http.MethodDelete:
			// Upload-id marker cleanup after complete/abort.
			return Decision{}, nil
		}
	}

	return h.fallback(ctx, backendMethod)
}

// handler evaluates the checks for one request.
type handler struct {
	eng *Engine
	req *Request
}

// fallback consults the policy table with the request's own resource
// names and performs the resolved check. Callers performing a backend
// HEAD reuse the fetched response instead of re-fetching.
func (h *handler) fallback(ctx context.Context, backendMethod string) (Decision, error) {
	resp, err := h.check(ctx, backendMethod, h.req.Bucket, h.req.Object, "")
	if err != nil {
		return Decision{}, err
	}
	if backendMethod == http.MethodHead {
		return Decision{cached: resp}, nil
	}
	return Decision{}, nil
}

// check resolves the required permission (from the policy table unless
// given), fetches the relevant ACL, and verifies the permission.
func (h *handler) check(ctx context.Context, backendMethod, container, object string, permission s3types.Permission) (*backend.Response, error) {
	kind := KindBucket
	if object != "" {
		kind = KindObject
	}

	if permission == "" {
		if rule, ok := lookupPolicy(h.req.Method, backendMethod, kind); ok {
			if rule.Kind != "" {
				kind = rule.Kind
			}
			permission = rule.Permission
		}
	}
	if permission == "" {
		logger.Ctx(ctx).Error().
			Str("method", h.req.Method).
			Str("backend_method", backendMethod).
			Str("resource", string(kind)).
			Msg("no ACL permission resolvable for operation")
		return nil, errNoPermission
	}

	// Segment buckets share the parent bucket's ACL.
	container = strings.TrimSuffix(container, s3consts.MultiuploadSuffix)

	var resp *backend.Response
	var err error
	var acl *s3types.AccessControlList
	if kind == KindObject {
		resp, err = h.eng.store.Fetch(ctx, http.MethodHead, container, object, nil)
		if err == nil {
			acl = resp.ObjectACL
		}
	} else {
		resp, err = h.eng.store.Fetch(ctx, http.MethodHead, container, "", nil)
		if err == nil {
			acl = resp.BucketACL
		}
	}
	if err != nil {
		return nil, err
	}

	if err := acl.CheckPermission(h.req.AccountID, permission); err != nil {
		return nil, err
	}
	return resp, nil
}

// checkCopySource verifies READ on the object named by x-amz-copy-source,
// when present.
func (h *handler) checkCopySource(ctx context.Context) error {
	source := h.req.Header.Get(s3consts.XAmzCopySource)
	if source == "" {
		return nil
	}

	srcBucket, srcObject, ok := splitCopySource(source)
	if !ok {
		return s3err.InvalidArgument(s3consts.XAmzCopySource, source,
			"Copy source must be of the form /bucket/object")
	}

	_, err := h.check(ctx, http.MethodHead, srcBucket, srcObject, s3types.PermissionRead)
	return err
}

func splitCopySource(source string) (bucket, object string, ok bool) {
	source = strings.TrimPrefix(source, "/")
	bucket, object, found := strings.Cut(source, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}

// bucketPUT handles bucket creation. The new ACL comes from request
// headers with the requester as owner; with no ACL headers the bucket
// is private. The create call goes out before the ACL write so a
// pre-existing bucket surfaces before its ACL could be replaced.
//
// A failure between the create and the metadata write leaves a bucket
// without ACL metadata; checks against such a bucket fail closed until
// an owner-side PUT ?acl repairs it.
func (h *handler) bucketPUT(ctx context.Context) (Decision, error) {
	owner := s3types.NewUserOwner(h.req.AccountID)
	reqACL, err := s3types.ACLFromHeaders(h.req.Header, owner, nil)
	if err != nil {
		return Decision{}, err
	}
	if reqACL == nil {
		reqACL = s3types.NewPrivateACL(owner)
	}

	if _, err := h.eng.store.Fetch(ctx, http.MethodPut, h.req.Bucket, "", nil); err != nil {
		return Decision{}, err
	}

	h.req.Meta.BucketACL = reqACL
	resp, err := h.eng.store.Fetch(ctx, http.MethodPost, h.req.Bucket, "", &h.req.Meta)
	if err != nil {
		return Decision{}, err
	}
	return Decision{cached: resp}, nil
}

// objectPUT handles object creation and copy. A copy source is checked
// for READ first, then WRITE on the destination bucket, then an
// existence probe on the destination object itself; the object need not
// pre-exist. The new object ACL is staged for the caller's write.
func (h *handler) objectPUT(ctx context.Context) (Decision, error) {
	if err := h.checkCopySource(ctx); err != nil {
		return Decision{}, err
	}

	bResp, err := h.check(ctx, http.MethodHead, h.req.Bucket, "", "")
	if err != nil {
		return Decision{}, err
	}

	if _, err := h.check(ctx, http.MethodHead, h.req.Bucket, h.req.Object, ""); err != nil {
		if !errors.Is(err, s3err.ErrNoSuchKey) {
			return Decision{}, err
		}
	}

	var bucketOwner s3types.Owner
	if bResp.BucketACL != nil {
		bucketOwner = bResp.BucketACL.Owner
	}
	objectOwner := s3types.NewUserOwner(h.req.AccountID)
	reqACL, err := s3types.ACLFromHeaders(h.req.Header, bucketOwner, &objectOwner)
	if err != nil {
		return Decision{}, err
	}
	if reqACL == nil {
		reqACL = s3types.NewPrivateACL(objectOwner)
	}

	h.req.Meta.ObjectACL = reqACL
	return Decision{}, nil
}

// aclGET handles GET ?acl: READ_ACP on the target resource. The caller
// fetches and renders the ACL document itself.
func (h *handler) aclGET(ctx context.Context) (Decision, error) {
	if _, err := h.check(ctx, http.MethodHead, h.req.Bucket, h.req.Object, s3types.PermissionReadACP); err != nil {
		return Decision{}, err
	}
	return Decision{}, nil
}

// aclPUT handles PUT ?acl: WRITE_ACP on the target resource, then the
// replacement ACL from headers or body. The resource owner cannot be
// changed through this path.
func (h *handler) aclPUT(ctx context.Context) (Decision, error) {
	if h.req.IsObjectRequest() {
		// The bucket owner parameterizes canned expansion; fetching it
		// also confirms the bucket exists.
		bResp, err := h.eng.store.Fetch(ctx, http.MethodHead, h.req.Bucket, "", nil)
		if err != nil {
			return Decision{}, err
		}

		oResp, err := h.check(ctx, http.MethodHead, h.req.Bucket, h.req.Object, s3types.PermissionWriteACP)
		if err != nil {
			return Decision{}, err
		}

		var bucketOwner s3types.Owner
		if bResp.BucketACL != nil {
			bucketOwner = bResp.BucketACL.Owner
		}
		var objectOwner s3types.Owner
		if oResp.ObjectACL != nil {
			objectOwner = oResp.ObjectACL.Owner
		}

		reqACL, err := h.aclFromRequest(bucketOwner, &objectOwner)
		if err != nil {
			return Decision{}, err
		}

		if err := oResp.ObjectACL.CheckOwner(reqACL.Owner.ID); err != nil {
			return Decision{}, err
		}

		h.logGrants(ctx, reqACL)
		h.req.Meta.ObjectACL = reqACL
		return Decision{}, nil
	}

	resp, err := h.check(ctx, http.MethodHead, h.req.Bucket, "", s3types.PermissionWriteACP)
	if err != nil {
		return Decision{}, err
	}

	var bucketOwner s3types.Owner
	if resp.BucketACL != nil {
		bucketOwner = resp.BucketACL.Owner
	}
	reqACL, err := h.aclFromRequest(bucketOwner, nil)
	if err != nil {
		return Decision{}, err
	}

	if err := resp.BucketACL.CheckOwner(reqACL.Owner.ID); err != nil {
		return Decision{}, err
	}

	h.logGrants(ctx, reqACL)
	h.req.Meta.BucketACL = reqACL
	return Decision{}, nil
}

// aclFromRequest applies the shared acquisition rule: headers win; a
// body is only parsed when no ACL headers are present; both at once is
// a conflict; neither is a missing header.
func (h *handler) aclFromRequest(bucketOwner s3types.Owner, objectOwner *s3types.Owner) (*s3types.AccessControlList, error) {
	acl, err := s3types.ACLFromHeaders(h.req.Header, bucketOwner, objectOwner)
	if err != nil {
		return nil, err
	}
	if acl == nil {
		if len(h.req.Body) == 0 {
			return nil, s3err.MissingSecurityHeader(s3consts.XAmzACL)
		}
		return s3types.ACLFromXML(h.req.Body)
	}
	if len(h.req.Body) > 0 {
		return nil, s3err.ErrUnexpectedContent
	}
	return acl, nil
}

func (h *handler) logGrants(ctx context.Context, acl *s3types.AccessControlList) {
	for _, g := range acl.Grants {
		logger.Ctx(ctx).Debug().
			Str("bucket", h.req.Bucket).
			Str("object", h.req.Object).
			Str("permission", string(g.Permission)).
			Str("grantee_type", string(g.Grantee.Type)).
			Str("grantee", g.Grantee.ID+g.Grantee.URI).
			Msg("granting permission")
	}
}

// partPUT handles Upload Part and Upload Part Copy: an optional copy
// source READ, then the (PUT, PUT, object) rule, which checks WRITE on
// the parent bucket.
func (h *handler) partPUT(ctx context.Context) (Decision, error) {
	if err := h.checkCopySource(ctx); err != nil {
		return Decision{}, err
	}
	return h.fallback(ctx, http.MethodPut)
}

// uploadsPUT handles Initiate Multipart Upload. Creating the segment
// bucket checks WRITE against the real bucket; the subsequent upload-id
// marker write needs no check of its own.
func (h *handler) uploadsPUT(ctx context.Context) (Decision, error) {
	if h.req.Object == "" {
		parent := strings.TrimSuffix(h.req.Bucket, s3consts.MultiuploadSuffix)
		if _, err := h.check(ctx, http.MethodPut, parent, "", ""); err != nil {
			return Decision{}, err
		}
	}
	return Decision{}, nil
}

// uploadHEAD covers the existence probe issued while aborting an
// upload: (DELETE, HEAD, object) resolves to WRITE on the bucket.
func (h *handler) uploadHEAD(ctx context.Context) (Decision, error) {
	if h.req.Method == http.MethodDelete && h.req.Object != "" {
		if _, err := h.check(ctx, http.MethodHead, h.req.Bucket, h.req.Object, ""); err != nil {
			return Decision{}, err
		}
	}
	return Decision{}, nil
}

// uploadPUT covers the manifest write when completing an upload against
// the bucket resource.
func (h *handler) uploadPUT(ctx context.Context) (Decision, error) {
	if h.req.IsBucketRequest() {
		return h.fallback(ctx, http.MethodPut)
	}
	return Decision{}, nil
}

// uploadGET covers part listings: List Parts reads and Complete
// Multipart Upload writes, both bucket-scoped, so the upload-id object
// is stripped from the check.
func (h *handler) uploadGET(ctx context.Context) (Decision, error) {
	if h.req.IsObjectRequest() && h.req.Method != http.MethodDelete {
		if _, err := h.check(ctx, http.MethodGet, h.req.Bucket, "", ""); err != nil {
			return Decision{}, err
		}
	}
	return Decision{}, nil
}
