package gateway

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"

	"github.com/LeeDigitalWorks/aclgate/pkg/authz"
	"github.com/LeeDigitalWorks/aclgate/pkg/logger"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3err"
)

// handlePutBucket creates a bucket. The engine performs both the create
// and the ACL metadata write, so a granted decision is already complete.
func (rc *requestContext) handlePutBucket(ctx context.Context) {
	if _, err := rc.srv.engine.Authorize(ctx, authz.TargetBucket, "", rc.req); err != nil {
		rc.writeError(err)
		return
	}
	rc.w.Header().Set("Location", "/"+rc.bucket)
	rc.w.WriteHeader(http.StatusOK)
}

// handlePutObject records an object. The engine stages the new object
// ACL in the request metadata; the backend write happens here.
func (rc *requestContext) handlePutObject(ctx context.Context) {
	if _, err := rc.srv.engine.Authorize(ctx, authz.TargetObject, "", rc.req); err != nil {
		rc.writeError(err)
		return
	}
	if _, err := rc.srv.store.Fetch(ctx, http.MethodPut, rc.bucket, rc.object, &rc.req.Meta); err != nil {
		rc.writeError(err)
		return
	}
	rc.w.WriteHeader(http.StatusOK)
}

// handleGetACL renders the ACL document of the addressed resource.
func (rc *requestContext) handleGetACL(ctx context.Context) {
	if _, err := rc.srv.engine.Authorize(ctx, authz.TargetACL, "", rc.req); err != nil {
		rc.writeError(err)
		return
	}

	resp, err := rc.srv.store.Fetch(ctx, http.MethodHead, rc.bucket, rc.object, nil)
	if err != nil {
		rc.writeError(err)
		return
	}

	acl := resp.BucketACL
	if rc.object != "" {
		acl = resp.ObjectACL
	}
	if acl == nil {
		// A resource created outside this layer carries no ACL document
		// yet; reads of the missing document fail closed.
		rc.writeError(s3err.ErrAccessDenied)
		return
	}

	rc.writeXML(http.StatusOK, acl.ToAccessControlPolicy())
}

// handlePutACL replaces the ACL document of the addressed resource with
// the one the engine validated and staged.
func (rc *requestContext) handlePutACL(ctx context.Context) {
	if _, err := rc.srv.engine.Authorize(ctx, authz.TargetACL, "", rc.req); err != nil {
		rc.writeError(err)
		return
	}
	if _, err := rc.srv.store.Fetch(ctx, http.MethodPost, rc.bucket, rc.object, &rc.req.Meta); err != nil {
		rc.writeError(err)
		return
	}
	rc.w.WriteHeader(http.StatusOK)
}

// deleteRequest is the body of a DELETE Multiple Objects request.
type deleteRequest struct {
	XMLName xml.Name `xml:"Delete"`
	Quiet   bool     `xml:"Quiet"`
	Objects []struct {
		Key string `xml:"Key"`
	} `xml:"Object"`
}

type deleteResult struct {
	XMLName xml.Name        `xml:"DeleteResult"`
	Deleted []deletedObject `xml:"Deleted,omitempty"`
	Errors  []deleteError   `xml:"Error,omitempty"`
}

type deletedObject struct {
	Key string `xml:"Key"`
}

type deleteError struct {
	Key     string `xml:"Key"`
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

// handleMultiDelete deletes a batch of objects. WRITE on the bucket is
// checked once for the whole batch; the per-object deletes run without
// further ACL evaluation, and per-key failures are reported in the
// result body rather than failing the batch.
func (rc *requestContext) handleMultiDelete(ctx context.Context) {
	var del deleteRequest
	if err := xml.Unmarshal(rc.req.Body, &del); err != nil {
		rc.writeError(s3err.ErrMalformedXML)
		return
	}

	if _, err := rc.srv.engine.Authorize(ctx, authz.TargetMultiDelete, http.MethodHead, rc.req); err != nil {
		rc.writeError(err)
		return
	}

	var result deleteResult
	for _, obj := range del.Objects {
		if _, err := rc.srv.engine.Authorize(ctx, authz.TargetMultiDelete, http.MethodDelete, rc.req); err != nil {
			rc.writeError(err)
			return
		}
		_, err := rc.srv.store.Fetch(ctx, http.MethodDelete, rc.bucket, obj.Key, nil)
		switch {
		case err == nil, errors.Is(err, s3err.ErrNoSuchKey):
			// Deleting an absent key reports success.
			if !del.Quiet {
				result.Deleted = append(result.Deleted, deletedObject{Key: obj.Key})
			}
		default:
			logger.Ctx(ctx).Warn().Err(err).
				Str("bucket", rc.bucket).
				Str("key", obj.Key).
				Msg("batch delete entry failed")
			result.Errors = append(result.Errors, deleteError{
				Key:     obj.Key,
				Code:    s3err.ErrInternalError.Code(),
				Message: s3err.ErrInternalError.Description(),
			})
		}
	}

	rc.writeXML(http.StatusOK, result)
}
