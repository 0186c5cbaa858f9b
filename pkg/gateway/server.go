// Package gateway is the HTTP boundary: it resolves the addressed
// resource and subresource, runs the authorization engine, and performs
// the resulting backend calls. Object payloads are not handled here;
// the data plane sits behind the backend store.
package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/LeeDigitalWorks/aclgate/pkg/authz"
	"github.com/LeeDigitalWorks/aclgate/pkg/backend"
	"github.com/LeeDigitalWorks/aclgate/pkg/logger"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3err"
)

type Server struct {
	engine *authz.Engine
	store  backend.Store
}

func NewServer(store backend.Store) *Server {
	return &Server{
		engine: authz.NewEngine(store),
		store:  store,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set(s3consts.XAmzRequestID, requestID)

	reqLogger := logger.Ctx(r.Context()).With().
		Str("request_id", requestID).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Logger()
	ctx := logger.WithLogger(r.Context(), &reqLogger)
	r = r.WithContext(ctx)

	rc := &requestContext{
		srv:       s,
		requestID: requestID,
		w:         w,
		r:         r,
	}
	if err := rc.parse(); err != nil {
		rc.writeError(err)
		return
	}
	rc.dispatch()
}

// requestContext carries the decoded view of one request through
// dispatch and response writing.
type requestContext struct {
	srv       *Server
	requestID string
	w         http.ResponseWriter
	r         *http.Request

	bucket string
	object string
	target authz.Target
	req    *authz.Request
}

func (rc *requestContext) parse() error {
	accountID := rc.r.Header.Get(s3consts.XAmzAccountID)
	if accountID == "" {
		return s3err.ErrAccessDenied
	}

	// Split on the escaped form so an encoded slash stays inside the
	// object key, then unescape each segment.
	path := strings.TrimPrefix(rc.r.URL.EscapedPath(), "/")
	rawBucket, rawObject, _ := strings.Cut(path, "/")
	bucket, err := url.PathUnescape(rawBucket)
	if err != nil || bucket == "" {
		return s3err.ErrInvalidURI
	}
	object, err := url.PathUnescape(rawObject)
	if err != nil {
		return s3err.ErrInvalidURI
	}
	rc.bucket = bucket
	rc.object = object
	rc.target = resolveTarget(rc.r, object)

	body, err := rc.readBody()
	if err != nil {
		return err
	}

	rc.req = &authz.Request{
		Method:    rc.r.Method,
		Bucket:    bucket,
		Object:    object,
		AccountID: accountID,
		Header:    rc.r.Header,
		Body:      body,
	}
	return nil
}

// resolveTarget maps the request's subresource query parameters to the
// engine's closed target set.
func resolveTarget(r *http.Request, object string) authz.Target {
	q := r.URL.Query()
	switch {
	case q.Has("acl"):
		return authz.TargetACL
	case q.Has("uploads"):
		return authz.TargetUploads
	case q.Has("partNumber") && q.Has("uploadId"):
		return authz.TargetPart
	case q.Has("uploadId"):
		return authz.TargetUpload
	case q.Has("delete"):
		return authz.TargetMultiDelete
	}
	if r.Method == http.MethodPut {
		if object == "" {
			return authz.TargetBucket
		}
		return authz.TargetObject
	}
	return authz.TargetDefault
}

// readBody consumes the request body for the operations that carry a
// control document. Data-plane payloads never flow through here.
func (rc *requestContext) readBody() ([]byte, error) {
	switch rc.target {
	case authz.TargetACL, authz.TargetMultiDelete:
	default:
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(rc.r.Body, s3consts.MaxACLBodySize+1))
	if err != nil {
		return nil, s3err.ErrInternalError
	}
	if len(body) > s3consts.MaxACLBodySize {
		return nil, s3err.ErrEntityTooLarge
	}
	return body, nil
}

func (rc *requestContext) dispatch() {
	ctx := rc.r.Context()

	switch rc.target {
	case authz.TargetACL:
		switch rc.r.Method {
		case http.MethodGet:
			rc.handleGetACL(ctx)
		case http.MethodPut:
			rc.handlePutACL(ctx)
		default:
			rc.writeError(s3err.ErrMethodNotAllowed)
		}
	case authz.TargetMultiDelete:
		if rc.r.Method != http.MethodPost {
			rc.writeError(s3err.ErrMethodNotAllowed)
			return
		}
		rc.handleMultiDelete(ctx)
	case authz.TargetBucket:
		rc.handlePutBucket(ctx)
	case authz.TargetObject:
		rc.handlePutObject(ctx)
	default:
		rc.handlePlain(ctx)
	}
}

// handlePlain covers subresource-free HEAD, GET, and DELETE; the policy
// table supplies the permission and the backend call follows directly.
func (rc *requestContext) handlePlain(ctx context.Context) {
	switch rc.r.Method {
	case http.MethodHead, http.MethodGet, http.MethodDelete:
	default:
		rc.writeError(s3err.ErrMethodNotAllowed)
		return
	}

	decision, err := rc.srv.engine.Authorize(ctx, authz.TargetDefault, "", rc.req)
	if err != nil {
		rc.writeError(err)
		return
	}

	switch rc.r.Method {
	case http.MethodHead, http.MethodGet:
		if _, ok := decision.Cached(); !ok {
			if _, err := rc.srv.store.Fetch(ctx, rc.r.Method, rc.bucket, rc.object, nil); err != nil {
				rc.writeError(err)
				return
			}
		}
		rc.w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		if _, err := rc.srv.store.Fetch(ctx, http.MethodDelete, rc.bucket, rc.object, nil); err != nil {
			rc.writeError(err)
			return
		}
		rc.w.WriteHeader(http.StatusNoContent)
	}
}
