package gateway

import (
	"encoding/xml"
	"errors"
	"net/http"

	"github.com/LeeDigitalWorks/aclgate/pkg/logger"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3err"
)

func (rc *requestContext) writeXML(status int, body any) {
	out, err := xml.Marshal(body)
	if err != nil {
		logger.Ctx(rc.r.Context()).Error().Err(err).Msg("marshaling response body")
		rc.writeError(s3err.ErrInternalError)
		return
	}

	rc.w.Header().Set("Content-Type", "application/xml")
	rc.w.WriteHeader(status)
	rc.w.Write([]byte(xml.Header))
	rc.w.Write(out)
}

// writeError maps any error from the engine or the backend to an S3
// error document. Errors that are not already S3-shaped become
// InternalError.
func (rc *requestContext) writeError(err error) {
	resp := rc.errorResponse(err)

	if resp.HTTPCode >= http.StatusInternalServerError {
		logger.Ctx(rc.r.Context()).Error().Err(err).Msg("request failed")
	} else {
		logger.Ctx(rc.r.Context()).Debug().
			Str("code", resp.Code).
			Msg("request rejected")
	}

	out, merr := xml.Marshal(resp)
	if merr != nil {
		rc.w.WriteHeader(http.StatusInternalServerError)
		return
	}
	rc.w.Header().Set("Content-Type", "application/xml")
	rc.w.WriteHeader(resp.HTTPCode)
	rc.w.Write([]byte(xml.Header))
	rc.w.Write(out)
}

func (rc *requestContext) errorResponse(err error) s3err.Error {
	resource := rc.r.URL.Path

	var resp s3err.Error
	if errors.As(err, &resp) {
		resp.Resource = resource
		resp.RequestID = rc.requestID
		return resp
	}

	code := s3err.ErrInternalError
	var ec s3err.ErrorCode
	if errors.As(err, &ec) {
		code = ec
	}
	resp = code.ToErrorResponse(resource)
	resp.RequestID = rc.requestID
	return resp
}
