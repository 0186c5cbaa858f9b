package backend

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3err"
	"github.com/LeeDigitalWorks/aclgate/pkg/s3api/s3types"
)

// Memory is an in-memory Store for development and tests. It keeps only
// what this layer cares about: bucket and object existence plus their
// ACL metadata. Segment buckets (<bucket>+segments) are stored like any
// other bucket; suffix handling is the caller's concern.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]*memBucket
}

type memBucket struct {
	acl     *s3types.AccessControlList
	objects map[string]*memObject
}

type memObject struct {
	acl *s3types.AccessControlList
}

func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]*memBucket)}
}

func (m *Memory) Fetch(ctx context.Context, method, bucket, object string, meta *Metadata) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch method {
	case http.MethodHead, http.MethodGet:
		return m.read(bucket, object)
	case http.MethodPut:
		return m.put(bucket, object, meta)
	case http.MethodPost:
		return m.post(bucket, object, meta)
	case http.MethodDelete:
		return m.delete(bucket, object)
	default:
		return nil, s3err.ErrMethodNotAllowed
	}
}

func (m *Memory) read(bucket, object string) (*Response, error) {
	b, ok := m.buckets[bucket]
	if !ok {
		return nil, s3err.ErrNoSuchBucket
	}
	resp := &Response{BucketACL: b.acl}
	if object != "" {
		o, ok := b.objects[object]
		if !ok {
			return nil, s3err.ErrNoSuchKey
		}
		resp.ObjectACL = o.acl
	}
	return resp, nil
}

func (m *Memory) put(bucket, object string, meta *Metadata) (*Response, error) {
	if object == "" {
		if _, ok := m.buckets[bucket]; ok && !strings.HasSuffix(bucket, s3consts.MultiuploadSuffix) {
			return nil, s3err.ErrBucketAlreadyExists
		}
		b := &memBucket{objects: make(map[string]*memObject)}
		if meta != nil {
			b.acl = meta.BucketACL
		}
		m.buckets[bucket] = b
		return &Response{BucketACL: b.acl}, nil
	}

	b, ok := m.buckets[bucket]
	if !ok {
		return nil, s3err.ErrNoSuchBucket
	}
	o := &memObject{}
	if meta != nil {
		o.acl = meta.ObjectACL
	}
	b.objects[object] = o
	return &Response{BucketACL: b.acl, ObjectACL: o.acl}, nil
}

func (m *Memory) post(bucket, object string, meta *Metadata) (*Response, error) {
	b, ok := m.buckets[bucket]
	if !ok {
		return nil, s3err.ErrNoSuchBucket
	}
	if object == "" {
		if meta != nil && meta.BucketACL != nil {
			b.acl = meta.BucketACL
		}
		return &Response{BucketACL: b.acl}, nil
	}

	o, ok := b.objects[object]
	if !ok {
		return nil, s3err.ErrNoSuchKey
	}
	if meta != nil && meta.ObjectACL != nil {
		o.acl = meta.ObjectACL
	}
	return &Response{BucketACL: b.acl, ObjectACL: o.acl}, nil
}

func (m *Memory) delete(bucket, object string) (*Response, error) {
	b, ok := m.buckets[bucket]
	if !ok {
		return nil, s3err.ErrNoSuchBucket
	}
	if object == "" {
		delete(m.buckets, bucket)
		return &Response{}, nil
	}
	if _, ok := b.objects[object]; !ok {
		return nil, s3err.ErrNoSuchKey
	}
	delete(b.objects, object)
	return &Response{}, nil
}
