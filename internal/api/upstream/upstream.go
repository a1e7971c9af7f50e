// Package upstream forwards gateway requests to backend services and relays
// their answers.
package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/cuongbtq/video-gateway/internal/api/domain"
	"github.com/cuongbtq/video-gateway/shared/httpclient"
)

// Roles of the upstream services, as named in error messages.
const (
	RoleAuth        = "auth service"
	RoleTranslation = "translation service"
	RoleQuiz        = "quiz service"
	RoleChat        = "chat service"
	RoleSummary     = "summary service"
	RoleArticle     = "article conversion service"
)

// Doer is the transport used by a Service.
type Doer interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// Reply is what the upstream answered.
type Reply struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Service is one backend reachable under BaseURL.
type Service struct {
	baseURL string
	doer    Doer
}

// NewService creates a Service rooted at baseURL.
func NewService(baseURL string, doer Doer) *Service {
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
	}
}

// Forward calls path on the service on behalf of role. body is JSON encoded
// when non-nil. The upstream status and body are returned as is; only a
// failure to reach the upstream becomes an error.
func (s *Service) Forward(ctx context.Context, role, method, path string, query url.Values, body any) (*Reply, error) {
	target := s.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req := httpclient.Request{Method: method, URL: target}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode upstream body: %w", err)
		}
		req.Body = payload
		req.ContentType = "application/json"
	}

	resp, err := s.doer.Do(ctx, req)
	if err != nil {
		return nil, &domain.UpstreamUnavailableError{Role: role, Err: err}
	}

	return &Reply{
		StatusCode:  resp.StatusCode,
		Body:        resp.Body,
		ContentType: resp.ContentType,
	}, nil
}
