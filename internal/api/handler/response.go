package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/cuongbtq/video-gateway/internal/api/domain"
	"github.com/cuongbtq/video-gateway/internal/api/dto"
	"github.com/cuongbtq/video-gateway/internal/api/upstream"
	"github.com/cuongbtq/video-gateway/internal/api/validation"
)

const (
	contentTypeJSON     = "application/json; charset=utf-8"
	contentTypeMarkdown = "text/markdown; charset=utf-8"
	contentTypeText     = "text/plain; charset=utf-8"

	msgInternalError = "Internal server error"
)

// RespondError writes the JSON error body and status for err and attaches
// err to the context so the logger middleware records it.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status, message := errorStatus(err)
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: message})
}

func errorStatus(err error) (int, string) {
	var (
		authErr       *domain.AuthError
		validationErr *domain.ValidationError
		fieldErr      *domain.InvalidFieldError
		decodeErr     *domain.TokenDecodeError
		upstreamErr   *domain.UpstreamUnavailableError
		queueErr      *domain.QueueUnavailableError
	)

	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, authErr.Error()
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, fieldErr.Error()
	case errors.Is(err, domain.ErrInvalidBody):
		return http.StatusBadRequest, domain.ErrInvalidBody.Error()
	case errors.As(err, &decodeErr):
		if decodeErr.MissingUserID {
			return http.StatusBadRequest, decodeErr.Error()
		}
		return http.StatusUnauthorized, decodeErr.Error()
	case errors.As(err, &upstreamErr):
		return http.StatusServiceUnavailable, upstreamErr.Error()
	case errors.As(err, &queueErr):
		return http.StatusInternalServerError, queueErr.Error()
	default:
		return http.StatusInternalServerError, msgInternalError
	}
}

// relayJSON mirrors an upstream reply. JSON bodies are decoded and re-encoded
// with numbers kept exact and HTML left unescaped; anything else is relayed raw with the upstream
// content type.
func relayJSON(c *gin.Context, reply *upstream.Reply) {
	if json.Valid(reply.Body) {
		var payload any
		decoder := json.NewDecoder(bytes.NewReader(reply.Body))
		decoder.UseNumber()
		if err := decoder.Decode(&payload); err == nil {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(payload); err == nil {
				c.Data(reply.StatusCode, contentTypeJSON, bytes.TrimRight(buf.Bytes(), "\n"))
				return
			}
		}
	}

	relayRaw(c, reply, reply.ContentType)
}

// relayRaw writes the upstream body byte for byte under contentType.
func relayRaw(c *gin.Context, reply *upstream.Reply, contentType string) {
	if contentType == "" {
		contentType = contentTypeText
	}
	c.Data(reply.StatusCode, contentType, reply.Body)
}

// bindBody decodes the JSON object body and checks that every field in
// required is present. On failure the error response is already written.
func bindBody(c *gin.Context, required ...string) (map[string]any, bool) {
	body, err := validation.DecodeBody(c.Request.Body)
	if err != nil {
		RespondError(c, err)
		return nil, false
	}

	if err := validation.Required(body, required...); err != nil {
		RespondError(c, err)
		return nil, false
	}

	return body, true
}

// proxyJSON forwards one call to svc and mirrors the reply as JSON.
func proxyJSON(c *gin.Context, svc *upstream.Service, role, method, path string, query url.Values, body any) {
	reply, err := svc.Forward(c.Request.Context(), role, method, path, query, body)
	if err != nil {
		RespondError(c, err)
		return
	}
	relayJSON(c, reply)
}
