package upstream

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"rdv-gateway/internal/session"
	"rdv-gateway/pkg/cerror"
	"rdv-gateway/pkg/config"
	"rdv-gateway/pkg/logger"
)

//go:generate mockgen -source=client.go -destination=mock_client.go -package=upstream

// Request is an upstream call routed through a session's credentials. The
// body is held as bytes so the single post-refresh retry can replay it.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Client issues authorized requests against the upstream api and makes
// expired access tokens invisible to callers: a 401 triggers one refresh and
// one retry, never more. Every call site that needs an authorized request
// goes through here; nothing else reimplements retry-on-401.
type Client interface {
	Do(ctx context.Context, sessionId string, request *Request) (*http.Response, error)
}

type client struct {
	baseUrl        string
	refreshTimeout time.Duration
	httpClient     *http.Client
	sessions       session.Store
	authenticator  Authenticator
	refreshGroup   singleflight.Group
}

func NewClient(
	upstreamConfig config.UpstreamConfig,
	sessions session.Store,
	authenticator Authenticator,
) Client {
	return &client{
		baseUrl:        upstreamConfig.BaseUrl,
		refreshTimeout: upstreamConfig.RefreshTimeout,
		httpClient:     &http.Client{},
		sessions:       sessions,
		authenticator:  authenticator,
	}
}

func (c *client) Do(ctx context.Context, sessionId string, request *Request) (*http.Response, error) {
	accessToken := c.sessions.AccessToken(ctx, sessionId)
	if accessToken == "" {
		return nil, cerror.ErrorUnauthenticated
	}

	// a token already past its exp claim earns a guaranteed 401; refresh
	// up front and spare the round trip
	refreshedProactively := false
	if tokenExpired(accessToken) {
		refreshedToken, err := c.refresh(ctx, sessionId)
		if err != nil {
			c.handleRefreshFailure(ctx, sessionId, err)
			return nil, err
		}
		accessToken = refreshedToken
		refreshedProactively = true
	}

	response, err := c.send(ctx, request, accessToken)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != fiber.StatusUnauthorized {
		return response, nil
	}

	// a 401 on a token minted moments ago is not staleness; one refresh
	// per call, so this 401 passes through
	if refreshedProactively {
		return response, nil
	}

	refreshedToken, err := c.refresh(ctx, sessionId)
	if err != nil {
		c.handleRefreshFailure(ctx, sessionId, err)
		// the caller gets the original 401, not the refresh error
		return response, nil
	}

	_ = response.Body.Close()

	// single retry; a 401 on the retried request passes through untouched
	return c.send(ctx, request, refreshedToken)
}

// refresh mints a new access token through the session's refresh token and
// re-persists it. Concurrent 401s on the same session share one in-flight
// refresh call instead of racing the refresh endpoint.
func (c *client) refresh(ctx context.Context, sessionId string) (string, error) {
	value, err, _ := c.refreshGroup.Do(sessionId, func() (interface{}, error) {
		record, err := c.sessions.Get(ctx, sessionId)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, cerror.ErrorUnauthenticated
		}

		// a hung refresh endpoint must not wedge every waiting caller
		refreshCtx, cancelRefreshCtx := context.WithTimeout(ctx, c.refreshTimeout)
		defer cancelRefreshCtx()

		partial, err := c.authenticator.RefreshAccessToken(refreshCtx, record.Identity.RefreshToken)
		if err != nil {
			return nil, err
		}

		err = c.sessions.Update(ctx, sessionId, partial)
		if err != nil {
			return nil, err
		}

		return *partial.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	return value.(string), nil
}

// handleRefreshFailure forces a logout when the upstream rejected the
// refresh credential. An unreachable upstream is not a rejection: the
// session survives a network failure.
func (c *client) handleRefreshFailure(ctx context.Context, sessionId string, refreshErr error) {
	if !errors.Is(refreshErr, cerror.ErrorRefreshRejected) {
		return
	}

	err := c.sessions.Delete(ctx, sessionId)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warnw(
			"failed to clear session after rejected refresh",
			zap.Error(err),
		)
	}
}

func (c *client) send(ctx context.Context, request *Request, accessToken string) (*http.Response, error) {
	httpRequest, err := http.NewRequestWithContext(
		ctx,
		request.Method,
		c.baseUrl+request.Path,
		bytes.NewReader(request.Body),
	)
	if err != nil {
		return nil, cerror.NewError(
			fiber.StatusInternalServerError,
			"error occurred while build upstream request",
			zap.Error(err),
		)
	}

	for name, values := range request.Header {
		for _, value := range values {
			httpRequest.Header.Add(name, value)
		}
	}
	httpRequest.Header.Set(fiber.HeaderAuthorization, "Bearer "+accessToken)

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, cerror.ErrorUpstreamUnreachable
	}

	return response, nil
}
