package upstream

import (
	"bytes"
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"rdv-gateway/internal/session"
	"rdv-gateway/pkg/cerror"
	"rdv-gateway/pkg/config"
)

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=upstream

// Authenticator binds the upstream authentication endpoints. The refresh
// credential travels in the request body; the legacy cookie binding of the
// refresh endpoint is unsupported.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*session.Identity, error)
	LoginMedecin(ctx context.Context, email, password string) (*session.Identity, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*session.Partial, error)
}

type authenticator struct {
	baseUrl    string
	httpClient *http.Client
}

func NewAuthenticator(upstreamConfig config.UpstreamConfig) Authenticator {
	return &authenticator{
		baseUrl:    upstreamConfig.BaseUrl,
		httpClient: &http.Client{},
	}
}

func (a *authenticator) Login(ctx context.Context, email, password string) (*session.Identity, error) {
	return a.login(ctx, loginPath, email, password)
}

func (a *authenticator) LoginMedecin(ctx context.Context, email, password string) (*session.Identity, error) {
	return a.login(ctx, medecinLoginPath, email, password)
}

func (a *authenticator) login(ctx context.Context, path, email, password string) (*session.Identity, error) {
	response, err := a.postJson(ctx, path, &loginPayload{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	defer response.Body.Close() //nolint:errcheck

	// a generic failure for every rejection, never revealing which field
	// was wrong or whether the email exists
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, cerror.ErrorInvalidCredentials
	}

	var payload identityPayload
	err = json.NewDecoder(response.Body).Decode(&payload)
	if err != nil {
		return nil, cerror.ErrorMalformedUpstreamResponse
	}

	return payload.toIdentity()
}

func (a *authenticator) RefreshAccessToken(ctx context.Context, refreshToken string) (*session.Partial, error) {
	response, err := a.postJson(ctx, refreshPath, &refreshPayload{
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, err
	}
	defer response.Body.Close() //nolint:errcheck

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, cerror.ErrorRefreshRejected
	}

	var payload refreshResponsePayload
	err = json.NewDecoder(response.Body).Decode(&payload)
	if err != nil || payload.AccessToken == "" {
		return nil, cerror.ErrorRefreshRejected
	}

	partial := &session.Partial{
		AccessToken: &payload.AccessToken,
	}
	if payload.RefreshToken != "" {
		partial.RefreshToken = &payload.RefreshToken
	}

	return partial, nil
}

func (a *authenticator) postJson(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	marshalledPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, cerror.NewError(
			fiber.StatusInternalServerError,
			"error occurred while marshal upstream payload",
		)
	}

	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		a.baseUrl+path,
		bytes.NewReader(marshalledPayload),
	)
	if err != nil {
		return nil, cerror.NewError(
			fiber.StatusInternalServerError,
			"error occurred while build upstream request",
		)
	}
	request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	response, err := a.httpClient.Do(request)
	if err != nil {
		return nil, cerror.ErrorUpstreamUnreachable
	}

	return response, nil
}
