package gateway

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"rdv-gateway/internal/guard"
	"rdv-gateway/internal/session"
	"rdv-gateway/internal/upstream"
	"rdv-gateway/pkg/cerror"
	"rdv-gateway/pkg/config"
	"rdv-gateway/pkg/logger"
	"rdv-gateway/pkg/server"
)

type handler struct {
	sessions       session.Store
	authenticator  upstream.Authenticator
	upstreamClient upstream.Client
	rememberTtl    time.Duration
}

func NewHandler(
	sessions session.Store,
	authenticator upstream.Authenticator,
	upstreamClient upstream.Client,
	sessionConfig config.SessionConfig,
) server.Handler {
	return &handler{
		sessions:       sessions,
		authenticator:  authenticator,
		upstreamClient: upstreamClient,
		rememberTtl:    sessionConfig.RememberTtl,
	}
}

func (h *handler) RegisterRoutes(app *fiber.App) {
	app.Post("/auth/login", h.Login)
	app.Post("/auth/medecin/login", h.LoginMedecin)
	app.Post("/auth/logout", h.Logout)

	authenticated := guard.New(
		h.sessions,
		session.RoleUser,
		session.RoleMedecin,
		session.RoleAdmin,
	)
	app.Get("/auth/me", authenticated, h.Me)
	app.Patch("/auth/profile", authenticated, h.UpdateProfile)
}

func (h *handler) Login(ctx *fiber.Ctx) error {
	return h.login(ctx, "loginWithEmail",
		func(ctx context.Context, email, password string) (*session.Identity, error) {
			return h.authenticator.Login(ctx, email, password)
		})
}

func (h *handler) LoginMedecin(ctx *fiber.Ctx) error {
	return h.login(ctx, "loginMedecinWithEmail",
		func(ctx context.Context, email, password string) (*session.Identity, error) {
			return h.authenticator.LoginMedecin(ctx, email, password)
		})
}

func (h *handler) login(
	ctx *fiber.Ctx,
	eventName string,
	authenticate func(ctx context.Context, email, password string) (*session.Identity, error),
) error {
	log := logger.FromContext(ctx.Context()).
		With(zap.String("eventName", eventName))
	logger.InjectContext(ctx.Context(), log)

	var payload LoginPayload
	err := ctx.BodyParser(&payload)
	if err != nil {
		return cerror.ErrorBadRequest
	}

	validate := validator.New()
	err = validate.Struct(payload)
	if err != nil {
		return cerror.NewError(
			fiber.StatusBadRequest,
			"malformed request body",
		).SetSeverity(zap.WarnLevel)
	}

	identity, err := authenticate(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	// a re-login from the same browser replaces its previous session;
	// leaving it behind would keep live credentials under a dead cookie
	previousSessionId := guard.SessionId(ctx)
	if previousSessionId != "" {
		err = h.sessions.Delete(ctx.Context(), previousSessionId)
		if err != nil {
			return err
		}
	}

	sessionId, err := h.sessions.Save(ctx.Context(), identity, payload.Remember)
	if err != nil {
		return err
	}

	h.setSessionCookie(ctx, sessionId, payload.Remember)

	log.Info(logger.EventFinishedSuccessfully)
	return ctx.
		Status(fiber.StatusOK).
		JSON(toIdentityPayload(identity))
}

// Logout succeeds whether or not a session exists.
func (h *handler) Logout(ctx *fiber.Ctx) error {
	log := logger.FromContext(ctx.Context()).
		With(zap.String("eventName", "logout"))
	logger.InjectContext(ctx.Context(), log)

	err := h.sessions.Delete(ctx.Context(), guard.SessionId(ctx))
	if err != nil {
		return err
	}

	h.clearSessionCookie(ctx)

	log.Info(logger.EventFinishedSuccessfully)
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (h *handler) Me(ctx *fiber.Ctx) error {
	identity := guard.IdentityFromContext(ctx)

	return ctx.
		Status(fiber.StatusOK).
		JSON(toIdentityPayload(identity))
}

// UpdateProfile pushes the edit upstream first and folds it into the session
// only once the upstream accepted it, so the session never drifts ahead of
// the upstream record.
func (h *handler) UpdateProfile(ctx *fiber.Ctx) error {
	log := logger.FromContext(ctx.Context()).
		With(zap.String("eventName", "updateProfile"))
	logger.InjectContext(ctx.Context(), log)

	var payload ProfilePayload
	err := ctx.BodyParser(&payload)
	if err != nil {
		return cerror.ErrorBadRequest
	}

	validate := validator.New()
	err = validate.Struct(payload)
	if err != nil {
		return cerror.NewError(
			fiber.StatusBadRequest,
			"malformed request body",
		).SetSeverity(zap.WarnLevel)
	}

	identity := guard.IdentityFromContext(ctx)
	response, err := h.upstreamClient.Do(ctx.Context(), guard.SessionId(ctx), &upstream.Request{
		Method: fiber.MethodPut,
		Path:   profilePath(identity),
		Header: jsonHeader(),
		Body:   ctx.Body(),
	})
	if err != nil {
		return err
	}
	defer response.Body.Close() //nolint:errcheck

	if response.StatusCode < fiber.StatusOK || response.StatusCode >= fiber.StatusMultipleChoices {
		return ctx.SendStatus(response.StatusCode)
	}

	err = h.sessions.Update(ctx.Context(), guard.SessionId(ctx), payload.toPartial())
	if err != nil {
		return err
	}

	record, err := h.sessions.Get(ctx.Context(), guard.SessionId(ctx))
	if err != nil {
		return err
	}
	if record == nil {
		return cerror.ErrorUnauthenticated
	}

	log.Info(logger.EventFinishedSuccessfully)
	return ctx.
		Status(fiber.StatusOK).
		JSON(toIdentityPayload(&record.Identity))
}

func (h *handler) setSessionCookie(ctx *fiber.Ctx, sessionId string, remember bool) {
	cookie := &fiber.Cookie{
		Name:     guard.CookieName,
		Value:    sessionId,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if remember {
		cookie.Expires = time.Now().Add(h.rememberTtl)
	}

	ctx.Cookie(cookie)
}

func (h *handler) clearSessionCookie(ctx *fiber.Ctx) {
	ctx.Cookie(&fiber.Cookie{
		Name:     guard.CookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-time.Hour),
	})
}
