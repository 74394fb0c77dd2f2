package gateway

import (
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"rdv-gateway/internal/guard"
	"rdv-gateway/internal/session"
	"rdv-gateway/internal/upstream"
	"rdv-gateway/pkg/cerror"
	"rdv-gateway/pkg/server"
)

// routeGroups maps each upstream route prefix to the roles allowed through.
// Admins pass everywhere except where a group is explicitly theirs alone.
var routeGroups = []struct {
	prefix       string
	allowedRoles []string
}{
	{
		prefix:       "/api/users",
		allowedRoles: []string{session.RoleUser, session.RoleAdmin},
	},
	{
		prefix:       "/api/medecin",
		allowedRoles: []string{session.RoleMedecin, session.RoleAdmin},
	},
	{
		prefix:       "/api/admin",
		allowedRoles: []string{session.RoleAdmin},
	},
	{
		prefix:       "/api/appointments",
		allowedRoles: []string{session.RoleUser, session.RoleMedecin, session.RoleAdmin},
	},
	{
		prefix:       "/api/avis",
		allowedRoles: []string{session.RoleUser, session.RoleMedecin, session.RoleAdmin},
	},
	{
		prefix:       "/api/disponibilites",
		allowedRoles: []string{session.RoleMedecin, session.RoleAdmin},
	},
}

type proxy struct {
	sessions       session.Store
	upstreamClient upstream.Client
}

func NewProxy(sessions session.Store, upstreamClient upstream.Client) server.Handler {
	return &proxy{
		sessions:       sessions,
		upstreamClient: upstreamClient,
	}
}

func (p *proxy) RegisterRoutes(app *fiber.App) {
	for _, group := range routeGroups {
		app.All(
			group.prefix+"*",
			guard.New(p.sessions, group.allowedRoles...),
			p.Forward,
		)
	}
}

// Forward relays the request through the session's credentials and hands the
// upstream answer back unmodified, status and body alike.
func (p *proxy) Forward(ctx *fiber.Ctx) error {
	header := http.Header{}
	contentType := ctx.Get(fiber.HeaderContentType)
	if contentType != "" {
		header.Set(fiber.HeaderContentType, contentType)
	}

	response, err := p.upstreamClient.Do(ctx.Context(), guard.SessionId(ctx), &upstream.Request{
		Method: ctx.Method(),
		Path:   ctx.OriginalURL(),
		Header: header,
		Body:   ctx.Body(),
	})
	if err != nil {
		return err
	}
	defer response.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return cerror.ErrorMalformedUpstreamResponse
	}

	responseContentType := response.Header.Get(fiber.HeaderContentType)
	if responseContentType != "" {
		ctx.Set(fiber.HeaderContentType, responseContentType)
	}

	return ctx.
		Status(response.StatusCode).
		Send(body)
}
