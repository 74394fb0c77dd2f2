package guard

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"rdv-gateway/internal/session"
	"rdv-gateway/pkg/cerror"
	"rdv-gateway/pkg/logger"
)

const (
	CookieName  = "rdv_session"
	IdentityKey = "guard_identity"

	LoginPath = "/login"
	HomePath  = "/"
)

// New admits or denies a request based on session presence and role.
//
// Four outcomes:
//   - session existence undeterminable → 503, no authorization decision
//   - no session, or no access token   → redirect to login, preserving the
//     requested location
//   - role not in the allow-list       → redirect to home; protected
//     content is never rendered, even partially
//   - admitted                         → identity placed on locals, next
//
// The guard runs on every request to a protected group, so identity changes
// (login, logout, refresh) take effect on the next navigation.
func New(sessions session.Store, allowedRoles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		allowed[role] = struct{}{}
	}

	return func(ctx *fiber.Ctx) error {
		record, err := sessions.Get(ctx.Context(), SessionId(ctx))
		if err != nil {
			log := logger.FromContext(ctx.Context())
			log.Warnw(
				"session lookup failed, deferring authorization decision",
				zap.Error(err),
			)
			ctx.Set(fiber.HeaderRetryAfter, "1")
			return cerror.ErrorSessionStorage
		}

		if record == nil || record.Identity.AccessToken == "" {
			loginUrl := LoginPath + "?next=" + url.QueryEscape(ctx.OriginalURL())
			return ctx.Redirect(loginUrl, fiber.StatusFound)
		}

		_, isAllowed := allowed[record.Identity.Role]
		if !isAllowed {
			return ctx.Redirect(HomePath, fiber.StatusFound)
		}

		ctx.Locals(IdentityKey, &record.Identity)
		return ctx.Next()
	}
}

func SessionId(ctx *fiber.Ctx) string {
	return ctx.Cookies(CookieName)
}

func IdentityFromContext(ctx *fiber.Ctx) *session.Identity {
	identity, _ := ctx.Locals(IdentityKey).(*session.Identity)
	return identity
}
