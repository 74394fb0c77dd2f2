package cerror

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap/zapcore"
)

var (
	ErrorBadRequest = &CustomError{
		HttpStatusCode: fiber.StatusBadRequest,
		LogMessage:     "malformed request body or query parameter",
		LogSeverity:    zapcore.WarnLevel,
	}

	ErrorInvalidCredentials = &CustomError{
		HttpStatusCode: fiber.StatusUnauthorized,
		LogMessage:     "authentication failed",
		LogSeverity:    zapcore.WarnLevel,
	}

	ErrorUnauthenticated = &CustomError{
		HttpStatusCode: fiber.StatusUnauthorized,
		LogMessage:     "no authenticated session",
		LogSeverity:    zapcore.WarnLevel,
	}

	ErrorRefreshRejected = &CustomError{
		HttpStatusCode: fiber.StatusUnauthorized,
		LogMessage:     "session refresh rejected by upstream",
		LogSeverity:    zapcore.WarnLevel,
	}

	ErrorUpstreamUnreachable = &CustomError{
		HttpStatusCode: fiber.StatusBadGateway,
		LogMessage:     "upstream api is unreachable",
		LogSeverity:    zapcore.ErrorLevel,
	}

	ErrorMalformedUpstreamResponse = &CustomError{
		HttpStatusCode: fiber.StatusBadGateway,
		LogMessage:     "upstream api returned a malformed identity payload",
		LogSeverity:    zapcore.ErrorLevel,
	}

	ErrorSessionStorage = &CustomError{
		HttpStatusCode: fiber.StatusServiceUnavailable,
		LogMessage:     "session storage is unavailable",
		LogSeverity:    zapcore.ErrorLevel,
	}
)
