package cerror

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"rdv-gateway/pkg/logger"
)

// Middleware is the fiber error handler. Custom errors are logged with their
// recorded severity and serialized without the log message, so callers only
// ever see the http status.
func Middleware(ctx *fiber.Ctx, err error) error {
	var cerr *CustomError
	isCerror := errors.As(err, &cerr)
	if !isCerror {
		return fiber.DefaultErrorHandler(ctx, err)
	}

	sugaredLogger := logger.FromContext(ctx.Context())
	log := sugaredLogger.Desugar()
	for _, field := range cerr.LogFields {
		log = log.With(field)
	}
	log.Log(cerr.LogSeverity, cerr.LogMessage)

	return ctx.
		Status(cerr.HttpStatusCode).
		SendString(cerr.SerializeCerror())
}
