// Package logger builds *slog.Logger instances with functional options and
// keeps attribute naming consistent across the service.
//
// New picks a text or JSON handler, applies static attributes and wraps the
// result in LogHandlerDecorator, which runs the registered ContextExtractor
// callbacks on every record (request ids, environment).
//
//	log := logger.New(
//	    logger.WithEnvironment(environment.Production, "seopilot"),
//	    logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "signed in", logger.UserID(id), logger.Component("authstate"))
package logger
