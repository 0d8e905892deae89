// Package logger provee un logger Zap singleton con scoping por contexto.
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   cfg.App.Env,   // "dev" o "prod"
//	    Level: cfg.App.LogLevel,
//	})
//	defer logger.Sync()
//
// En services/pipeline (con contexto):
//
//	log := logger.From(ctx)
//	log.Info("dispatch done", logger.LogID(id), logger.Attempt(n))
//
// Sin contexto (fallback al singleton):
//
//	logger.L().Info("server started")
package logger
