package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nlsantiago/sis-api/pkg/config"
	"github.com/nlsantiago/sis-api/pkg/middleware/requestid"
)

// New builds the process logger: sampled JSON in production, the
// console-friendly development config everywhere else. An unparseable
// level keeps the config's default.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.Log.Format == "console" {
		zapCfg.Encoding = "console"
	} else {
		zapCfg.Encoding = "json"
	}
	if cfg.Log.Level != "" {
		if lvl, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
			zapCfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapCfg.Build()
}

// GinMiddleware emits one structured access log line per request,
// correlated by request ID when the requestid middleware ran first.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id := requestid.Value(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		l.Info("http_request", fields...)
	}
}
