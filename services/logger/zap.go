package logsvc

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/dojo/core"
)

// NewZap builds the JSON console logger. name tags every entry (e.g. "api", "db").
func NewZap(conf *core.Config, name string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing log level %q", conf.LogLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]interface{}{"env": conf.Env, "build": conf.Build}
	if conf.Debug {
		cfg.Development = true
		cfg.Sampling = nil
	}

	zl, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	return zl.Named(name), nil
}

// fields maps logger args to zap fields.
func fields(args []interface{}) []zap.Field {
	fs := make([]zap.Field, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			fs = append(fs, zap.Error(a))
		case core.Person:
			fs = append(fs, zap.String("user_id", a.ID), zap.String("user_email", a.Email))
		case map[string]interface{}:
			fs = append(fs, zap.Any("extra", a))
		default:
			fs = append(fs, zap.Any("arg", a))
		}
	}
	return fs
}
