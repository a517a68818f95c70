package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	log  *zap.SugaredLogger
	once sync.Once
)

// Init sets up the global logger. In development the output goes to
// stdout in console format; otherwise JSON lines go to a rotated file.
func Init(appEnv string) {
	once.Do(func() {
		var core zapcore.Core

		if appEnv == "development" {
			encoderCfg := zap.NewDevelopmentEncoderConfig()
			encoder := zapcore.NewConsoleEncoder(encoderCfg)
			core = zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.DebugLevel)
		} else {
			writer := zapcore.AddSync(&lumberjack.Logger{
				Filename:   "./logs/app.log",
				MaxSize:    50, // MB
				MaxBackups: 7,
				MaxAge:     14, // days
				Compress:   true,
			})

			encoderCfg := zap.NewProductionEncoderConfig()
			encoderCfg.TimeKey = "ts"
			encoder := zapcore.NewJSONEncoder(encoderCfg)
			core = zapcore.NewCore(encoder, writer, zap.InfoLevel)
		}

		log = zap.New(core, zap.AddCaller()).Sugar()
	})
}

// L returns the global logger, initializing a development logger if
// Init was never called (keeps tests and one-off tools working).
func L() *zap.SugaredLogger {
	if log == nil {
		Init("development")
	}
	return log
}
