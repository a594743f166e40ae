package logger

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Init(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func Info(msg string, fields map[string]interface{}) {
	log.Info().Fields(fields).Msg(msg)
}

func Debug(msg string) {
	log.Debug().Msg(msg)
}

func Warn(msg string, fields map[string]interface{}) {
	log.Warn().Fields(fields).Msg(msg)
}

func Error(msg string, err error, fields ...map[string]interface{}) {
	ev := log.Error().Err(err)
	for _, f := range fields {
		ev = ev.Fields(f)
	}
	ev.Msg(msg)
}

// Critical logs an error that requires operator attention (payment
// captured but no matching order, commit rollback failure, webhook
// auth mismatch). Tagged so alerting can route on alert=critical.
func Critical(msg string, err error, fields map[string]interface{}) {
	log.Error().Bool("alert", true).Str("severity", "critical").Err(err).Fields(fields).Msg(msg)
}
