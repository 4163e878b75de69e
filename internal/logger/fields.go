package logger

import (
	"time"

	"go.uber.org/zap"
)

func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

func Method(v string) zap.Field {
	return zap.String("method", v)
}

func URL(v string) zap.Field {
	return zap.String("url", v)
}

func Status(v int) zap.Field {
	return zap.Int("status", v)
}

func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

func KeyID(v string) zap.Field {
	return zap.String("keyid", v)
}

// Decision logs a response classification with the rule that produced it.
func Decision(decision, basis string) zap.Field {
	return zap.Dict("decision", zap.String("value", decision), zap.String("basis", basis))
}
