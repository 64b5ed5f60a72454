package logger

import (
	"github.com/sharanvkt/insane-dashboard-v2/sym"
	"go.uber.org/zap"
)

// Symbol-aware logger wrappers.
// The glyph is attached as a structured field, not baked into the message:
//
//	log := logger.AddPulseSymbol(logger.ComponentLogger("pulse"))
//	log.Infow("Tick complete", "applied", n)

// AddPulseSymbol wraps a logger with the Pulse symbol (꩜)
func AddPulseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Pulse)
}

// AddHistorySymbol wraps a logger with the History symbol (⟲)
func AddHistorySymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.History)
}

// AddDBSymbol wraps a logger with the DB symbol (⊔)
func AddDBSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.DB)
}
