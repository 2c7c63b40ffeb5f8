// Package zap adapts a zap logger to the depcache Logger.
package zap

import (
	"github.com/unkn0wn-root/depcache"
	"go.uber.org/zap"
)

var _ depcache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

func (z Logger) Debug(msg string, f depcache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f depcache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f depcache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f depcache.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f depcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}
