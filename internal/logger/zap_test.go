package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestToZapLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		DebugLevel: zapcore.DebugLevel,
		InfoLevel:  zapcore.InfoLevel,
		WarnLevel:  zapcore.WarnLevel,
		ErrorLevel: zapcore.ErrorLevel,
		"verbose":  defaultZapLevel,
		"INFO":     zapcore.InfoLevel,
		" warn ":   zapcore.WarnLevel,
	}
	for in, want := range cases {
		if got := toZapLevel(in); got != want {
			t.Errorf("toZapLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewZapLoggerFormats(t *testing.T) {
	for _, f := range []string{FormatConsole, FormatJSON, "xml"} {
		l := newZapLogger(InfoLevel, f)
		if l == nil || l.SugaredLogger == nil {
			t.Fatalf("format %q: nil logger", f)
		}
		if !l.Desugar().Core().Enabled(zapcore.InfoLevel) {
			t.Errorf("format %q: info should be enabled", f)
		}
		if l.Desugar().Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("format %q: debug should be disabled", f)
		}
	}
}

func TestNamedAndNop(t *testing.T) {
	l := Nop().Named("catalog").With("path", "devices.yml")
	l.Infow("catalog_loaded", "devices", 3)
}
