package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/yeisme/codespace/pkg/configs"
	"github.com/yeisme/codespace/pkg/log"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Level: "warn", Format: "json"}, false, &buf)

	l.Info().Msg("dropped")
	l.Warn().Str("workspace_id", "w1").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line above warn level, got %q", buf.String())
	}

	var entry map[string]any
	if err := sonic.UnmarshalString(lines[0], &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}

	if entry["workspace_id"] != "w1" || entry["app"] != configs.AppName || entry["message"] != "kept" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Level: "loud", Format: "json"}, false, &buf)
	l.Debug().Msg("hidden")
	l.Info().Msg("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestGinWriter(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Format: "json"}, false, &buf)
	w := log.NewGinWriter(&l, zerolog.ErrorLevel)

	if n, err := w.Write([]byte("[GIN-debug] GET /health\n")); err != nil || n == 0 {
		t.Fatalf("write = %d %v", n, err)
	}

	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, `"message":"GET /health"`) {
		t.Fatalf("unexpected output %q", out)
	}
}
