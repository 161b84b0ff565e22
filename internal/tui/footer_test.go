package tui

import (
	"strings"
	"testing"
	"time"

	"keyduel/internal/engine"
	"keyduel/internal/model"
)

func newFooterModel(t *testing.T, cfg engine.Config) (*Model, *engine.Engine) {
	t.Helper()
	eng, err := engine.New(cfg)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return NewModel(eng, nil), eng
}

func TestRenderFooterStopwatch(t *testing.T) {
	m, eng := newFooterModel(t, engine.Config{
		Level:    model.LevelSimple,
		Text:     "the cat sat",
		Language: "en",
	})
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	for i, r := range "the " {
		eng.ApplyKeystroke(string(r), start.Add(time.Duration(i)*100*time.Millisecond))
	}
	out := m.renderFooter(start.Add(3 * time.Second))
	if !strings.Contains(out, "0:03") {
		t.Fatalf("expected elapsed clock in footer: %s", out)
	}
	if !strings.Contains(out, "WPM") || !strings.Contains(out, "100% acc") {
		t.Fatalf("expected live metrics in footer: %s", out)
	}
}

func TestRenderFooterCountdownAndProMode(t *testing.T) {
	m, eng := newFooterModel(t, engine.Config{
		Level:            model.LevelTime,
		Text:             "the cat sat on the mat",
		TimeLimitSeconds: 60,
		Language:         "en",
		MistakeMode:      model.ModePro,
	})
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	eng.ApplyKeystroke("t", start)
	eng.ApplyKeystroke("x", start.Add(100*time.Millisecond))

	out := m.renderFooter(start.Add(5 * time.Second))
	if !strings.Contains(out, "0:55 left") {
		t.Fatalf("expected countdown in footer: %s", out)
	}
	if !strings.Contains(out, "pro 1/5") {
		t.Fatalf("expected mistake budget in footer: %s", out)
	}
}

func TestCtrlRRestartsAttempt(t *testing.T) {
	m, eng := newFooterModel(t, engine.Config{
		Level:    model.LevelSimple,
		Text:     "the cat sat",
		Language: "en",
	})
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	eng.ApplyKeystroke("t", start)
	eng.ApplyKeystroke("h", start.Add(100*time.Millisecond))

	m.restart()
	if got := m.eng.UserInput(); got != "" {
		t.Fatalf("expected empty input after restart, got %q", got)
	}
	if m.eng.Status() != model.StatusPending {
		t.Fatalf("expected pending status after restart, got %s", m.eng.Status())
	}
	if m.eng.TargetText() != "the cat sat" {
		t.Fatal("expected restart to keep the same text")
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{0: "0:00", 7: "0:07", 60: "1:00", 95: "1:35", -3: "0:00"}
	for seconds, want := range cases {
		if got := formatClock(seconds); got != want {
			t.Errorf("formatClock(%d) = %q, want %q", seconds, got, want)
		}
	}
}
