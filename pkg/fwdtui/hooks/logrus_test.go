package hooks

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestTUILogHook_Fire(t *testing.T) {
	var got []string
	accept := true
	hook := NewTUILogHook(func(_ time.Time, level logrus.Level, message string) bool {
		if accept {
			got = append(got, level.String()+":"+message)
		}
		return accept
	})

	if len(hook.Levels()) != len(logrus.AllLevels) {
		t.Errorf("Expected all levels, got %d", len(hook.Levels()))
	}

	_ = hook.Fire(&logrus.Entry{Level: logrus.WarnLevel, Message: "bus quiet"})
	accept = false
	_ = hook.Fire(&logrus.Entry{Level: logrus.InfoLevel, Message: "dropped"})

	if len(got) != 1 || got[0] != "warning:bus quiet" {
		t.Errorf("Unexpected entries %v", got)
	}
	if hook.Dropped() != 1 {
		t.Errorf("Expected 1 dropped, got %d", hook.Dropped())
	}
}

func TestTUILogHook_SetLevels(t *testing.T) {
	hook := NewTUILogHook(func(time.Time, logrus.Level, string) bool { return true })
	hook.SetLevels([]logrus.Level{logrus.ErrorLevel})
	if len(hook.Levels()) != 1 || hook.Levels()[0] != logrus.ErrorLevel {
		t.Errorf("Levels = %v", hook.Levels())
	}
}

func TestTUILogHook_ThroughLogger(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&discardWriter{})

	ch := make(chan string, 1)
	logger.AddHook(NewTUILogHook(func(_ time.Time, _ logrus.Level, message string) bool {
		select {
		case ch <- message:
			return true
		default:
			return false
		}
	}))

	logger.Info("client attached")

	select {
	case msg := <-ch:
		if msg != "client attached" {
			t.Errorf("Got %q", msg)
		}
	default:
		t.Fatal("Hook did not receive entry")
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
