package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "chanfeed", false)

	log.Info().Str("channel_id", "UC1").Msg("channel added")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	if entry["service"] != "chanfeed" || entry["channel_id"] != "UC1" || entry["message"] != "channel added" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entry has no timestamp")
	}
}

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "chanfeed", false)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q, want only the warn line", out)
	}
}

func TestNewWithWriter_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "loud", "chanfeed", false)

	log.Debug().Msg("debug")
	log.Info().Msg("info")

	if strings.Contains(buf.String(), `"debug"`) || !strings.Contains(buf.String(), "info") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNewWithWriter_Pretty(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "chanfeed", true)

	log.Info().Msg("publish finished")

	if json.Valid(buf.Bytes()) {
		t.Errorf("console output should not be JSON: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "publish finished") {
		t.Errorf("output = %q", buf.String())
	}
}
