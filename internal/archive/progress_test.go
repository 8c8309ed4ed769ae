package archive

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatETASeconds(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, ""},
		{30, "<1m"},
		{600, "10m"},
		{3600, "1h"},
		{3900, "1h 5m"},
		{86400, "1d"},
		{90000, "1d 1h"},
	}
	for _, tc := range cases {
		if got := formatETASeconds(tc.seconds); got != tc.want {
			t.Fatalf("formatETASeconds(%v) mismatch: got %q want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestEstimateETA(t *testing.T) {
	if got := estimateETA(10*time.Minute, 50); got != "10m" {
		t.Fatalf("expected 10m, got %q", got)
	}
	if got := estimateETA(time.Minute, 0); got != "" {
		t.Fatalf("expected empty eta before progress, got %q", got)
	}
	if got := estimateETA(time.Minute, 100); got != "0m" {
		t.Fatalf("expected 0m at completion, got %q", got)
	}
}

func TestLiveProgressRender(t *testing.T) {
	var out bytes.Buffer
	p := NewLiveProgress(&out, 2, 3, "photos.zip")
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return base }
	p.started = base.Add(-5 * time.Minute)

	p.OnProgress(50)
	line := p.render()
	for _, want := range []string{"[2/3]", " 50%", "eta ~ 5m", "| photos.zip", "[" + strings.Repeat("=", 12) + strings.Repeat(" ", 12) + "]"} {
		if !strings.Contains(line, want) {
			t.Fatalf("render missing %q: %q", want, line)
		}
	}

	p.OnComplete("/cache/photos.zip")
	if line := p.render(); !strings.Contains(line, "100%") || !strings.Contains(line, "finishing") {
		t.Fatalf("unexpected completed render: %q", line)
	}
}

func TestLiveProgressStopPrintsOnce(t *testing.T) {
	var out bytes.Buffer
	p := NewLiveProgress(&out, 1, 1, "a.zip")
	p.Start()
	p.Stop("done a.zip")
	p.Stop("done again")

	text := out.String()
	if strings.Count(text, "done") != 1 {
		t.Fatalf("expected a single final line, got %q", text)
	}
	if strings.Contains(text, "[1/1]") {
		t.Fatalf("single-item batches should not show a counter: %q", text)
	}
}
