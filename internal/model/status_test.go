package model

import (
	"testing"
	"time"
)

func TestCanTransition_AllowsExpectedPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{"", StatusPending},
		{StatusPending, StatusScanning},
		{StatusScanning, StatusWriting},
		{StatusWriting, StatusCompleted},
		{StatusPending, StatusFailed},
		{StatusScanning, StatusFailed},
		{StatusWriting, StatusFailed},
	}

	for _, tc := range cases {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{StatusPending, StatusCompleted},
		{StatusScanning, StatusCompleted},
		{StatusCompleted, StatusWriting},
		{StatusFailed, StatusPending},
		{"not_a_state", StatusPending},
	}

	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be rejected", tc.from, tc.to)
		}
	}
}

func TestTransitionArchiveStatus_BlocksIllegalTransition(t *testing.T) {
	job := ArchiveJob{
		ID:        "job-1",
		SourceDir: "/tmp/src",
		Status:    StatusPending,
	}

	if err := TransitionArchiveStatus(&job, StatusCompleted, ""); err == nil {
		t.Fatalf("expected illegal transition error")
	}
	if job.Status != StatusPending {
		t.Fatalf("status changed on rejected transition: %q", job.Status)
	}
}

func TestCompletedAtText(t *testing.T) {
	rec := JobRecord{OutputName: "a.zip"}
	if got := rec.CompletedAtText(); got != "" {
		t.Fatalf("expected empty text for zero time, got %q", got)
	}
	rec.CompletedAt = time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local)
	if got := rec.CompletedAtText(); got != "2024-03-09 07:05:01" {
		t.Fatalf("completion text mismatch: got %q", got)
	}
}
