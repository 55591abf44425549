package main

import "testing"

func TestRunWithoutBaseURLExitsOne(t *testing.T) {
	if code := run(nil); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if code := run([]string{}); code != 1 {
		t.Fatalf("expected exit code 1 for empty args, got %d", code)
	}
}
