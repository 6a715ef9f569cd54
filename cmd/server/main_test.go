package main

import (
	"slices"
	"testing"
)

func TestSessionNames(t *testing.T) {
	got := sessionNames([]string{"main", "ops"}, []string{"archive", "main"})
	if want := []string{"main", "ops", "archive"}; !slices.Equal(got, want) {
		t.Fatalf("sessionNames = %v, want %v", got, want)
	}
	if got := sessionNames(nil, nil); len(got) != 0 {
		t.Fatalf("expected no sessions, got %v", got)
	}
}
