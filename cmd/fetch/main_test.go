package main

import "testing"

func TestGetenvInt(t *testing.T) {
	if got := getenvInt("FETCH_TEST_UNSET", 30); got != 30 {
		t.Fatalf("unset: got %d", got)
	}

	t.Setenv("FETCH_TEST_INT", "0")
	if got := getenvInt("FETCH_TEST_INT", 30); got != 0 {
		t.Fatalf("explicit zero ignored: got %d", got)
	}

	t.Setenv("FETCH_TEST_INT", "12")
	if got := getenvInt("FETCH_TEST_INT", 30); got != 12 {
		t.Fatalf("set: got %d", got)
	}

	t.Setenv("FETCH_TEST_INT", "not-a-number")
	if got := getenvInt("FETCH_TEST_INT", 30); got != 30 {
		t.Fatalf("unparsable: got %d", got)
	}
}
