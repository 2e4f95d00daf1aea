package utils

import (
	"reflect"
	"testing"
	"time"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ana@example.com", true},
		{"first.last+trip@sub.example.org", true},
		{"no-at-sign", false},
		{"a@b", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateEmail(tt.in); got != tt.want {
			t.Errorf("ValidateEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitEmails(t *testing.T) {
	got := SplitEmails(" a@x.com, ,b@y.com ,")
	want := []string{"a@x.com", "b@y.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitEmails() = %v, want %v", got, want)
	}
	if got := SplitEmails(""); len(got) != 0 {
		t.Fatalf("SplitEmails(\"\") = %v", got)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword() = %v", err)
	}
	if !CheckPassword(hash, "s3cret!") {
		t.Fatal("CheckPassword should accept the original password")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("CheckPassword should reject a different password")
	}
}

func TestParseISODate(t *testing.T) {
	want := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{
		"2025-06-10",
		"2025-06-10T08:30:00Z",
		"2025-06-10T23:00:00+00:00",
		"2025-06-10T00:00:00+08:00",
		"2025-06-10T23:30:00-05:00",
	} {
		got, err := ParseISODate(in)
		if err != nil {
			t.Fatalf("ParseISODate(%q) = %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseISODate(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseISODate("10/06/2025"); err == nil {
		t.Fatal("expected error for non ISO date")
	}
	if got := FormatISODate(want); got != "2025-06-10" {
		t.Fatalf("FormatISODate() = %q", got)
	}
}
