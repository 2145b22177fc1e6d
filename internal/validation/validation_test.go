package validation

import (
	"errors"
	"testing"
	"time"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@x.com", true},
		{"jane.doe@franchise.example", true},
		{"", false},
		{"not-an-email", false},
		{"Jane Doe <jane@x.com>", false},
		{"@x.com", false},
	}

	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestParseSaleDate(t *testing.T) {
	day, err := ParseSaleDate("2024-01-05")
	if err != nil {
		t.Fatalf("ParseSaleDate error: %v", err)
	}

	want := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	if !day.Equal(want) {
		t.Fatalf("day = %v, want %v", day, want)
	}

	_, err = ParseSaleDate("05.01.2024")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNormalizeDay(t *testing.T) {
	in := time.Date(2024, time.March, 10, 18, 45, 12, 999, time.UTC)
	got := NormalizeDay(in)

	want := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NormalizeDay = %v, want %v", got, want)
	}
}

func TestEndOfDay(t *testing.T) {
	in := time.Date(2024, time.March, 10, 2, 0, 0, 0, time.UTC)
	got := EndOfDay(in)

	if got.Before(in) {
		t.Fatalf("EndOfDay %v is before input %v", got, in)
	}
	if got.Day() != 10 {
		t.Fatalf("EndOfDay moved to another day: %v", got)
	}
}

func TestRevenueToCents(t *testing.T) {
	cents, err := RevenueToCents(150.25)
	if err != nil {
		t.Fatalf("RevenueToCents error: %v", err)
	}
	if cents != 15025 {
		t.Fatalf("cents = %d, want 15025", cents)
	}

	if cents, err = RevenueToCents(0); err != nil || cents != 0 {
		t.Fatalf("RevenueToCents(0) = %d, %v, want 0, nil", cents, err)
	}

	if _, err = RevenueToCents(-1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative revenue, got %v", err)
	}
}

func TestValidateApplication(t *testing.T) {
	valid := ApplicationInput{FirstName: "Jane", LastName: "Doe", Email: "jane@x.com"}
	if err := ValidateApplication(valid); err != nil {
		t.Fatalf("ValidateApplication error: %v", err)
	}

	tests := []struct {
		name string
		in   ApplicationInput
	}{
		{"missing first name", ApplicationInput{LastName: "Doe", Email: "jane@x.com"}},
		{"missing last name", ApplicationInput{FirstName: "Jane", Email: "jane@x.com"}},
		{"bad email", ApplicationInput{FirstName: "Jane", LastName: "Doe", Email: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateApplication(tt.in); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}
