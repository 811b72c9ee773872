package advice

import (
	"reflect"
	"testing"
)

func TestFindAllIdentifiersSameLine(t *testing.T) {
	text := "Payment against invoice 23EXT2526/2834 processed on 12-05-2025"

	got := FindAllIdentifiers(text)
	want := []string{"23EXT2526/2834"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAllIdentifiers = %v, want %v", got, want)
	}
}

func TestFindAllIdentifiersTrailingSlashSplit(t *testing.T) {
	// The invoice number wraps at the line break with a bare trailing slash.
	text := "21EXT1926/\n2657 8,801.00 157.00 8,644.00"

	got := FindAllIdentifiers(text)
	want := []string{"21EXT1926/2657"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAllIdentifiers = %v, want %v", got, want)
	}
}

func TestFindAllIdentifiersInterstitialSplit(t *testing.T) {
	// Interstitial content between the slash and the wrapped continuation.
	text := "5HBT1234/ 12-05-2025 settlement\nref 998877 cleared"

	got := FindAllIdentifiers(text)
	want := []string{"5HBT1234/998877"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAllIdentifiers = %v, want %v", got, want)
	}
}

func TestFindAllIdentifiersWhitespaceSeparated(t *testing.T) {
	text := "settled 19EXT2324 7736 via NEFT"

	got := FindAllIdentifiers(text)
	want := []string{"19EXT2324/7736"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAllIdentifiers = %v, want %v", got, want)
	}
}

func TestFindAllIdentifiersUnanchoredFallback(t *testing.T) {
	text := "reference 22EXT123456 only"

	got := FindAllIdentifiers(text)
	want := []string{"22EXT123456"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAllIdentifiers = %v, want %v", got, want)
	}
}

func TestFindAllIdentifiersGenericLabelFallback(t *testing.T) {
	text := "Invoice No: HBT-2024-001 approved for payment"

	got := FindAllIdentifiers(text)
	want := []string{"HBT-2024-001"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAllIdentifiers = %v, want %v", got, want)
	}
}

func TestFindAllIdentifiersDeduplication(t *testing.T) {
	text := "23EXT2526/2834 listed twice: 23EXT2526/2834"

	got := FindAllIdentifiers(text)
	want := []string{"23EXT2526/2834"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAllIdentifiers = %v, want %v", got, want)
	}
}

func TestFindAllIdentifiersLowercaseNormalized(t *testing.T) {
	text := "payment for 23ext2526/2834"

	got := FindAllIdentifiers(text)
	want := []string{"23EXT2526/2834"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAllIdentifiers = %v, want %v", got, want)
	}
}

func TestFindAllIdentifiersRejectsShortCandidates(t *testing.T) {
	if got := FindAllIdentifiers("see EXT12 for details"); got != nil {
		t.Errorf("FindAllIdentifiers = %v, want nil", got)
	}
}

func TestFindAllIdentifiersMultiple(t *testing.T) {
	text := "23EXT2526/2834 first row\n24EXT2526/2901 second row"

	got := FindAllIdentifiers(text)
	want := []string{"23EXT2526/2834", "24EXT2526/2901"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAllIdentifiers = %v, want %v", got, want)
	}
}

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		identifier string
		valid      bool
	}{
		{"23EXT2526/2834", true},
		{"5HBT1234/998877", true},
		{"EXT12", false},          // too short
		{"12345678/9012", false},  // no marker
		{"21EXT1926/2657", true},
	}

	for _, tt := range tests {
		if got := ValidIdentifier(tt.identifier); got != tt.valid {
			t.Errorf("ValidIdentifier(%q) = %v, want %v", tt.identifier, got, tt.valid)
		}
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"23ext2526/2834", "23EXT2526/2834"},
		{"  23EXT2526 / 2834  ", "23EXT2526/2834"},
		{"21EXT1926/\t2657", "21EXT1926/2657"},
	}

	for _, tt := range tests {
		if got := NormalizeIdentifier(tt.raw); got != tt.want {
			t.Errorf("NormalizeIdentifier(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
