package game

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aaronzipp/werewolf-gm/internal/models"
)

func TestGenerateCode(t *testing.T) {
	for range 100 {
		code := GenerateCode()
		if _, err := NormalizeCode(code); err != nil {
			t.Fatalf("generated invalid code %q: %v", code, err)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "abcdef", want: "ABCDEF"},
		{in: "  a1b2c3 ", want: "A1B2C3"},
		{in: "ABCDE", wantErr: true},
		{in: "ABCDEFG", wantErr: true},
		{in: "ABC-EF", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeCode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidCode) {
				t.Fatalf("%q: expected ErrInvalidCode, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %q, %v", tt.in, got, err)
		}
	}
}

func TestUniqueCodeSkipsTaken(t *testing.T) {
	calls := 0
	code, err := UniqueCode(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	if err != nil {
		t.Fatalf("unique code: %v", err)
	}
	if calls != 3 || code == "" {
		t.Fatalf("expected third candidate, got %q after %d calls", code, calls)
	}
}

func TestNormalizeName(t *testing.T) {
	if _, err := NormalizeName("   "); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName for blank name, got %v", err)
	}
	if _, err := NormalizeName(strings.Repeat("é", MaxNameLength+1)); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName for long name, got %v", err)
	}
	name, err := NormalizeName(" " + strings.Repeat("é", MaxNameLength) + " ")
	if err != nil || name != strings.Repeat("é", MaxNameLength) {
		t.Fatalf("expected trimmed name, got %q, %v", name, err)
	}
}

func TestFindPlayerByNameIgnoresCase(t *testing.T) {
	s := models.NewSession("ABCDEF", time.Unix(0, 0))
	s.Players = append(s.Players, models.Player{ID: "1", Name: "Ægir"}, models.Player{ID: "2", Name: "Bastien"})
	if p := FindPlayerByName(s, "ægir"); p == nil || p.ID != "1" {
		t.Fatalf("expected Ægir, got %+v", p)
	}
	if p := FindPlayerByName(s, " BASTIEN "); p == nil || p.ID != "2" {
		t.Fatalf("expected Bastien, got %+v", p)
	}
	if p := FindPlayerByName(s, "nobody"); p != nil {
		t.Fatalf("expected nil, got %+v", p)
	}
}

func TestErrorKinds(t *testing.T) {
	err := Errorf(KindDuplicateName, "Ana is already seated.")
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected kind match")
	}
	if errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("kinds must not cross-match")
	}
	if !IsDomainError(err) || IsDomainError(errors.New("disk full")) {
		t.Fatalf("IsDomainError misclassified")
	}
	if err.Error() != "Ana is already seated." {
		t.Fatalf("unexpected text %q", err.Error())
	}
}
