package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/example/prodtrack/internal/apperr"
	"github.com/example/prodtrack/internal/ctxutil"
)

func TestDirectory_ResolveUser(t *testing.T) {
	dir := NewDirectory(map[string]Operator{
		"op-1":  {Name: "Amina", Role: "operator"},
		" op-2": {Role: "supervisor"},
	})

	tests := []struct {
		name     string
		actorID  string
		wantName string
		wantRole string
	}{
		{"configured", "op-1", "Amina", "operator"},
		{"case-insensitive", "OP-1", "Amina", "operator"},
		{"trimmed key, name defaults to id", "op-2", "op-2", "supervisor"},
		{"unknown operator", "op-9", "op-9", ""},
		{"system", ctxutil.SystemActor, "System", "system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dir.ResolveUser(context.Background(), tt.actorID)
			if err != nil {
				t.Fatalf("ResolveUser failed: %v", err)
			}
			if got.ID != tt.actorID || got.Name != tt.wantName || got.Role != tt.wantRole {
				t.Errorf("ResolveUser(%q) = %+v, want name %q role %q", tt.actorID, got, tt.wantName, tt.wantRole)
			}
		})
	}
}

func TestDirectory_ResolveUser_EmptyActor(t *testing.T) {
	dir := NewDirectory(nil)
	_, err := dir.ResolveUser(context.Background(), "  ")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}
