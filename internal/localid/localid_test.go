package localid

import (
	"strings"
	"testing"
)

func TestNewNoteIDFormat(t *testing.T) {
	id := NewNoteID()
	if !strings.HasPrefix(id, "offline_") {
		t.Errorf("expected offline_ prefix, got %q", id)
	}
	if !IsLocal(id) {
		t.Errorf("expected IsLocal to accept %q", id)
	}
}

func TestPrefixesDistinguishEntityKinds(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		prefix string
	}{
		{"note", NewNoteID(), "offline_"},
		{"message", NewMessageID(), "offline_msg_"},
		{"file", NewFileID(), "offline_file_"},
	}
	for _, tt := range tests {
		if !strings.HasPrefix(tt.id, tt.prefix) {
			t.Errorf("%s id %q missing prefix %q", tt.name, tt.id, tt.prefix)
		}
		if !IsLocal(tt.id) {
			t.Errorf("%s id %q not recognized as local", tt.name, tt.id)
		}
	}
}

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewNoteID()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestIsLocalRejectsServerIDs(t *testing.T) {
	for _, id := range []string{
		"42",
		"a1b2c3d4-0000-4000-8000-000000000000",
		"offline_abc",
		"",
	} {
		if IsLocal(id) {
			t.Errorf("expected IsLocal(%q) = false", id)
		}
	}
}

func TestNewQueueIDIsUUID(t *testing.T) {
	id := NewQueueID()
	if len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Errorf("expected UUID format, got %q", id)
	}
}
