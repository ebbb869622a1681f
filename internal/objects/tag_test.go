package objects

import (
	"testing"
	"time"
)

// TestNewTag verifies annotated tag creation.
func TestNewTag(t *testing.T) {
	targetID := randomID(t)
	tagger := createTestAuthor("Alice", "alice@example.com")

	tag, err := NewTag(targetID, TypeCommit, "v1.0.0", "Release v1.0.0\n", tagger)
	if err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}

	if tag.TargetID() != targetID {
		t.Errorf("TargetID() = %s, want %s", tag.TargetID(), targetID)
	}
	if tag.TargetType() != TypeCommit {
		t.Errorf("TargetType() = %s, want commit", tag.TargetType())
	}
	if tag.Name() != "v1.0.0" {
		t.Errorf("Name() = %s, want v1.0.0", tag.Name())
	}
	if tag.Message() != "Release v1.0.0\n" {
		t.Errorf("Message() = %q", tag.Message())
	}
}

// TestNewTag_InvalidTargetType verifies rejection of unknown target types.
func TestNewTag_InvalidTargetType(t *testing.T) {
	_, err := NewTag(randomID(t), Type(99), "v1.0.0", "msg", createTestAuthor("Alice", "alice@example.com"))
	if err == nil {
		t.Fatal("Expected error for invalid target type")
	}
}

// TestNewTag_EmptyName verifies rejection of unnamed tags.
func TestNewTag_EmptyName(t *testing.T) {
	_, err := NewTag(randomID(t), TypeCommit, "", "msg", createTestAuthor("Alice", "alice@example.com"))
	if err == nil {
		t.Fatal("Expected error for empty tag name")
	}
}

// TestTag_ContentLayout verifies the serialized header layout.
func TestTag_ContentLayout(t *testing.T) {
	targetID := randomID(t)
	tagger := Author{
		Name:      "Alice",
		Email:     "alice@example.com",
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}

	tag, err := NewTag(targetID, TypeCommit, "v1.0.0", "Release\n", tagger)
	if err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}

	expected := "object " + targetID.String() + "\n" +
		"type commit\n" +
		"tag v1.0.0\n" +
		"tagger Alice <alice@example.com> 1700000000 +0000\n" +
		"\nRelease\n"
	if string(tag.Content()) != expected {
		t.Errorf("Content mismatch:\ngot  %q\nwant %q", tag.Content(), expected)
	}
}
