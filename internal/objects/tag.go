package objects

import (
	"bytes"
	"fmt"
)

// Tag is an annotated tag: a named, signed-off pointer to another object,
// usually a commit.
type Tag struct {
	id         ObjectID
	targetID   ObjectID
	targetType Type
	name       string
	tagger     Author
	message    string
	content    []byte
}

func NewTag(targetID ObjectID, targetType Type, name, message string, tagger Author) (*Tag, error) {
	if !targetType.IsValid() {
		return nil, fmt.Errorf("invalid tag target type: %s", targetType)
	}
	if name == "" {
		return nil, fmt.Errorf("tag name must not be empty")
	}

	content := buildTagContent(targetID, targetType, name, message, tagger)
	id, err := ComputeID(TypeTag, content)
	if err != nil {
		return nil, fmt.Errorf("failed to compute hash for tag: %v", err)
	}

	return &Tag{
		id:         id,
		targetID:   targetID,
		targetType: targetType,
		name:       name,
		tagger:     tagger,
		message:    message,
		content:    content,
	}, nil
}

func buildTagContent(targetID ObjectID, targetType Type, name, message string, tagger Author) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "object %s\n", targetID)
	fmt.Fprintf(&buf, "type %s\n", targetType)
	fmt.Fprintf(&buf, "tag %s\n", name)
	writeIdentLine(&buf, "tagger", tagger)

	buf.WriteByte('\n')
	buf.WriteString(message)

	if len(message) > 0 && message[len(message)-1] != '\n' {
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}

func (t *Tag) Type() Type {
	return TypeTag
}

func (t *Tag) ID() ObjectID {
	return t.id
}

// TargetID returns the id of the tagged object.
func (t *Tag) TargetID() ObjectID {
	return t.targetID
}

// TargetType returns the kind of the tagged object.
func (t *Tag) TargetType() Type {
	return t.targetType
}

func (t *Tag) Name() string {
	return t.name
}

func (t *Tag) Tagger() Author {
	return t.tagger
}

func (t *Tag) Message() string {
	return t.message
}

// Content returns the exact bytes the id was computed over, preserving
// the original serialization of parsed tags.
func (t *Tag) Content() []byte {
	return t.content
}

func (t *Tag) Size() int {
	return len(t.Content())
}

func (t *Tag) Data() []byte {
	return frame(TypeTag, t.Content())
}

func (t *Tag) String() string {
	return fmt.Sprintf("Tag{id: %s, target: %s, name: %q}", t.id, t.targetID, t.name)
}
