package objects

import (
	"fmt"
	"os"
)

// Blob holds raw file content. Blobs reference no other objects.
type Blob struct {
	content []byte
	id      ObjectID
}

func NewBlob(content []byte) *Blob {
	id, _ := ComputeID(TypeBlob, content)
	return &Blob{
		content: content,
		id:      id,
	}
}

func NewBlobFromFile(filepath string) (*Blob, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filepath, err)
	}
	return NewBlob(content), nil
}

func (b *Blob) Type() Type {
	return TypeBlob
}

func (b *Blob) ID() ObjectID {
	return b.id
}

func (b *Blob) Content() []byte {
	return b.content
}

func (b *Blob) Size() int {
	return len(b.content)
}

func (b *Blob) Data() []byte {
	return frame(TypeBlob, b.content)
}

func (b *Blob) String() string {
	return fmt.Sprintf("Blob{id: %s, size: %d bytes}", b.id, b.Size())
}
