package objects

import (
	"bytes"
	"fmt"
	"time"

	"gitwire.dev/gitwire/internal/constants"
)

// Author represents commit author/committer identity.
type Author struct {
	Name      string
	Email     string
	Timestamp time.Time
}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>",
		a.Name,
		a.Email)
}

// Commit represents a snapshot of the repository. Parent edges form a
// DAG: a commit can only name parents whose ids were already computed.
type Commit struct {
	id        ObjectID
	treeID    ObjectID
	parents   []ObjectID
	author    Author
	committer Author
	message   string
	content   []byte
}

func NewCommit(treeID ObjectID, parents []ObjectID, message string, author Author) (*Commit, error) {
	committer := author

	content := buildCommitContent(treeID, parents, message, author, committer)
	id, err := ComputeID(TypeCommit, content)
	if err != nil {
		return nil, fmt.Errorf("failed to compute hash for commit: %v", err)
	}

	return &Commit{
		id:        id,
		treeID:    treeID,
		parents:   append([]ObjectID(nil), parents...),
		author:    author,
		committer: committer,
		message:   message,
		content:   content,
	}, nil
}

func NewInitialCommit(treeID ObjectID, message string, author Author) (*Commit, error) {
	return NewCommit(treeID, nil, message, author)
}

func buildCommitContent(treeID ObjectID, parents []ObjectID, message string, author, committer Author) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "tree %s\n", treeID)

	for _, parent := range parents {
		fmt.Fprintf(&buf, "parent %s\n", parent)
	}

	writeIdentLine(&buf, "author", author)
	writeIdentLine(&buf, "committer", committer)

	// Blank line before message
	buf.WriteByte('\n')

	buf.WriteString(message)

	// Ensure message ends in newline
	if len(message) > 0 && message[len(message)-1] != '\n' {
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}

func writeIdentLine(buf *bytes.Buffer, role string, who Author) {
	_, timeZoneOffset := who.Timestamp.Zone()
	timezone := calculateTimezone(timeZoneOffset)
	fmt.Fprintf(buf, "%s %s <%s> %d %s\n", role, who.Name, who.Email, who.Timestamp.Unix(), timezone)
}

func calculateTimezone(offset int) string {
	// offset is in seconds, convert to ±HHMM format
	hours := offset / constants.SecondsPerHour
	minutes := (offset % constants.SecondsPerHour) / constants.SecondsPerMinute

	if minutes < 0 {
		minutes = -minutes
	}

	return fmt.Sprintf("%+03d%02d", hours, minutes)
}

func (c *Commit) Type() Type {
	return TypeCommit
}

func (c *Commit) ID() ObjectID {
	return c.id
}

// TreeID returns the id of the root tree of the snapshot.
func (c *Commit) TreeID() ObjectID {
	return c.treeID
}

// Parents returns the parent commit ids, empty for an initial commit.
func (c *Commit) Parents() []ObjectID {
	return c.parents
}

func (c *Commit) Author() Author {
	return c.author
}

func (c *Commit) Committer() Author {
	return c.committer
}

func (c *Commit) Message() string {
	return c.message
}

// Content returns the exact bytes the id was computed over. Parsed
// commits keep their original serialization, so a body that is not in
// the canonical form NewCommit produces still round-trips through the
// store unchanged.
func (c *Commit) Content() []byte {
	return c.content
}

func (c *Commit) Size() int {
	return len(c.Content())
}

func (c *Commit) Data() []byte {
	return frame(TypeCommit, c.Content())
}

func (c *Commit) IsInitialCommit() bool {
	return len(c.parents) == 0
}

func (c *Commit) String() string {
	return fmt.Sprintf("Commit{id: %s, tree: %s, parents: %d, author: %s, message: %q}",
		c.id, c.treeID, len(c.parents), c.author.String(), c.message)
}
