package constants

import "os"

// Command name constants used in tests and error messages.
// Cobra Use fields remain inline for CLI discoverability.
const (
	InitCmdName       = "init"
	HashObjectCmdName = "hash-object"
	CatFileCmdName    = "cat-file"
	ShowRefCmdName    = "show-ref"
	DaemonCmdName     = "daemon"
	CloneCmdName      = "clone"
	FetchCmdName      = "fetch"
	PushCmdName       = "push"
)

// Repository directory and file names define the gitwire metadata structure.
const (
	// GitWire is the repository metadata directory.
	GitWire = ".gitwire"

	// Objects stores content-addressable objects (blobs, trees, commits, tags).
	Objects = "objects"

	// Refs contains branch and tag references.
	Refs = "refs"

	// Heads stores branch pointers under refs/.
	Heads = "heads"

	// Tags stores tag pointers under refs/.
	Tags = "tags"

	// Head points to current branch or detached commit.
	Head = "HEAD"
)

// Default repository values.
const (
	// DefaultBranch is the initial branch name for new repositories.
	DefaultBranch = "main"

	// DefaultRefPrefix is prepended to branch names in HEAD file.
	DefaultRefPrefix = "ref: refs/heads/"

	// HeadsRefPrefix is the full prefix of branch reference names.
	HeadsRefPrefix = "refs/heads/"
)

// Wire protocol service names, sent on the request line of a connection.
const (
	// UploadPackService serves fetch and clone sessions.
	UploadPackService = "git-upload-pack"

	// ReceivePackService serves push sessions.
	ReceivePackService = "git-receive-pack"
)

// Default network values used when the configuration file omits them.
const (
	DefaultIP             = "127.0.0.1"
	DefaultPort           = 9418
	DefaultTimeoutSeconds = 30
)

// File system permissions for created files and directories.
const (
	// DirPerms grants read/write/execute to owner, read/execute to others (rwxr-xr-x).
	DirPerms os.FileMode = 0755

	// FilePerms grants read/write to owner, read-only to others (rw-r--r--).
	FilePerms os.FileMode = 0644
)

// Cryptographic hash properties.
const (
	// HashByteLength is byte length of SHA-1 hash (20 bytes).
	HashByteLength = 20

	// HashStringLength is hex string length of SHA-1 hash (40 characters).
	HashStringLength = 40

	// HashDirPrefixLength is subdirectory prefix length under objects/ (2 characters).
	HashDirPrefixLength = 2
)

// Object format constants.
const (
	// NullByte separates header from content in stored objects.
	NullByte = '\x00'
)

// Time conversion constants for timezone formatting.
const (
	SecondsPerHour   = 3600
	SecondsPerMinute = 60
)
