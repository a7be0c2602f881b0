package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32 // просто ID источника
	// FileFlags encodes metadata about a source file.
	FileFlags uint8 // метаданные
)

const (
	// FileVirtual indicates the file was added from memory (editor buffer, stdin, test).
	FileVirtual FileFlags = 1 << iota // добавлен не с диска
	FileHadBOM
)

// File captures metadata and content for a single source file.
// Content is kept byte-for-byte (CRLF is not normalized) so that offsets
// reported against it match the text the user has open.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // byte offsets of every '\n'
	Hash    [32]byte
	Flags   FileFlags
}

// Position is an editor position: zero-based line and zero-based column
// counted in UTF-16 code units.
type Position struct {
	Line      int
	Character int
}
