package ports

// FileSystem abstracts the files read and written around a pipeline run:
// saved frames, stage outputs, contact sheets and summaries.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the file at path with data, creating parent
	// directories. Readers never observe a partially written file.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)

	// Glob returns the files matching pattern in lexical order. A pattern
	// without meta characters matches itself if the file exists.
	Glob(pattern string) ([]string, error)
}
