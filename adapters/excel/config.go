package excel

// Config holds spreadsheet loading options
type Config struct {
	// Sheet to read; empty means the first worksheet
	Sheet string
	// TrimHeaders strips surrounding whitespace from header cells
	TrimHeaders bool
}

// DefaultConfig returns the loader defaults
func DefaultConfig() Config {
	return Config{
		TrimHeaders: true,
	}
}
