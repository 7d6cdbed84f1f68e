package exitcodes

// Exit codes for tempsweep
// Per-item delete failures still end in Success; the summary reports them.
const (
	Success = 0 // Run completed, help printed
	Aborted = 2 // Bad flags or config, refused root, interrupted, unexpected error
)
