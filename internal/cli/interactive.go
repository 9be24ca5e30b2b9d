package cli

import "os"

// IsNonInteractive reports whether prompts should be skipped and defaults used.
func IsNonInteractive() bool {
	if nonInteractive {
		return true
	}
	if _, ok := os.LookupEnv("TMPLBIND_NON_INTERACTIVE"); ok {
		return true
	}
	return !hasTTY()
}
