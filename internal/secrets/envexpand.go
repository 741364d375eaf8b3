package secrets

import "os"

// osExpand expands ${VAR} references against the process environment,
// leaving unmatched references as empty strings like os.Expand does.
func osExpand(s string) string {
	return os.Expand(s, os.Getenv)
}
