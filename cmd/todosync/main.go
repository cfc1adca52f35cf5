package main

import (
	"os"
	"strings"

	"todosync-cli/internal/cli"
	"todosync-cli/internal/store"
)

// isListSlug matches generated list slugs: SlugLen characters of [A-Z0-9].
func isListSlug(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != store.SlugLen {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// rewriteListSlugArgs makes `todosync <slug>` work like `todosync open <slug>`.
// Cobra treats the first positional token as a subcommand, so argv is
// rewritten before parsing. Persistent flags may come first.
func rewriteListSlugArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	// Unknown flags are skipped without their value so a slug is never
	// consumed by mistake.
	valueFlags := map[string]bool{
		"--server":    true,
		"--local-db":  true,
		"--format":    true,
		"--log-level": true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	insertOpen := func(i int) []string {
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:i]...)
		out = append(out, "open")
		out = append(out, argv[i:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isListSlug(argv[i+1]) {
				return insertOpen(i)
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}

		if isListSlug(a) {
			return insertOpen(i)
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteListSlugArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
