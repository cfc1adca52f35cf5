package cli

import (
	"errors"
	"fmt"

	"todosync-cli/internal/engine"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

// errPlacement reports conflicting placement flags.
var errPlacement = errors.New("provide at most one of --before, --after, --first or --last")

// describe adds a hint to errors a user can act on.
func describe(err error) error {
	switch {
	case err == nil:
		return nil
	case engine.IsNetwork(err):
		return fmt.Errorf("%w (is the list service running? see `todosync serve`)", err)
	case errors.Is(err, engine.ErrNoList):
		return fmt.Errorf("%w (pass a list slug or run `todosync lists create <name>`)", err)
	default:
		return err
	}
}
