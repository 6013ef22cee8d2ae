package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/conicdev/conic/internal/probfile"
)

// loadProblem reads and compiles a problem file, reporting failures
// through the formatter. The returned error carries the exit code, so
// commands can return it unwrapped.
func loadProblem(formatter *OutputFormatter, path string) (*probfile.File, error) {
	file, err := probfile.Load(path)
	if err == nil {
		return file, nil
	}

	code := ErrCodeBadProblem
	if errors.Is(err, os.ErrNotExist) {
		code = ErrCodeNotFound
	}

	var details interface{}
	var cerr *probfile.CompileError
	if errors.As(err, &cerr) {
		d := map[string]string{"field": cerr.Field}
		if cerr.Pos.IsValid() {
			d["position"] = fmt.Sprintf("%s:%d:%d", cerr.Pos.Filename(), cerr.Pos.Line(), cerr.Pos.Column())
		}
		details = d
	}

	_ = formatter.Error(code, err.Error(), details)
	return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, err.Error()))
}
