package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/nhle/todolist/internal/codec"
	"github.com/nhle/todolist/internal/model"
)

var errCheckFailed = errors.New("data files failed validation")

func (a *App) cmdCheck(ctx context.Context, args []string) error {
	flags := a.newFlagSet("check")
	if err := a.parse(flags, args); err != nil {
		return err
	}
	if a.cfg.Storage.Backend != model.BackendJSON {
		return usagef("check only applies to the json backend (current: %s)", a.cfg.Storage.Backend)
	}

	todosOK, err := a.checkFile(a.cfg.TodosPath(), codec.ValidateTodosFile)
	if err != nil {
		return err
	}
	usersOK, err := a.checkFile(a.cfg.UsersPath(), codec.ValidateUsersFile)
	if err != nil {
		return err
	}
	if !todosOK || !usersOK {
		return errCheckFailed
	}
	return nil
}

// checkFile validates one backing file and reports the result. Missing
// and blank files pass, as the stores open them as empty.
func (a *App) checkFile(path string, validate func([]byte) *codec.ValidationResult) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			a.ok("%s: missing, treated as empty", path)
			return true, nil
		}
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		a.ok("%s: empty", path)
		return true, nil
	}

	result := validate(data)
	if result.Valid {
		a.ok("%s: %d records", path, result.Records)
		return true, nil
	}
	a.fail(fmt.Errorf("%s: %d problems", path, len(result.Errors)))
	for _, e := range result.Errors {
		fmt.Fprintf(a.errOut, "    %v\n", e)
	}
	return false, nil
}
