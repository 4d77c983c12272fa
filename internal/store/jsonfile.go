package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nhle/todolist/internal/codec"
	"github.com/nhle/todolist/internal/model"
)

// JSONFileBackend keeps todos and credentials in two human-readable JSON
// files. Every save rewrites the whole file through a temp file and rename.
// There is no locking; two processes writing the same files can lose
// each other's updates.
type JSONFileBackend struct {
	TodosPath string
	UsersPath string
}

// NewJSONFileBackend returns a backend over the given files. Parent
// directories are created on first save.
func NewJSONFileBackend(todosPath, usersPath string) *JSONFileBackend {
	return &JSONFileBackend{TodosPath: todosPath, UsersPath: usersPath}
}

// credentialRecord is the on-disk shape of a credential. Older files
// stored the hash under "password"; it is read but never written.
type credentialRecord struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash,omitempty"`
	Password     string `json:"password,omitempty"`
}

// LoadTodos implements TodoBackend.
func (b *JSONFileBackend) LoadTodos(ctx context.Context) ([]codec.Record, error) {
	var recs []codec.Record
	if err := readJSONFile(b.TodosPath, &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []codec.Record{}
	}
	return recs, nil
}

// SaveTodos implements TodoBackend.
func (b *JSONFileBackend) SaveTodos(ctx context.Context, recs []codec.Record) error {
	if recs == nil {
		recs = []codec.Record{}
	}
	return writeJSONFile(b.TodosPath, recs)
}

// LoadCredentials implements CredentialBackend.
func (b *JSONFileBackend) LoadCredentials(ctx context.Context) ([]model.Credential, error) {
	var recs []credentialRecord
	if err := readJSONFile(b.UsersPath, &recs); err != nil {
		return nil, err
	}
	creds := make([]model.Credential, 0, len(recs))
	for _, r := range recs {
		hash := r.PasswordHash
		if hash == "" {
			hash = r.Password
		}
		creds = append(creds, model.Credential{Username: r.Username, PasswordHash: hash})
	}
	return creds, nil
}

// SaveCredentials implements CredentialBackend.
func (b *JSONFileBackend) SaveCredentials(ctx context.Context, creds []model.Credential) error {
	recs := make([]credentialRecord, 0, len(creds))
	for _, c := range creds {
		recs = append(recs, credentialRecord{Username: c.Username, PasswordHash: c.PasswordHash})
	}
	return writeJSONFile(b.UsersPath, recs)
}

// Close implements Backend. Files are not held open between calls.
func (b *JSONFileBackend) Close() error { return nil }

// readJSONFile decodes path into dst. A missing or empty file leaves dst
// untouched; unparsable content returns ErrCorrupt.
func readJSONFile(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &StorageError{Op: "read", Path: path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
	}
	return nil
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &StorageError{Op: "marshal", Path: path, Err: err}
	}
	data = append(data, '\n')
	if err := writeFileAtomic(path, data, 0o600); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// writeFileAtomic replaces path with data so readers see either the old
// or the new contents, never a partial write.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	// Some filesystems reject fsync on directories; the rename already happened.
	_ = f.Sync()
	return nil
}
