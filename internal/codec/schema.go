package codec

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/todos.schema.json
var todosSchemaSource string

//go:embed schemas/users.schema.json
var usersSchemaSource string

// ValidationError is one schema violation inside a backing file.
type ValidationError struct {
	Path string // dotted path, e.g. "[0].priority"
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult collects every problem found in a backing file.
type ValidationResult struct {
	Valid   bool
	Records int
	Errors  []error
}

var compileSchemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	out := make(map[string]*jsonschema.Schema, 2)
	for name, src := range map[string]string{
		"todos.schema.json": todosSchemaSource,
		"users.schema.json": usersSchemaSource,
	} {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
			return nil, fmt.Errorf("load schema %s: %w", name, err)
		}
		s, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
})

// ValidateTodosFile checks the contents of a todos file.
func ValidateTodosFile(data []byte) *ValidationResult {
	return validate("todos.schema.json", data, nil)
}

// ValidateUsersFile checks the contents of a users file. Besides the schema
// it reports usernames that appear more than once.
func ValidateUsersFile(data []byte) *ValidationResult {
	return validate("users.schema.json", data, duplicateUsernames)
}

func validate(schemaName string, data []byte, extra func([]interface{}) []error) *ValidationResult {
	result := &ValidationResult{Valid: true}

	schemas, err := compileSchemas()
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err)
		return result
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{Err: fmt.Errorf("parse: %w", err)})
		return result
	}
	if arr, ok := doc.([]interface{}); ok {
		result.Records = len(arr)
		if extra != nil {
			if errs := extra(arr); len(errs) > 0 {
				result.Valid = false
				result.Errors = append(result.Errors, errs...)
			}
		}
	}

	if err := schemas[schemaName].Validate(doc); err != nil {
		result.Valid = false
		appendSchemaErrors(result, err)
	}
	return result
}

func duplicateUsernames(arr []interface{}) []error {
	seen := make(map[string]int, len(arr))
	var errs []error
	for i, v := range arr {
		obj, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		name, ok := obj["username"].(string)
		if !ok {
			continue
		}
		if first, dup := seen[name]; dup {
			errs = append(errs, &ValidationError{
				Path: fmt.Sprintf("[%d].username", i),
				Err:  fmt.Errorf("duplicate of [%d].username %q", first, name),
			})
			continue
		}
		seen[name] = i
	}
	return errs
}

func appendSchemaErrors(result *ValidationResult, err error) {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Errors = append(result.Errors, err)
		return
	}
	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Path: jsonPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

// jsonPointerToPath turns "/0/priority" into "[0].priority".
func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	var b strings.Builder
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			fmt.Fprintf(&b, "[%d]", idx)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
