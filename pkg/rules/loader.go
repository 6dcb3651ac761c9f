package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentParses bounds the number of rule files parsed at once.
const maxConcurrentParses = 8

// ListFiles returns the rule files (*.yaml, *.yml) directly under dir in
// lexical order.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadDirectory parses every rule file under dir concurrently. Errors from
// all files are merged into a single *ErrorList; on success the rule sets
// are returned sorted by provider. Two files declaring the same provider are
// an error.
func LoadDirectory(ctx context.Context, dir string) ([]*RuleSet, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	return LoadFiles(ctx, files)
}

// LoadFiles parses the given rule files concurrently. See LoadDirectory.
func LoadFiles(ctx context.Context, files []string) ([]*RuleSet, error) {
	if len(files) == 0 {
		return nil, &Error{Type: ErrorTypeIO, Message: "No rule files found"}
	}

	sets := make([]*RuleSet, len(files))
	errs := make([]error, len(files))

	parser := NewParser()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentParses)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sets[i], errs[i] = parser.Parse(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := NewErrorList()
	for _, err := range errs {
		if err == nil {
			continue
		}
		var el *ErrorList
		var e *Error
		switch {
		case errors.As(err, &el):
			all.Merge(el)
		case errors.As(err, &e):
			all.Add(e)
		default:
			return nil, err
		}
	}

	seen := make(map[string]*RuleSet, len(sets))
	for _, rs := range sets {
		if rs == nil {
			continue
		}
		if prev, dup := seen[rs.Provider]; dup {
			all.AddError(ErrorTypeStructural,
				fmt.Sprintf("Provider %q is also declared in %s", rs.Provider, prev.SourceFile),
				rs.Location)
			continue
		}
		seen[rs.Provider] = rs
	}
	if all.HasErrors() {
		return nil, all
	}

	sort.Slice(sets, func(i, j int) bool { return sets[i].Provider < sets[j].Provider })
	return sets, nil
}
