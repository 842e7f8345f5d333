// Package resolver resolves import paths in a parsed program to stdlib
// namespaces, source files on disk, or installed packages.
//
// Resolution order is stdlib first, then relative file, then package.
// Recursive resolution follows file and package imports and detects
// cycles via the in-flight resolution stack.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/daslang/dasl/ast"
)

// Known stdlib namespaces. These must match the runtime's namespace
// dispatch table.
var knownStdlib = map[string]struct{}{
	"add_sol":              {},
	"admin":                {},
	"agent":                {},
	"ai":                   {},
	"aml":                  {},
	"auth":                 {},
	"chain":                {},
	"cloudadmin":           {},
	"config":               {},
	"cross_chain_security": {},
	"crypto":               {},
	"crypto_signatures":    {},
	"database":             {},
	"desktop":              {},
	"iot":                  {},
	"key":                  {},
	"kyc":                  {},
	"log":                  {},
	"mobile":               {},
	"mold":                 {},
	"oracle":               {},
	"secure_auth":          {},
	"service":              {},
	"sync":                 {},
	"test":                 {},
	"trust":                {},
	"web":                  {},
}

// StdlibNamespaces returns the known stdlib namespaces in sorted order.
func StdlibNamespaces() []string {
	names := make([]string, 0, len(knownStdlib))
	for name := range knownStdlib {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	ErrUnknownModule       = errors.New("unknown module")
	ErrFileNotFound        = errors.New("file not found")
	ErrCycleDetected       = errors.New("import cycle detected")
	ErrNoEntryPath         = errors.New("relative import requires an entry path")
	ErrPackageNotInstalled = errors.New("package not installed")
)

// Kind classifies what an import path resolved to.
type Kind int

const (
	// KindStdlib is a built-in namespace such as stdlib::chain.
	KindStdlib Kind = iota
	// KindFile is a source file on disk, resolved to an absolute path.
	KindFile
	// KindPackage is an installed package dependency.
	KindPackage
)

func (k Kind) String() string {
	switch k {
	case KindStdlib:
		return "stdlib"
	case KindFile:
		return "file"
	case KindPackage:
		return "package"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ResolvedImport is the result of resolving a single import path.
type ResolvedImport struct {
	Kind Kind

	// Namespace is set for stdlib imports ("chain" for stdlib::chain).
	Namespace string

	// Path is the absolute file path for file imports, or the package
	// root directory for package imports.
	Path string

	// Package is the package name for package imports.
	Package string
}

// Entry pairs a resolved import with its declaration so later binding
// stages can map aliases back to sources.
type Entry struct {
	Import   *ast.Import
	Resolved ResolvedImport
}

// ParseFunc parses dependency sources during recursive resolution.
type ParseFunc func(source string) (*ast.Program, error)

// Option is a configuration function for a Resolver.
type Option func(*Resolver)

// WithRootDir sets the project root directory used as the base for
// relative imports when no entry path is known.
func WithRootDir(dir string) Option {
	return func(r *Resolver) {
		r.rootDir = dir
	}
}

// WithDependencies supplies the installed package table, mapping package
// name to package root directory.
func WithDependencies(deps map[string]string) Option {
	return func(r *Resolver) {
		r.dependencies = deps
	}
}

// WithLogger sets the logger used for resolution tracing. The default
// logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = logger
	}
}

// Resolver resolves import paths for parsed programs. A zero-option
// Resolver handles stdlib imports only; file and package resolution need
// a root directory or entry path and a dependency table.
type Resolver struct {
	parse        ParseFunc
	rootDir      string
	dependencies map[string]string
	log          zerolog.Logger
}

// New returns a Resolver that parses dependency files with parse.
func New(parse ParseFunc, options ...Option) *Resolver {
	r := &Resolver{
		parse: parse,
		log:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Resolve resolves one import path relative to currentDir. An empty
// currentDir falls back to the configured root directory.
func (r *Resolver) Resolve(importPath, currentDir string) (ResolvedImport, error) {
	path := strings.TrimSpace(importPath)

	if name, ok := strings.CutPrefix(path, "stdlib::"); ok {
		namespace, _, _ := strings.Cut(strings.TrimSpace(name), "::")
		if namespace == "" {
			return ResolvedImport{}, fmt.Errorf("%w: %s", ErrUnknownModule, importPath)
		}
		if _, ok := knownStdlib[namespace]; !ok {
			return ResolvedImport{}, fmt.Errorf("%w: unknown stdlib namespace %q (known: %s, ...)",
				ErrUnknownModule, namespace, strings.Join(StdlibNamespaces()[:5], ", "))
		}
		r.log.Debug().Str("namespace", namespace).Msg("resolved stdlib import")
		return ResolvedImport{Kind: KindStdlib, Namespace: namespace}, nil
	}

	// Relative paths and anything that looks like a file path resolve
	// against the importing file's directory.
	looksLikeFile := strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") ||
		strings.Contains(path, "/") || strings.HasSuffix(path, ".dasl")
	if looksLikeFile {
		resolved, err := r.resolveFile(path, currentDir)
		if err != nil {
			return ResolvedImport{}, err
		}
		r.log.Debug().Str("path", resolved).Msg("resolved file import")
		return ResolvedImport{Kind: KindFile, Path: resolved}, nil
	}

	if root, ok := r.dependencies[path]; ok {
		r.log.Debug().Str("package", path).Str("root", root).Msg("resolved package import")
		return ResolvedImport{Kind: KindPackage, Package: path, Path: root}, nil
	}
	return ResolvedImport{}, fmt.Errorf("%w: package %q is not declared as a dependency",
		ErrPackageNotInstalled, path)
}

func (r *Resolver) resolveFile(path, currentDir string) (string, error) {
	base := currentDir
	if base == "" {
		base = r.rootDir
	}
	if base == "" {
		return "", ErrNoEntryPath
	}
	joined := filepath.Join(base, path)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, joined)
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, abs)
	}
	return abs, nil
}

// ResolveProgram resolves every import in a program without following
// dependency files. All failures are collected and returned together.
func (r *Resolver) ResolveProgram(program *ast.Program, entryPath string) ([]Entry, error) {
	currentDir := ""
	if entryPath != "" {
		currentDir = filepath.Dir(entryPath)
	}

	var entries []Entry
	var result *multierror.Error
	for _, stmt := range program.Stmts {
		imp, ok := stmt.(*ast.Import)
		if !ok {
			continue
		}
		resolved, err := r.Resolve(imp.Path, currentDir)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		entries = append(entries, Entry{Import: imp, Resolved: resolved})
	}
	return entries, result.ErrorOrNil()
}

// ResolveAll resolves the program's imports and recursively follows file
// and package imports, parsing each dependency and resolving its imports
// in turn. Entries are ordered dependencies-first. A file that is already
// on the resolution stack is a cycle and aborts with the full chain in
// the error.
func (r *Resolver) ResolveAll(program *ast.Program, entryPath string) ([]Entry, error) {
	var entries []Entry
	var stack []string
	if err := r.resolveRecursive(program, entryPath, &stack, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Resolver) resolveRecursive(program *ast.Program, currentFile string, stack *[]string, entries *[]Entry) error {
	currentDir := ""
	if currentFile != "" {
		currentDir = filepath.Dir(currentFile)
	}

	for _, stmt := range program.Stmts {
		imp, ok := stmt.(*ast.Import)
		if !ok {
			continue
		}
		resolved, err := r.Resolve(imp.Path, currentDir)
		if err != nil {
			return err
		}

		switch resolved.Kind {
		case KindFile:
			if err := r.followFile(resolved.Path, stack, entries); err != nil {
				return err
			}
		case KindPackage:
			entry, err := packageEntryPath(resolved.Path)
			if err != nil {
				return err
			}
			if err := r.followFile(entry, stack, entries); err != nil {
				return err
			}
		}
		*entries = append(*entries, Entry{Import: imp, Resolved: resolved})
	}
	return nil
}

func (r *Resolver) followFile(path string, stack *[]string, entries *[]Entry) error {
	for _, onStack := range *stack {
		if onStack == path {
			chain := append(append([]string{}, *stack...), path)
			return fmt.Errorf("%w: %s", ErrCycleDetected, strings.Join(chain, " -> "))
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	program, err := r.parse(string(source))
	if err != nil {
		return fmt.Errorf("parse error in %s: %w", path, err)
	}

	*stack = append(*stack, path)
	err = r.resolveRecursive(program, path, stack, entries)
	*stack = (*stack)[:len(*stack)-1]
	return err
}

// packageEntryPath locates a package's entry file, main.dasl or
// lib.dasl, under its root directory.
func packageEntryPath(root string) (string, error) {
	for _, name := range []string{"main.dasl", "lib.dasl"} {
		candidate := filepath.Join(root, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFileNotFound, filepath.Join(root, "main.dasl"))
}
