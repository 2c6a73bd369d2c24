// Package modinfo locates the Go module a directory belongs to and reads
// its metadata.
package modinfo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/packages"
)

// ErrNoModule is returned when no go.mod is found above a directory.
var ErrNoModule = errors.New("modinfo: no go.mod found")

// Info describes the module and package at a directory.
type Info struct {
	// Path is the module path from go.mod.
	Path string
	// Dir is the module root.
	Dir string
	// GoVersion is the go directive of go.mod.
	GoVersion string
	// PackageName is the name of the package in the directory, when known.
	PackageName string
}

// Load asks the go command about the package in dir. When that fails, for
// example because no go binary is available, it falls back to reading
// go.mod directly.
func Load(ctx context.Context, dir string) (Info, error) {
	info, err := loadPackage(ctx, dir)
	if err == nil {
		return info, nil
	}
	fallback, ferr := FromGoMod(dir)
	if ferr != nil {
		return Info{}, fmt.Errorf("modinfo: load %s: %w", dir, errors.Join(err, ferr))
	}
	return fallback, nil
}

func loadPackage(ctx context.Context, dir string) (Info, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedModule,
		Dir:     dir,
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return Info{}, err
	}
	if len(pkgs) == 0 {
		return Info{}, fmt.Errorf("no packages found")
	}
	pkg := pkgs[0]
	if pkg.Module == nil {
		return Info{}, fmt.Errorf("package %s is not in a module", pkg.PkgPath)
	}
	info := Info{
		Path:        pkg.Module.Path,
		Dir:         pkg.Module.Dir,
		GoVersion:   pkg.Module.GoVersion,
		PackageName: pkg.Name,
	}
	if info.Dir == "" && pkg.Module.GoMod != "" {
		info.Dir = filepath.Dir(pkg.Module.GoMod)
	}
	return info, nil
}

// FromGoMod finds the nearest go.mod at or above dir and parses it. The
// package name is left empty.
func FromGoMod(dir string) (Info, error) {
	root, err := FindRoot(dir)
	if err != nil {
		return Info{}, err
	}
	path := filepath.Join(root, "go.mod")
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return Info{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.Module == nil {
		return Info{}, fmt.Errorf("%s: no module directive", path)
	}
	info := Info{Path: f.Module.Mod.Path, Dir: root}
	if f.Go != nil {
		info.GoVersion = f.Go.Version
	}
	return info, nil
}

// FindRoot returns the directory holding the nearest go.mod at or above dir.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for d := abs; ; {
		if fi, err := os.Stat(filepath.Join(d, "go.mod")); err == nil && !fi.IsDir() {
			return d, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", fmt.Errorf("%w in %s or any parent", ErrNoModule, abs)
		}
		d = parent
	}
}
