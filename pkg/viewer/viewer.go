// Package viewer hands downloaded images to an external program.
package viewer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"nekodl/internal/downloader"
	"nekodl/pkg/logger"
)

// Launcher opens images for the user
type Launcher interface {
	Launch(ctx context.Context, dir string, images []string) error
}

// CommandLauncher runs a user-configured program with every image as an
// argument, e.g. "feh --scale-down" or "imv"
type CommandLauncher struct {
	name string
	args []string
	run  func(*exec.Cmd) error
}

// NewCommandLauncher parses command into a program and leading arguments
func NewCommandLauncher(command string) (*CommandLauncher, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty viewer command")
	}
	return &CommandLauncher{name: fields[0], args: fields[1:], run: (*exec.Cmd).Run}, nil
}

func (c *CommandLauncher) Launch(ctx context.Context, dir string, images []string) error {
	if len(images) == 0 {
		return nil
	}
	args := append(append([]string{}, c.args...), images...)
	cmd := exec.CommandContext(ctx, c.name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return c.run(cmd)
}

// OpenerLauncher asks the desktop to open the output directory
type OpenerLauncher struct {
	name string
	args []string
	run  func(*exec.Cmd) error
}

// NewOpenerLauncher picks the platform's opener. It returns nil on
// platforms without one.
func NewOpenerLauncher() *OpenerLauncher {
	var name string
	var args []string

	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		name = "xdg-open"
	case "darwin":
		name = "open"
	case "windows":
		name, args = "cmd", []string{"/c", "start", ""}
	default:
		return nil
	}
	return &OpenerLauncher{name: name, args: args, run: (*exec.Cmd).Run}
}

func (o *OpenerLauncher) Launch(ctx context.Context, dir string, images []string) error {
	if len(images) == 0 {
		return nil
	}
	args := append(append([]string{}, o.args...), dir)
	return o.run(exec.CommandContext(ctx, o.name, args...))
}

// New returns a CommandLauncher when command is set and the platform
// opener otherwise
func New(command string) (Launcher, error) {
	if strings.TrimSpace(command) != "" {
		return NewCommandLauncher(command)
	}
	if opener := NewOpenerLauncher(); opener != nil {
		return opener, nil
	}
	return nil, fmt.Errorf("no image viewer available on %s: set viewer.command", runtime.GOOS)
}

// View lists the images in dir and launches l on them
func View(ctx context.Context, l Launcher, dir string) error {
	images, err := Images(dir)
	if err != nil {
		return err
	}

	log := logger.WithFields(map[string]interface{}{"component": "viewer", "dir": dir})
	log.DebugWithFields("launching viewer", map[string]interface{}{"images": len(images)})

	if len(images) == 0 {
		log.Info("no images to view")
		return nil
	}
	return l.Launch(ctx, dir, images)
}

// Images returns the downloadable files in dir, ordered by numeric id
// and then page so that "123_p2.png" comes before "123_p10.png"
func Images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(e.Name())), ".")
		if downloader.AllowedExtensions[ext] {
			names = append(names, e.Name())
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		return less(sortKey(names[i]), sortKey(names[j]))
	})

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

type keyPart struct {
	num   int
	text  string
	isNum bool
}

func part(s string) keyPart {
	if n, err := strconv.Atoi(s); err == nil {
		return keyPart{num: n, isNum: true}
	}
	return keyPart{text: s}
}

// sortKey splits "<id>_p<page>.<ext>" into comparable parts
func sortKey(name string) [2]keyPart {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	id, page, found := strings.Cut(stem, "_")
	if !found {
		return [2]keyPart{part(id), {isNum: true}}
	}
	if _, after, ok := strings.Cut(page, "p"); ok {
		page = after
	}
	return [2]keyPart{part(id), part(page)}
}

func less(a, b [2]keyPart) bool {
	for i := range a {
		x, y := a[i], b[i]
		switch {
		case x.isNum && y.isNum:
			if x.num != y.num {
				return x.num < y.num
			}
		case x.isNum != y.isNum:
			return x.isNum
		default:
			if x.text != y.text {
				return x.text < y.text
			}
		}
	}
	return false
}
