package viewer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
}

func TestImagesOrdering(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"123_p10.png", "123_p2.png", "99.jpg", "abc.gif",
		"123.jpg", "notes.txt", "partial.png.tmp",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0755))

	images, err := Images(dir)
	require.NoError(t, err)

	var names []string
	for _, p := range images {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"99.jpg", "123.jpg", "123_p2.png", "123_p10.png", "abc.gif"}, names)
}

func TestImagesMissingDir(t *testing.T) {
	_, err := Images(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCommandLauncher(t *testing.T) {
	l, err := NewCommandLauncher("feh --scale-down")
	require.NoError(t, err)

	var got *exec.Cmd
	l.run = func(cmd *exec.Cmd) error {
		got = cmd
		return nil
	}

	require.NoError(t, l.Launch(context.Background(), "/out", []string{"/out/a.png", "/out/b.jpg"}))
	require.NotNil(t, got)
	assert.Equal(t, []string{"feh", "--scale-down", "/out/a.png", "/out/b.jpg"}, got.Args)

	got = nil
	require.NoError(t, l.Launch(context.Background(), "/out", nil))
	assert.Nil(t, got)
}

func TestNewCommandLauncherRejectsEmpty(t *testing.T) {
	_, err := NewCommandLauncher("   ")
	assert.Error(t, err)
}

func TestOpenerLauncherOpensDirectory(t *testing.T) {
	o := &OpenerLauncher{name: "xdg-open"}
	var got *exec.Cmd
	o.run = func(cmd *exec.Cmd) error {
		got = cmd
		return nil
	}

	require.NoError(t, o.Launch(context.Background(), "/out", []string{"/out/a.png"}))
	assert.Equal(t, []string{"xdg-open", "/out"}, got.Args)
}

type recordingLauncher struct {
	dir    string
	images []string
}

func (r *recordingLauncher) Launch(ctx context.Context, dir string, images []string) error {
	r.dir = dir
	r.images = images
	return nil
}

func TestView(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "2.png", "1.png")

	rec := &recordingLauncher{}
	require.NoError(t, View(context.Background(), rec, dir))
	assert.Equal(t, dir, rec.dir)
	assert.Equal(t, []string{filepath.Join(dir, "1.png"), filepath.Join(dir, "2.png")}, rec.images)
}

func TestViewEmptyDirSkipsLaunch(t *testing.T) {
	rec := &recordingLauncher{}
	require.NoError(t, View(context.Background(), rec, t.TempDir()))
	assert.Empty(t, rec.dir)
}

func TestNewPrefersCommand(t *testing.T) {
	l, err := New("imv")
	require.NoError(t, err)
	assert.IsType(t, &CommandLauncher{}, l)
}
