package bootstrap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	dir := t.TempDir()
	nzb := filepath.Join(dir, "show.nzb")

	pc, err := Parse([]string{"sabnzbd", "-f", dir, "-s", "[::1]:8085", "-d", "-p",
		"--https", "9095", "--force", "--testlog", nzb, "-l", "2", "--delay", "0.5", "stray"})
	require.NoError(t, err)

	assert.Equal(t, "sabnzbd", pc.Argv0)
	assert.Equal(t, filepath.Join(dir, "sabnzbd.yaml"), pc.ConfigFile)
	assert.True(t, pc.ConfigGiven)
	assert.Equal(t, "[::1]:8085", pc.Server)
	assert.True(t, pc.Daemon)
	assert.True(t, pc.Pause)
	assert.True(t, pc.Force)
	assert.True(t, pc.TestLog)
	assert.Equal(t, 9095, pc.HTTPSPort)
	assert.Equal(t, 500*time.Millisecond, pc.Delay)
	assert.Equal(t, []string{nzb}, pc.Uploads)
	assert.Equal(t, []string{"stray"}, pc.Args)
	assert.True(t, pc.Given(flagLogging))
	assert.False(t, pc.Given(flagWebLogging))
}

func TestParseOptionValueLooksLikeUpload(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "conf.zip")
	nzb := filepath.Join(dir, "show.nzb")

	pc, err := Parse([]string{"sabnzbd", "-df", cfg, "--server", "host.rar", nzb, "-s=x.nzb"})
	require.NoError(t, err)
	assert.Equal(t, cfg, pc.ConfigFile)
	assert.True(t, pc.Daemon)
	assert.Equal(t, "x.nzb", pc.Server)
	assert.Equal(t, []string{nzb}, pc.Uploads)

	pc, err = Parse([]string{"sabnzbd", "-p", nzb})
	require.NoError(t, err)
	assert.True(t, pc.Pause)
	assert.Equal(t, []string{nzb}, pc.Uploads)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		args []string
		err  error
	}{
		{[]string{"sabnzbd", "--bogus"}, ErrUsage},
		{[]string{"sabnzbd", "-l"}, ErrUsage},
		{[]string{"sabnzbd", "-l", "x"}, ErrUsage},
		{[]string{"sabnzbd", "-l", "3"}, ErrBadValue},
		{[]string{"sabnzbd", "-w", "-1"}, ErrBadValue},
		{[]string{"sabnzbd", "--https", "70000"}, ErrBadValue},
	}
	for _, c := range cases {
		_, err := Parse(c.args)
		assert.Truef(t, errors.Is(err, c.err), "%v: got %v", c.args, err)
	}
}

func TestParseDefaultConfig(t *testing.T) {
	pc, err := Parse([]string{"sabnzbd"})
	require.NoError(t, err)
	assert.False(t, pc.ConfigGiven)
	assert.True(t, filepath.IsAbs(pc.ConfigFile))
	assert.Equal(t, "sabnzbd.yaml", filepath.Base(pc.ConfigFile))
}

func TestRestartArgv(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "my.yaml")
	require.NoError(t, os.WriteFile(cfg, nil, 0600))

	pc, err := Parse([]string{"/usr/bin/sabnzbd", "-f", cfg, "-s", "0.0.0.0:8080", "-l", "2", "-p"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/usr/bin/sabnzbd", "-f", cfg}, pc.RestartArgv(false))
	assert.Equal(t, []string{"/usr/bin/sabnzbd", "-f", cfg, "-p"}, pc.RestartArgv(true))

	pc, err = Parse([]string{"sabnzbd", "-d", "--force", "--https", "9443", "--testlog"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sabnzbd", "-d", "--force", "--https", "9443", "--testlog"}, pc.RestartArgv(false))
}

func TestIsTestRelease(t *testing.T) {
	for v, want := range map[string]bool{
		"4.0.0":      false,
		"0.5.0Beta2": true,
		"0.5.0RC1":   true,
		"0.5.0-rc1":  true,
		"develop":    true,
	} {
		assert.Equal(t, want, IsTestRelease(v), v)
	}
}
