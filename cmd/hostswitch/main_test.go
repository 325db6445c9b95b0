package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/OpenGG/hostswitch/internal/cli"
	"github.com/OpenGG/hostswitch/internal/config"
)

const (
	testHome  = "/home/test"
	testHosts = "/etc/hosts"
)

type testEnv struct {
	environment
	out *bytes.Buffer
	err *bytes.Buffer
}

func newTestEnv(t *testing.T, vars map[string]string) testEnv {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testHosts, []byte("127.0.0.1 localhost\n"), 0o644))
	if vars == nil {
		vars = map[string]string{}
	}
	if _, ok := vars[config.EnvNoUpdateCheck]; !ok {
		vars[config.EnvNoUpdateCheck] = "1"
	}
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return testEnv{
		environment: environment{
			fs:       fs,
			stdout:   out,
			stderr:   errOut,
			getenv:   func(k string) string { return vars[k] },
			homeDir:  func() (string, error) { return testHome, nil },
			prompter: cli.NewPromptUIWithIO(strings.NewReader(""), &bytes.Buffer{}),
			elevated: func() bool { return false },
		},
		out: out,
		err: errOut,
	}
}

func (e testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	e.out.Reset()
	e.err.Reset()
	return execute(context.Background(), args, e.environment)
}

func writeConfig(t *testing.T, e testEnv, root, body string) {
	t.Helper()
	require.NoError(t, e.fs.MkdirAll(root, 0o700))
	require.NoError(t, afero.WriteFile(e.fs, filepath.Join(root, "config.toml"), []byte(body), 0o600))
}

func TestDefaultRootAndConfigFile(t *testing.T) {
	e := newTestEnv(t, nil)
	require.NoError(t, e.run(t, "--hosts-file", testHosts, "list"))
	require.Contains(t, e.out.String(), "No profiles found")

	root := filepath.Join(testHome, ".hostswitch")
	for _, p := range []string{"profiles", "backups", "config.toml"} {
		ok, err := afero.Exists(e.fs, filepath.Join(root, p))
		require.NoError(t, err)
		require.True(t, ok, "expected %s under the config root", p)
	}
}

func TestHomeFromEnvironment(t *testing.T) {
	e := newTestEnv(t, map[string]string{config.EnvHome: "/srv/hs"})
	require.NoError(t, e.run(t, "--hosts-file", testHosts, "create", "dev"))

	ok, err := afero.Exists(e.fs, "/srv/hs/profiles/dev.hosts")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSwitchWithoutElevation(t *testing.T) {
	e := newTestEnv(t, nil)
	root := "/cfg"
	writeConfig(t, e, root, "require_elevation = false\nhosts_path = \"/etc/hosts\"\n")

	require.NoError(t, e.run(t, "--config-dir", root, "create", "dev"))
	require.NoError(t, afero.WriteFile(e.fs, filepath.Join(root, "profiles", "dev.hosts"), []byte("10.0.0.1 dev.local\n"), 0o600))

	require.NoError(t, e.run(t, "--config-dir", root, "switch", "dev"))
	require.Contains(t, e.out.String(), "Switched to profile 'dev'.")

	live, err := afero.ReadFile(e.fs, testHosts)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1 dev.local\n", string(live))

	require.NoError(t, e.run(t, "--config-dir", root, "status"))
	require.Contains(t, e.out.String(), "Active profile: dev")
}

func TestFailedCommandReturnsErrFailed(t *testing.T) {
	e := newTestEnv(t, nil)
	err := e.run(t, "--config-dir", "/cfg", "--hosts-file", testHosts, "switch", "ghost")
	require.True(t, errors.Is(err, cli.ErrFailed), "got %v", err)
	require.Contains(t, e.err.String(), "Profile 'ghost' does not exist.")
}

func TestInvalidConfigIsReported(t *testing.T) {
	e := newTestEnv(t, nil)
	writeConfig(t, e, "/cfg", "require_elevation = \"maybe\n")
	err := e.run(t, "--config-dir", "/cfg", "list")
	require.ErrorContains(t, err, "reading config from /cfg/config.toml")
}

func TestUnknownConfigKeysAreLogged(t *testing.T) {
	e := newTestEnv(t, nil)
	writeConfig(t, e, "/cfg", "colour = true\n")
	require.NoError(t, e.run(t, "--config-dir", "/cfg", "--hosts-file", testHosts, "list"))
	require.Contains(t, e.err.String(), "ignoring unknown config keys")
}

func TestVerboseLogsCarryOperationID(t *testing.T) {
	e := newTestEnv(t, nil)
	require.NoError(t, e.run(t, "-v", "--config-dir", "/cfg", "--hosts-file", testHosts, "list"))
	require.Contains(t, e.err.String(), "level=DEBUG")
	require.Contains(t, e.err.String(), "op=")
}

func TestBootstrapSkipsUpdatesWhenDisabled(t *testing.T) {
	e := newTestEnv(t, nil)
	session, err := bootstrap(e.environment, cli.GlobalOptions{ConfigDir: "/cfg", HostsFile: testHosts})
	require.NoError(t, err)
	require.Nil(t, session.Updates)

	e = newTestEnv(t, map[string]string{config.EnvNoUpdateCheck: ""})
	session, err = bootstrap(e.environment, cli.GlobalOptions{ConfigDir: "/cfg", HostsFile: testHosts})
	require.NoError(t, err)
	require.NotNil(t, session.Updates)
}

func TestBootstrapSkipsUpdatesWhenElevated(t *testing.T) {
	e := newTestEnv(t, map[string]string{config.EnvNoUpdateCheck: "", "SUDO_USER": "alice"})
	session, err := bootstrap(e.environment, cli.GlobalOptions{ConfigDir: "/cfg", HostsFile: testHosts})
	require.NoError(t, err)
	require.Nil(t, session.Updates)
}
