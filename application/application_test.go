package application

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/stackjson-go/pkg/stackjson"
)

const testConfig = `
stackjson:
  max-depth: 12
  naming: camel
  skip-null-on-write: true
logging:
  cli:
    level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestApplication_ExplicitPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/does/not/exist.yaml")
	app := New(WithConfigPath(writeConfig(t, testConfig)))
	require.NoError(t, app.Run())

	assert.Equal(t, 12, app.FileConfig().MaxDepth)
	assert.Equal(t, stackjson.DefaultBufferSize, app.FileConfig().BufferSize)
	assert.NotNil(t, app.Logger("cli"))
	assert.NotNil(t, app.Logger("unknown"))

	opts, err := app.SerializerOptions()
	require.NoError(t, err)
	s, err := stackjson.New(opts...)
	require.NoError(t, err)
	type greeting struct {
		Text  string
		Extra *string
	}
	out, err := stackjson.MarshalString(s, greeting{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hi"}`, out)
}

func TestApplication_EnvPath(t *testing.T) {
	t.Setenv(EnvConfigPath, writeConfig(t, "stackjson:\n  buffer-size: 1024\n"))
	t.Setenv(envLogPrefix+"ENABLE", "false")
	app := New()
	require.NoError(t, app.Run())
	assert.Equal(t, 1024, app.FileConfig().BufferSize)
	assert.True(t, app.Config().IsSet("stackjson"))
}

func TestApplication_MissingFiles(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Chdir(t.TempDir())
	app := New()
	require.NoError(t, app.Run())
	assert.Equal(t, stackjson.DefaultFileConfig(), app.FileConfig())

	assert.Error(t, New(WithConfigPath("/does/not/exist.yaml")).Run())

	bad := New(WithConfigPath(writeConfig(t, "stackjson:\n  naming: snake\n")))
	require.NoError(t, bad.Run())
	_, err := bad.SerializerOptions()
	assert.Error(t, err)
}

func TestGetenv(t *testing.T) {
	t.Setenv("STACKJSON_TEST_BOOL", "yes")
	assert.True(t, getenvBool("STACKJSON_TEST_BOOL", false))
	t.Setenv("STACKJSON_TEST_BOOL", "maybe")
	assert.False(t, getenvBool("STACKJSON_TEST_BOOL", false))
	assert.Equal(t, "d", getenvDefault("STACKJSON_TEST_UNSET", "d"))
}
