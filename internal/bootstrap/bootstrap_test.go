package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/mediaintake/internal/intake"
	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNew_MemoryBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Intake.ThumbnailFormat = "png"
	cfg.Intake.ThumbnailMaxDimension = 48

	rt, err := New(cfg, zaptest.NewLogger(t), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, rt.Close(context.Background())) })
	require.NotNil(t, rt.Refs)

	results, err := rt.Service.ProcessBatch(context.Background(),
		[]*media.File{media.NewFile("a.pdf", "application/pdf", []byte("%PDF-1.4"))}, intake.Options{})
	require.NoError(t, err)
	require.True(t, results[0].OK())
	require.NotNil(t, results[0].Thumbnail)
	assert.Equal(t, "image/png", results[0].Thumbnail.MimeType)
	assert.Equal(t, 2, rt.Refs.Len(), "processed and thumbnail references")
}

func TestNew_RulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - max_file_size: 4\n"), 0o600))
	cfg := testConfig(t)
	cfg.Intake.RulesFile = path

	rt, err := New(cfg, zaptest.NewLogger(t), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })

	results, err := rt.Service.ProcessBatch(context.Background(),
		[]*media.File{media.NewFile("a.pdf", "application/pdf", []byte("%PDF-1.4"))}, intake.Options{})
	require.NoError(t, err)
	assert.Equal(t, media.CodeFileTooLarge, results[0].Failure.Code)

	cfg.Intake.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = New(cfg, zaptest.NewLogger(t), Options{})
	assert.ErrorContains(t, err, "load default rules")
}

func TestNew_ObjectStoreBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Intake.ReferenceBackend = config.ReferenceObjectStore

	rt, err := New(cfg, zaptest.NewLogger(t), Options{})
	require.NoError(t, err)
	assert.Nil(t, rt.Refs)
	assert.NoError(t, rt.Close(context.Background()))

	cfg.Storage.Provider = "tape"
	_, err = New(cfg, zaptest.NewLogger(t), Options{})
	assert.Error(t, err)
}
