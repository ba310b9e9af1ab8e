package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInvoiceConfigDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	holder, err := NewInvoiceConfigHolder(Config{InvoiceConfigPath: dir}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultInvoiceConfig(), holder.Get())
}

func TestInvoiceConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	body := "invoice:\n  gst_rate: 12\n  default_hsn_code: \"996332\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "invoice.yml"), []byte(body), 0o600))

	holder, err := NewInvoiceConfigHolder(Config{InvoiceConfigPath: dir}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, 12.0, got.GSTRate)
	assert.Equal(t, "996332", got.DefaultHSNCode)
	assert.Equal(t, 100, got.MaxNumberProbes)
}

func TestInvoiceConfigRejectsInvalidRate(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "invoice.yml"), []byte("invoice:\n  gst_rate: 140\n"), 0o600))

	_, err := NewInvoiceConfigHolder(Config{InvoiceConfigPath: dir}, zap.NewNop())
	require.Error(t, err)
}
