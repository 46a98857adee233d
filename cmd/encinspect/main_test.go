package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/serializer"
)

const testConfig = `
defaults: {default_layer_dim: 4, dropout: 0.1}
encoder: !ModularEncoder
  input_dim: 6
  modules:
    - !PyramidalLSTMEncoder
      layers: 2
    - !LSTMEncoder
      bidirectional: false
`

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "encoder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0644))
	savePath := filepath.Join(dir, "encoder.bin")

	var buf bytes.Buffer
	err := inspect(&buf, path, &options{
		Lengths: []int{9, 4},
		Double:  true,
		Save:    savePath,
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "ModularEncoder input_dim=6")
	assert.Contains(t, out, "  PyramidalLSTMEncoder")
	assert.Contains(t, out, "stateful(*seqrnn.RNN)")
	assert.Contains(t, out, "output lengths: [3 1]")
	assert.Contains(t, out, "output size: 4")

	data, err := os.ReadFile(savePath)
	require.NoError(t, err)
	_, err = serializer.DeserializeWithType(data)
	assert.NoError(t, err)
}

func TestInspectBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("encoder: !Nope {}\n"), 0644))
	assert.Error(t, inspect(&bytes.Buffer{}, path, &options{Lengths: []int{3}}))
}
