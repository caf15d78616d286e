package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validWorld = `system: pf1
users:
  - id: alice
    name: Alice
    character_id: kyra
actors:
  - id: kyra
    name: Kyra
    ownership:
      alice: owner
    items:
      - name: Arrow
        system: {quantity: 5}
`

func writeWorld(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		wantErr  string
	}{
		{"valid", "my_table.yaml", validWorld, ""},
		{"yml extension", "my_table.yml", validWorld, ""},
		{"experimental prefix", "x.my_table.yaml", validWorld, ""},
		{"wrong extension", "my_table.json", validWorld, "must have .yaml or .yml extension"},
		{"bad filename", "My-Table.yaml", validWorld, "must be lowercase snake_case"},
		{"unknown field", "my_table.yaml", validWorld + "scenes: []\n", "strict YAML"},
		{
			"dangling character",
			"my_table.yaml",
			"users:\n  - id: alice\n    name: Alice\n    character_id: nobody\n",
			`unknown character "nobody"`,
		},
		{
			"bad permission",
			"my_table.yaml",
			"users:\n  - id: alice\n    name: Alice\nactors:\n  - id: kyra\n    name: Kyra\n    ownership:\n      alice: boss\n",
			`actor "kyra"`,
		},
		{"no users", "my_table.yaml", "actors: []\n", "world has no users"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &WorldValidator{}
			err := v.validateFile(writeWorld(t, tt.filename, tt.content))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsValidWorldFilename(t *testing.T) {
	assert.True(t, isValidWorldFilename("table"))
	assert.True(t, isValidWorldFilename("x.table_two"))
	assert.False(t, isValidWorldFilename("Table"))
	assert.False(t, isValidWorldFilename("table-two"))
	assert.False(t, isValidWorldFilename("table_"))
}
