package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHex(t *testing.T) {
	stdout, _, err := execute(t, `{"name": "Alice", "age": 30}`,
		"encode", "--type", personType, "--input", "-")
	require.NoError(t, err)
	assert.Equal(t, "921ea5416c696365\n", stdout)
}

func TestEncodeJSON(t *testing.T) {
	stdout, _, err := execute(t, `"hi"`, "--format", "json", "encode", "--type", "string", "--input", "-")
	require.NoError(t, err)

	var resp struct {
		Data EncodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, EncodeResult{Hex: "a26869", Bytes: 3}, resp.Data)
}

func TestEncodeDecodeFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "m.msgpack")
	mapType := `["map","number"]`

	_, _, err := execute(t, `{"a": 1, "b": 2}`, "encode", "--type", mapType, "--input", "-", "--out", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x82, 0xa1, 'a', 0x01, 0xa1, 'b', 0x02}, data)

	stdout, _, err := execute(t, "", "decode", "--type", mapType, "--in", out)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\": 1, \"b\": 2}\n", stdout)
}

func TestDecodeHex(t *testing.T) {
	stdout, _, err := execute(t, "", "decode", "--type", personType, "--hex", "921ea5416c696365")
	require.NoError(t, err)
	assert.Equal(t, "{\"age\": 30, \"name\": \"Alice\"}\n", stdout)
}

func TestDecodeFromStdin(t *testing.T) {
	stdout, _, err := execute(t, "\xa2hi", "decode", "--type", "string", "--in", "-")
	require.NoError(t, err)
	assert.Equal(t, "\"hi\"\n", stdout)
}

func TestDecodeFailures(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		exit   int
		code   string
		detail string
	}{
		{"not a number", []string{"decode", "--type", "number", "--hex", "a26869"}, ExitFailure, ErrCodeCodec, "MALFORMED"},
		{"trailing data", []string{"decode", "--type", "string", "--hex", "a2686900"}, ExitFailure, ErrCodeCodec, "TRAILING_DATA"},
		{"type mismatch", []string{"decode", "--type", "number", "--hex", "c3"}, ExitFailure, ErrCodeCodec, "TYPE_MISMATCH"},
		{"bad hex", []string{"decode", "--type", "string", "--hex", "zz"}, ExitCommandError, ErrCodeInput, ""},
		{"no bytes", []string{"decode", "--type", "string"}, ExitCommandError, ErrCodeInput, ""},
		{"both sources", []string{"decode", "--type", "string", "--hex", "a26869", "--in", "-"}, ExitCommandError, ErrCodeInput, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, "", append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			if tt.detail != "" {
				details, ok := resp.Error.Details.(map[string]any)
				require.True(t, ok, "details: %v", resp.Error.Details)
				assert.Equal(t, tt.detail, details["code"])
			}
		})
	}
}

func TestEncodeValidationFailure(t *testing.T) {
	stdout, _, err := execute(t, `"x"`, "encode", "--type", "number", "--input", "-")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E101]")
}
