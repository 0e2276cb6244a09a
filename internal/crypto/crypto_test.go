package crypto

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAt(t *testing.T) {
	t.Parallel()

	// Example from the Binance signed endpoint documentation.
	h := &HMACAuth{
		Key:    "vmPUZE6mv9SD5VNHk4HlWFsOr6aKE2zvsw0MuIgwCIPy6utIco14y7Ju91duEh8A",
		Secret: "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j",
	}
	params := url.Values{}
	params.Set("symbol", "LTCBTC")
	params.Set("side", "BUY")
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("quantity", "1")
	params.Set("price", "0.1")
	params.Set("recvWindow", "5000")

	signed := h.SignAt(params, 1499827319559)
	query, sig, ok := strings.Cut(signed, "&signature=")
	require.True(t, ok)
	assert.Contains(t, query, "timestamp=1499827319559")
	assert.Len(t, sig, 64)
	assert.Equal(t, hmacSHA256Hex([]byte(h.Secret), query), sig)

	// deterministic for the same inputs
	assert.Equal(t, signed, h.SignAt(params, 1499827319559))
}

func TestSignAtRecvWindow(t *testing.T) {
	t.Parallel()

	h := &HMACAuth{Key: "k", Secret: "s", RecvWindow: 6000}
	signed := h.SignAt(nil, 1)
	assert.True(t, strings.HasPrefix(signed, "recvWindow=6000&timestamp=1&signature="))
	assert.Equal(t, map[string]string{APIKeyHeader: "k"}, h.Headers())
}

func TestHMACAuthString(t *testing.T) {
	t.Parallel()

	h := &HMACAuth{Key: "abcdefgh", Secret: "xyz"}
	assert.Equal(t, "HMACAuth{key=abcd****, secret=****}", h.String())
}

func TestEncryptDecryptSecret(t *testing.T) {
	t.Parallel()

	blob, err := EncryptSecret("  my-api-secret \n", "hunter2")
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "my-api-secret")

	got, err := DecryptSecret(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "my-api-secret", got)

	_, err = DecryptSecret(blob, "wrong")
	assert.Error(t, err)

	_, err = EncryptSecret("x", "")
	assert.Error(t, err)
	_, err = EncryptSecret(" ", "p")
	assert.Error(t, err)
}

func TestLoadSecret(t *testing.T) {
	t.Parallel()

	blob, err := EncryptSecret("sealed", "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "secret.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	tests := []struct {
		name    string
		cfg     SecretConfig
		want    string
		wantErr bool
	}{
		{name: "raw wins", cfg: SecretConfig{Raw: "plain", EncryptedPath: path, Passphrase: "pw"}, want: "plain"},
		{name: "encrypted file", cfg: SecretConfig{EncryptedPath: path, Passphrase: "pw"}, want: "sealed"},
		{name: "missing file", cfg: SecretConfig{EncryptedPath: path + ".missing", Passphrase: "pw"}, wantErr: true},
		{name: "nothing configured", cfg: SecretConfig{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := LoadSecret(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
