package bubblehouse

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblehouse/connector/internal/infrastructure/config"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, cfg.Validate())

		assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
		assert.Equal(t, DefaultAPIVersion, cfg.APIVersion)
		assert.Equal(t, DefaultTimeoutSeconds, cfg.TimeoutSeconds)
	})

	t.Run("invalid base URL", func(t *testing.T) {
		cfg := &Config{BaseURL: "not a url"}
		assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalidURL)
	})

	t.Run("incomplete default credentials", func(t *testing.T) {
		cfg := &Config{Default: &StoreCredentials{Shop: "teashop", KeyID: "k1"}}
		assert.ErrorIs(t, cfg.Validate(), ErrConfigMissingSecret)
	})
}

func TestStoreCredentials_Validate(t *testing.T) {
	tests := []struct {
		name    string
		creds   StoreCredentials
		wantErr error
	}{
		{"valid", StoreCredentials{Shop: "teashop", KeyID: "k1", SharedSecret: "s"}, nil},
		{"missing shop", StoreCredentials{KeyID: "k1", SharedSecret: "s"}, ErrConfigMissingShop},
		{"missing key id", StoreCredentials{Shop: "teashop", SharedSecret: "s"}, ErrConfigMissingKeyID},
		{"missing secret", StoreCredentials{Shop: "teashop", KeyID: "k1"}, ErrConfigMissingSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStoreCredentials_Token(t *testing.T) {
	creds := &StoreCredentials{Shop: "teashop", KeyID: "key-2024", SharedSecret: "s3cret"}
	now := time.Now().Truncate(time.Second)

	signed, err := creds.Token(now)
	require.NoError(t, err)

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)

	assert.True(t, token.Valid)
	assert.Equal(t, "key-2024", token.Header["kid"])
	assert.Equal(t, "teashop", claims.Shop)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(5*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestStoreCredentials_Token_WrongSecret(t *testing.T) {
	creds := &StoreCredentials{Shop: "teashop", KeyID: "k1", SharedSecret: "right"}

	signed, err := creds.Token(time.Now())
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(signed, &tokenClaims{}, func(token *jwt.Token) (any, error) {
		return []byte("wrong"), nil
	})
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestFromSettings(t *testing.T) {
	cfg, stores := FromSettings(config.BubblehouseConfig{
		BaseURL:        "https://sandbox.bubblehouse.test",
		APIVersion:     "v1",
		Shop:           "default-shop",
		KeyID:          "k0",
		SharedSecret:   "s0",
		TimeoutSeconds: 5,
		Stores: map[int64]config.BubblehouseStoreConfig{
			2: {Shop: "jp-shop", KeyID: "k2", SharedSecret: "s2"},
		},
	})

	assert.Equal(t, "https://sandbox.bubblehouse.test", cfg.BaseURL)
	assert.Equal(t, 5, cfg.TimeoutSeconds)
	require.NotNil(t, cfg.Default)
	assert.Equal(t, "default-shop", cfg.Default.Shop)
	require.Contains(t, stores, int64(2))
	assert.Equal(t, "jp-shop", stores[2].Shop)
}

func TestFromSettings_NoDefaultShop(t *testing.T) {
	cfg, stores := FromSettings(config.BubblehouseConfig{})

	assert.Nil(t, cfg.Default)
	assert.Empty(t, stores)
}
