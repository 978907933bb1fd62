package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/pkg/crypto/adaptive"
)

// ResolveCredentials returns the inline identities followed by those read
// from store.credentials_file. The file holds either one service account
// key object, as downloaded from the cloud console, or an array of them.
// Sealed private keys are opened with store.seal_key.
func ResolveCredentials(cfg *ServerConfig) ([]CredentialConfig, error) {
	out, err := readCredentials(cfg)
	if err != nil {
		return nil, err
	}

	var key []byte
	for i, c := range out {
		if !adaptive.IsSealed(c.PrivateKey) {
			continue
		}
		if key == nil {
			if cfg.Store.SealKey == "" {
				return nil, domain.ErrInvalidCredential.WithDetailsf("credential %s has a sealed private_key but store.seal_key is not set", c.ClientEmail)
			}
			if key, err = adaptive.ParseKey(cfg.Store.SealKey); err != nil {
				return nil, domain.ErrInvalidCredential.WithDetailsf("store.seal_key: %v", err).WithCause(err)
			}
		}
		plain, err := adaptive.Open(key, c.PrivateKey, []byte(c.ClientEmail))
		if err != nil {
			return nil, domain.ErrInvalidCredential.WithDetailsf("open private_key of %s: %v", c.ClientEmail, err).WithCause(err)
		}
		out[i].PrivateKey = string(plain)
	}
	return out, nil
}

func readCredentials(cfg *ServerConfig) ([]CredentialConfig, error) {
	out := append([]CredentialConfig(nil), cfg.Credentials...)
	if cfg.Store.CredentialsFile == "" {
		return out, nil
	}

	data, err := os.ReadFile(cfg.Store.CredentialsFile)
	if err != nil {
		return nil, domain.ErrInvalidCredential.WithDetailsf("store.credentials_file: %v", err).WithCause(err)
	}

	data = bytes.TrimSpace(data)
	var fromFile []CredentialConfig
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &fromFile)
	} else {
		var one CredentialConfig
		err = json.Unmarshal(data, &one)
		fromFile = []CredentialConfig{one}
	}
	if err != nil {
		return nil, domain.ErrInvalidCredential.WithDetailsf("store.credentials_file: %v", err).WithCause(err)
	}

	for i, c := range fromFile {
		if c.ClientEmail == "" || c.PrivateKey == "" {
			return nil, domain.ErrInvalidCredential.WithDetailsf("store.credentials_file entry %d: client_email and private_key are required", i)
		}
	}
	return append(out, fromFile...), nil
}
