package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
)

// DefaultCatalogFileName is the catalog file created inside the root.
const DefaultCatalogFileName = "_filechk.db"

// Config represents the main configuration for filechk.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Export     ExportConfig     `toml:"export"`
	Encryption EncryptionConfig `toml:"encryption"`
	Vault      VaultConfig      `toml:"vault"`
}

// CatalogConfig holds the startup values the catalog core consumes.
type CatalogConfig struct {
	Root       string   `toml:"root"`
	Recurse    bool     `toml:"recurse"`
	Extensions []string `toml:"extensions"`
	NoRescan   bool     `toml:"no_rescan"`

	Type     string `toml:"type"`                // "sqlite" (default) or "memory"
	FileName string `toml:"file_name,omitempty"` // only used for type=sqlite
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// ExportConfig selects the default export format.
type ExportConfig struct {
	Format string `toml:"format"` // "csv" (default), "json" or "markdown"
}

// EncryptionConfig holds paths to the age key pair used for encrypted
// exports and catalog snapshots.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// VaultConfig selects where catalog snapshots are stored.
// The Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "filesystem", "s3" or "memory"
	Name string `toml:"name"`

	// type=filesystem
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`

	// type=s3
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"`

	// Static credentials; the default AWS chain is used when empty.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

var (
	catalogTypes    = []string{"sqlite", "memory"}
	vaultTypes      = []string{"filesystem", "s3", "memory"}
	encryptionTypes = []string{"age", "test"}
)

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Catalog: CatalogConfig{
			Root:     ".",
			Type:     "sqlite",
			FileName: DefaultCatalogFileName,
		},
		Export: ExportConfig{Format: "csv"},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "filechk.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "filechk.key"),
		},
		Vault: VaultConfig{
			Type:        "filesystem",
			Name:        "local",
			FSVaultRoot: filepath.Join(baseDir, "vault"),
		},
	}
}

// Validate checks the tagged-union type fields.
func (c *Config) Validate() error {
	if c.Catalog.Type != "" && !slices.Contains(catalogTypes, c.Catalog.Type) {
		return fmt.Errorf("unknown catalog type: %s", c.Catalog.Type)
	}
	if c.Vault.Type != "" && !slices.Contains(vaultTypes, c.Vault.Type) {
		return fmt.Errorf("unknown vault type: %s", c.Vault.Type)
	}
	if c.Encryption.Type != "" && !slices.Contains(encryptionTypes, c.Encryption.Type) {
		return fmt.Errorf("unknown encryption type: %s", c.Encryption.Type)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from path. A missing file is reported with
// an error wrapping fs.ErrNotExist.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// ReadFromFileOrDefault reads path and falls back to NewConfig(baseDir)
// when the file does not exist. Values present in the file override the
// defaults.
func ReadFromFileOrDefault(path, baseDir string) (*Config, error) {
	cfg := NewConfig(baseDir)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
