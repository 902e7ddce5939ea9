package sandbox

import (
	"errors"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNoProfileConfig is returned when no profile in the catalog has an
// existing configuration file on disk.
var ErrNoProfileConfig = errors.New("NSJail configuration file not found")

// Profile is one isolation configuration
type Profile struct {
	Name       string `yaml:"name"`
	ConfigFile string `yaml:"config_file"`
	ExtraFlags string `yaml:"extra_flags"`
}

type profileManifest struct {
	Profiles []Profile `yaml:"profiles"`
}

// Catalog is an ordered list of isolation profiles. Resolution walks the
// list and picks the first profile whose configuration file exists, so a
// constrained-privilege profile can shadow the stricter default on hosts
// that carry it.
type Catalog struct {
	dir      string
	profiles []Profile
	fs       FileSystem
}

// CatalogOption defines a functional option for Catalog
type CatalogOption func(*Catalog)

// WithCatalogFileSystem sets the FileSystem for Catalog
func WithCatalogFileSystem(fs FileSystem) CatalogOption {
	return func(c *Catalog) {
		c.fs = fs
	}
}

// DefaultProfiles returns the built-in catalog used when no manifest exists:
// the Cloud Run compatible profile first, then the strict secure profile.
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: "cloud-run", ConfigFile: "python_cloud_run.cfg"},
		{Name: "secure", ConfigFile: "python_secure.cfg"},
	}
}

// LoadCatalog reads the profile manifest from dir. A missing manifest is not
// an error; the built-in default catalog is used instead.
func LoadCatalog(dir, manifestName string, opts ...CatalogOption) (*Catalog, error) {
	c := &Catalog{
		dir: dir,
		fs:  RealFileSystem{},
	}
	for _, opt := range opts {
		opt(c)
	}

	manifestPath := filepath.Join(dir, manifestName)
	exists, err := c.fs.FileExists(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat profile manifest: %w", err)
	}
	if !exists {
		c.profiles = DefaultProfiles()
		return c, nil
	}

	data, err := c.fs.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile manifest: %w", err)
	}

	var m profileManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse profile manifest %s: %w", manifestPath, err)
	}
	if len(m.Profiles) == 0 {
		c.profiles = DefaultProfiles()
		return c, nil
	}

	c.profiles = m.Profiles
	return c, nil
}

// Resolve returns the first profile whose configuration file exists on disk
func (c *Catalog) Resolve() (Profile, error) {
	for _, p := range c.profiles {
		if ok, _ := c.fs.FileExists(c.ConfigPath(p)); ok {
			return p, nil
		}
	}
	return Profile{}, ErrNoProfileConfig
}

// ConfigPath returns the on-disk path of a profile's configuration file
func (c *Catalog) ConfigPath(p Profile) string {
	if filepath.IsAbs(p.ConfigFile) {
		return p.ConfigFile
	}
	return filepath.Join(c.dir, p.ConfigFile)
}

// ConfigPresent reports whether catalog resolution currently succeeds.
// Exposed for the health endpoint.
func (c *Catalog) ConfigPresent() bool {
	_, err := c.Resolve()
	return err == nil
}

// Profiles returns the catalog entries in resolution order
func (c *Catalog) Profiles() []Profile {
	return c.profiles
}
