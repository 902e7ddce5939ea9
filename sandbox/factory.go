package sandbox

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Khagendra01/cloud-py-exec/config"
)

// Invokers bundles the sandboxed and direct invokers built from one
// configuration, together with the profile catalog they share.
type Invokers struct {
	Nsjail  Invoker
	Direct  Invoker
	Catalog *Catalog
}

// NewInvokers creates the invoker pair from the application configuration
func NewInvokers(logger *zap.Logger, cfg *config.Config) (*Invokers, error) {
	catalog, err := LoadCatalog(cfg.Sandbox.ProfileDir, cfg.Sandbox.ProfilesManifest)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile catalog: %w", err)
	}

	invokerConfig := &Config{
		NsjailPath:    cfg.Sandbox.NsjailPath,
		PythonCommand: cfg.Sandbox.PythonCommand,
		GraceSec:      cfg.Sandbox.GraceSec,
	}

	return &Invokers{
		Nsjail:  NewNsjailInvoker(logger, invokerConfig, catalog),
		Direct:  NewDirectInvoker(logger, invokerConfig),
		Catalog: catalog,
	}, nil
}
