package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/convsym/pkg/config"
	"github.com/Sumatoshi-tech/convsym/pkg/observability"
	"github.com/Sumatoshi-tech/convsym/pkg/version"
)

func initObservability(cmd *cobra.Command, cfg *config.Config, mode observability.AppMode) (observability.Providers, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return observability.Providers{}, exitErr(ExitUsage, err)
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Log.JSON
	obsCfg.LogWriter = cmd.ErrOrStderr()

	return observability.Init(obsCfg)
}

func shutdownObservability(providers observability.Providers) {
	shutdownErr := providers.Shutdown(context.Background())
	if shutdownErr != nil {
		providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}
