package main

import (
	"context"
	"log/slog"
	"os"

	"etariff-downloader/cmd/etariff-cli/commands"
	"etariff-downloader/lib/osutil"
	"etariff-downloader/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)

	ctx := osutil.SignalContext(context.Background())
	tel, err := telemetry.SetupFromEnv(ctx, "etariff-cli")
	if err == nil {
		defer tel.Shutdown(context.Background())
	} else if !os.IsNotExist(err) {
		slog.Warn("telemetry setup failed", "err", err)
	}

	commands.ExecuteContext(ctx)
}
