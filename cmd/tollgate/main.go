package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/layer-3/tollgate/cmd/tollgate/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Dev          bool   `help:"Enable development mode (debug logging, console output)."`
		Config       string `help:"Path to a config file." type:"path" env:"TOLLGATE_CONFIG"`
		Version      kong.VersionFlag
		Serve        commands.ServeCmd        `cmd:"" help:"Start the authentication gateway"`
		HashPassword commands.HashPasswordCmd `cmd:"" help:"Print a bcrypt hash for a user directory entry"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Dev: cli.Dev, Config: cli.Config, Version: version})
	cmd.FatalIfErrorf(err)
}
