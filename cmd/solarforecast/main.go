package main

import (
	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
)

type CLI struct {
	Globals

	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to a .env file with settings.'"`

	Serve         ServeCmd         `cmd:"" help:"Run the HTTP API."`
	Source        SourceCmd        `cmd:"" help:"Manage energy sources."`
	Import        ImportCmd        `cmd:"" help:"Import a production CSV export for a source."`
	Simulate      SimulateCmd      `cmd:"" help:"Generate a simulated production dataset for a source."`
	Forecast      ForecastCmd      `cmd:"" help:"Print the generation forecast for a source."`
	ClearForecast ClearForecastCmd `cmd:"" name:"clear-forecast" help:"Delete the persisted forecast of a source."`
	FTPPull       FTPPullCmd       `cmd:"" name:"ftp-pull" help:"Import new CSV exports from an FTP drop."`
	Migrate       MigrateCmd       `cmd:"" help:"Apply database migrations and exit."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("solarforecast"),
		kong.Description("Solar generation forecasting and production reporting."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
