package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/lox/solarforecast/internal/api"
	"github.com/lox/solarforecast/internal/forecast"
	"github.com/lox/solarforecast/internal/ingest"
	"github.com/lox/solarforecast/internal/models"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

type ServeCmd struct {
	Port         string `default:"8080" env:"PORT" help:"HTTP server port."`
	AutoSimulate bool   `name:"auto-simulate" env:"AUTO_SIMULATE" help:"Generate a simulated dataset for sources without data on first report."`
	Retention    int    `name:"payload-retention" default:"30" help:"Days of archived weather responses to keep (0 keeps all)."`
}

func (c *ServeCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Retention > 0 {
		if n, err := a.store.CleanupOldRawPayloads(c.Retention); err != nil {
			log.Printf("Warning: cleanup raw payloads: %v", err)
		} else if n > 0 {
			log.Printf("removed %d archived weather responses older than %d days", n, c.Retention)
		}
	}

	server := api.NewServer(api.Services{
		Store:     a.store,
		Series:    a.series,
		Reporter:  a.reporter,
		Engine:    a.engine,
		Importer:  a.importer,
		Simulator: a.simulator,
	}, c.Port)
	server.SetAutoSimulate(c.AutoSimulate)

	ctx, cancel := notifyContext()
	defer cancel()

	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

type SourceCmd struct {
	Add    SourceAddCmd    `cmd:"" help:"Register a source."`
	List   SourceListCmd   `cmd:"" help:"List sources."`
	Show   SourceShowCmd   `cmd:"" help:"Show one source."`
	Delete SourceDeleteCmd `cmd:"" help:"Delete a source and its persisted forecast."`
}

type SourceAddCmd struct {
	Name        string `arg:"" help:"Display name."`
	Location    string `required:"" help:"Address or city used for geocoding."`
	Capacity    string `required:"" help:"Nominal capacity in kWp."`
	Brand       string `help:"Panel or inverter brand."`
	Model       string `help:"Panel or inverter model."`
	InstallDate string `name:"install-date" help:"Installation date (YYYY-MM-DD)."`
}

func (c *SourceAddCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	src := models.EnergySource{
		Name:            c.Name,
		Location:        c.Location,
		NominalCapacity: c.Capacity,
		Brand:           c.Brand,
		Model:           c.Model,
		InstallDate:     c.InstallDate,
	}
	if _, ok := src.CapacityKWp(); !ok {
		log.Printf("Warning: capacity %q is not a number, forecasts will assume %.1f kWp", c.Capacity, models.DefaultCapacityKWp)
	}
	saved, err := a.store.SaveSource(src)
	if err != nil {
		return err
	}
	return printJSON(saved)
}

type SourceListCmd struct{}

func (c *SourceListCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	sources, err := a.store.ListSources()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tKWP")
	for _, s := range sources {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.Name, s.Location, s.NominalCapacity)
	}
	return tw.Flush()
}

type SourceShowCmd struct {
	ID int64 `arg:"" help:"Source id."`
}

func (c *SourceShowCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	src, err := a.store.GetSource(c.ID)
	if err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("source %d: %w", c.ID, forecast.ErrSourceNotFound)
	}

	s, err := a.series.Aggregate(src.ID)
	if err != nil {
		return err
	}
	runs, err := a.store.GetIngestRuns(src.ID, 10)
	if err != nil {
		return err
	}
	type importRun struct {
		BatchID  string    `json:"batch_id"`
		Kind     string    `json:"kind"`
		Started  time.Time `json:"started_at"`
		Success  bool      `json:"success"`
		Accepted int64     `json:"accepted"`
		Total    int64     `json:"total"`
	}
	out := struct {
		*models.EnergySource
		Series  string      `json:"series"`
		Origins []string    `json:"origins"`
		Imports []importRun `json:"recent_imports"`
	}{EnergySource: src, Series: s.Status.String(), Origins: s.Origins}
	for _, r := range runs {
		out.Imports = append(out.Imports, importRun{
			BatchID:  r.BatchID,
			Kind:     r.Kind,
			Started:  r.StartedAt,
			Success:  r.Success,
			Accepted: r.RecordsAccepted.Int64,
			Total:    r.RecordsTotal.Int64,
		})
	}
	return printJSON(out)
}

type SourceDeleteCmd struct {
	ID int64 `arg:"" help:"Source id."`
}

func (c *SourceDeleteCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	deleted, err := a.store.DeleteSource(c.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("source %d: %w", c.ID, forecast.ErrSourceNotFound)
	}
	if err := a.engine.Clear(c.ID); err != nil {
		log.Printf("Warning: clear forecast: %v", err)
	}
	log.Printf("deleted source %d", c.ID)
	return nil
}

type ImportCmd struct {
	ID   int64  `arg:"" help:"Source id."`
	File string `arg:"" type:"existingfile" help:"CSV export to import."`
}

func (c *ImportCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := requireSource(a, c.ID); err != nil {
		return err
	}
	res, err := a.importer.ImportFile(c.ID, c.File)
	if err != nil {
		return err
	}
	if err := a.engine.Clear(c.ID); err != nil {
		log.Printf("Warning: clear forecast: %v", err)
	}
	return printJSON(res)
}

type SimulateCmd struct {
	ID   int64 `arg:"" help:"Source id."`
	Days int   `default:"30" help:"Days of 15-minute samples to generate."`
}

func (c *SimulateCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	src, err := a.store.GetSource(c.ID)
	if err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("source %d: %w", c.ID, forecast.ErrSourceNotFound)
	}
	capacity, _ := src.CapacityKWp()
	res, err := a.importer.Simulate(a.simulator, src.ID, capacity, c.Days)
	if err != nil {
		return err
	}
	if err := a.engine.Clear(c.ID); err != nil {
		log.Printf("Warning: clear forecast: %v", err)
	}
	return printJSON(res)
}

type ForecastCmd struct {
	ID       int64 `arg:"" optional:"" help:"Source id."`
	Days     int   `default:"5" help:"Days to forecast (1-7)."`
	Refresh  bool  `help:"Ignore a persisted forecast and generate a new one."`
	CheckKey bool  `name:"check-key" help:"Only verify the weather API key."`
}

func (c *ForecastCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := notifyContext()
	defer cancel()

	if c.CheckKey {
		if a.weather == nil {
			return errors.New("weather api key not configured")
		}
		if err := a.weather.CheckKey(ctx); err != nil {
			return fmt.Errorf("weather api key rejected: %w", err)
		}
		log.Println("weather api key ok")
		return nil
	}
	if c.ID == 0 {
		return errors.New("source id is required")
	}

	pred, err := a.engine.Forecast(ctx, c.ID, c.Days, c.Refresh)
	if err != nil {
		return err
	}
	if pred.Cached {
		log.Printf("using forecast generated at %s", pred.Document.GeneratedAt.In(a.loc).Format(time.RFC3339))
	}
	return printJSON(pred.Document)
}

type ClearForecastCmd struct {
	ID int64 `arg:"" help:"Source id."`
}

func (c *ClearForecastCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	return a.engine.Clear(c.ID)
}

type FTPPullCmd struct {
	ID       int64         `arg:"" help:"Source id the exports belong to."`
	Addr     string        `required:"" env:"FTP_ADDR" help:"FTP server host:port."`
	User     string        `env:"FTP_USER" help:"FTP user (anonymous when empty)."`
	Password string        `env:"FTP_PASSWORD" help:"FTP password."`
	Dir      string        `default:"/" env:"FTP_DIR" help:"Remote directory holding the exports."`
	Pattern  string        `default:"*.csv" help:"File name pattern to import."`
	Timeout  time.Duration `default:"30s" help:"Connection timeout."`
}

func (c *FTPPullCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := requireSource(a, c.ID); err != nil {
		return err
	}

	ctx, cancel := notifyContext()
	defer cancel()

	puller := ingest.NewFTPPuller(ingest.FTPConfig{
		Addr:     c.Addr,
		User:     c.User,
		Password: c.Password,
		Dir:      c.Dir,
		Pattern:  c.Pattern,
		Timeout:  c.Timeout,
	}, a.importer, a.store)
	results, err := puller.Pull(ctx, c.ID)
	if err != nil {
		return err
	}
	if len(results) > 0 {
		if err := a.engine.Clear(c.ID); err != nil {
			log.Printf("Warning: clear forecast: %v", err)
		}
	}
	return printJSON(results)
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	version, err := a.store.MigrationVersion()
	if err != nil {
		return err
	}
	log.Printf("database migrated to version %d", version)
	return nil
}

func requireSource(a *app, id int64) error {
	src, err := a.store.GetSource(id)
	if err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("source %d: %w", id, forecast.ErrSourceNotFound)
	}
	return nil
}
