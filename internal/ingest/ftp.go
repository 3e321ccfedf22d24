package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPConfig points at a drop directory where an inverter datalogger uploads
// its CSV exports.
type FTPConfig struct {
	Addr     string // host:port
	User     string
	Password string
	Dir      string
	Pattern  string // path.Match pattern, "*.csv" when empty
	Timeout  time.Duration
}

// ImportLedger answers whether a remote export was already imported.
// *store.Store implements it.
type ImportLedger interface {
	HasSuccessfulImport(sourceID int64, kind, origin string) (bool, error)
}

// FTPPuller batch-imports exports from an FTP drop. Files already imported
// (same name, size and modification time) are skipped.
type FTPPuller struct {
	cfg      FTPConfig
	importer *Importer
	ledger   ImportLedger
}

func NewFTPPuller(cfg FTPConfig, importer *Importer, ledger ImportLedger) *FTPPuller {
	if cfg.Pattern == "" {
		cfg.Pattern = "*.csv"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.User == "" {
		cfg.User = "anonymous"
		cfg.Password = "anonymous"
	}
	return &FTPPuller{cfg: cfg, importer: importer, ledger: ledger}
}

// Pull imports every new matching export for the source. A failing file is
// logged and skipped; only connection and listing failures are returned.
func (p *FTPPuller) Pull(ctx context.Context, sourceID int64) ([]ImportResult, error) {
	conn, err := ftp.Dial(p.cfg.Addr, ftp.DialWithTimeout(p.cfg.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(p.cfg.User, p.cfg.Password); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	entries, err := conn.List(p.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("ftp list %s: %w", p.cfg.Dir, err)
	}

	var results []ImportResult
	for _, e := range selectExports(entries, p.cfg.Pattern) {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		origin := originKey(p.cfg.Dir, e)
		if p.ledger != nil {
			done, err := p.ledger.HasSuccessfulImport(sourceID, KindFTP, origin)
			if err != nil {
				log.Printf("ftp: check ledger for %s: %v", origin, err)
			} else if done {
				continue
			}
		}

		body, err := retrieve(conn, path.Join(p.cfg.Dir, e.Name))
		if err != nil {
			log.Printf("ftp: retrieve %s: %v", e.Name, err)
			continue
		}

		res, err := p.importer.Import(sourceID, bytes.NewReader(body), KindFTP, origin)
		if err != nil {
			log.Printf("ftp: import %s: %v", e.Name, err)
			continue
		}
		results = append(results, *res)
	}

	log.Printf("ftp: source %d: imported %d new exports from %s%s", sourceID, len(results), p.cfg.Addr, p.cfg.Dir)
	return results, nil
}

func retrieve(conn *ftp.ServerConn, remote string) ([]byte, error) {
	resp, err := conn.Retr(remote)
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

// selectExports keeps regular files whose name matches pattern, oldest first
// so later exports take precedence when they overlap.
func selectExports(entries []*ftp.Entry, pattern string) []*ftp.Entry {
	var out []*ftp.Entry
	for _, e := range entries {
		if e == nil || e.Type != ftp.EntryTypeFile {
			continue
		}
		ok, err := path.Match(strings.ToLower(pattern), strings.ToLower(e.Name))
		if err != nil || !ok {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func originKey(dir string, e *ftp.Entry) string {
	return fmt.Sprintf("ftp:%s@%d@%d", path.Join(dir, e.Name), e.Size, e.Time.Unix())
}
