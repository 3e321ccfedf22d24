package ingest

import (
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
)

func TestSelectExports(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []*ftp.Entry{
		{Name: "feb.CSV", Type: ftp.EntryTypeFile, Time: base.Add(48 * time.Hour)},
		{Name: "jan.csv", Type: ftp.EntryTypeFile, Time: base},
		{Name: "archive", Type: ftp.EntryTypeFolder, Time: base},
		{Name: "notes.txt", Type: ftp.EntryTypeFile, Time: base},
		nil,
	}

	got := selectExports(entries, "*.csv")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "jan.csv" || got[1].Name != "feb.CSV" {
		t.Errorf("order = [%s %s], want [jan.csv feb.CSV]", got[0].Name, got[1].Name)
	}
}

func TestOriginKey(t *testing.T) {
	e := &ftp.Entry{Name: "jan.csv", Size: 1024, Time: time.Unix(1704067200, 0)}
	if got := originKey("/upload", e); got != "ftp:/upload/jan.csv@1024@1704067200" {
		t.Errorf("originKey = %q", got)
	}
}

func TestNewFTPPuller_Defaults(t *testing.T) {
	p := NewFTPPuller(FTPConfig{Addr: "localhost:21"}, nil, nil)
	if p.cfg.Pattern != "*.csv" {
		t.Errorf("Pattern = %q, want *.csv", p.cfg.Pattern)
	}
	if p.cfg.User != "anonymous" {
		t.Errorf("User = %q, want anonymous", p.cfg.User)
	}
	if p.cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", p.cfg.Timeout)
	}
}
