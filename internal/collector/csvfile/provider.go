package csvfile

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/storage/archive"
)

// Provider serves history from CSV files kept in archive storage. Every file
// under prefix whose name starts with <instrument>_<granularity>_ is merged.
type Provider struct {
	store  archive.Storage
	prefix string
}

// NewProvider creates a provider reading files under prefix in store.
func NewProvider(store archive.Storage, prefix string) *Provider {
	return &Provider{store: store, prefix: strings.Trim(prefix, "/")}
}

func (p *Provider) Name() string {
	return "csvfile"
}

// FetchHistory returns the merged bars of every matching file within [start, end).
func (p *Provider) FetchHistory(ctx context.Context, instrument string, start, end time.Time, granularity core.Granularity) ([]core.Bar, error) {
	paths, err := p.store.List(ctx, p.prefix)
	if err != nil {
		return nil, err
	}

	stem := instrument + "_" + string(granularity) + "_"
	var merged []core.Bar
	for _, fp := range paths {
		name := path.Base(fp)
		if !strings.HasPrefix(name, stem) || path.Ext(name) != ".csv" {
			continue
		}
		data, err := p.store.Read(ctx, fp)
		if err != nil {
			return nil, err
		}
		bars, err := Read(bytes.NewReader(data))
		if err != nil {
			return nil, core.Errorf(core.ErrInvalidInput, "%s: %v", fp, err)
		}
		merged = append(merged, bars...)
	}

	var out []core.Bar
	for _, b := range normalize(merged) {
		if b.Time.Before(start) || !b.Time.Before(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Save writes bars to store as a CSV named after the download range and
// returns its path.
func Save(ctx context.Context, store archive.Storage, prefix, instrument string, granularity core.Granularity, start, end time.Time, bars []core.Bar) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, bars); err != nil {
		return "", core.WrapError(core.ErrStorageFailed, err)
	}
	p := path.Join(strings.Trim(prefix, "/"), FileName(instrument, granularity, start, end))
	if err := store.Write(ctx, p, buf.Bytes()); err != nil {
		return "", err
	}
	return p, nil
}
