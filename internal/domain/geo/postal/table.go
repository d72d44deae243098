package postal

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/kailas-cloud/directory/internal/domain/geo"
)

//go:embed data/postal_codes.csv
var dataset embed.FS

const datasetPath = "data/postal_codes.csv"

// Table maps postal codes to coordinates. It is immutable after
// construction and safe for concurrent reads.
type Table struct {
	coords map[string]geo.Point
}

// New builds a table from a code → point mapping. The map is copied.
func New(entries map[string]geo.Point) *Table {
	coords := make(map[string]geo.Point, len(entries))
	for code, p := range entries {
		coords[normalize(code)] = p
	}
	return &Table{coords: coords}
}

// Lookup returns the coordinate for a postal code.
func (t *Table) Lookup(code string) (geo.Point, bool) {
	p, ok := t.coords[normalize(code)]
	return p, ok
}

// Len returns the number of postal codes in the table.
func (t *Table) Len() int {
	return len(t.coords)
}

// Load reads a CSV dataset with a "code,lng,lat" header.
func Load(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header[0] != "code" || header[1] != "lng" || header[2] != "lat" {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	coords := make(map[string]geo.Point)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		code := normalize(rec[0])
		if code == "" {
			return nil, fmt.Errorf("line %d: empty postal code", line)
		}
		lng, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: lng: %w", line, err)
		}
		lat, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: lat: %w", line, err)
		}
		p, err := geo.NewPoint(lng, lat)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		coords[code] = p
	}

	return &Table{coords: coords}, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the table built from the bundled dataset. The dataset is
// parsed once per process.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		f, err := dataset.Open(datasetPath)
		if err != nil {
			defaultErr = fmt.Errorf("open bundled dataset: %w", err)
			return
		}
		defer func() { _ = f.Close() }()
		defaultTable, defaultErr = Load(f)
	})
	return defaultTable, defaultErr
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
