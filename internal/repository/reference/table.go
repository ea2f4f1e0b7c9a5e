package reference

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/somunicate/dbas/internal/domain/catalog"
)

const rowBatchSize = 1000

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readTable reads a CSV or Parquet file into a string table, chosen by extension.
func readTable(path string, delimiter rune) (catalog.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return readParquet(path)
	}
	return readCSV(path, delimiter)
}

func readCSV(path string, delimiter rune) (catalog.Table, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return catalog.Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	if delimiter != 0 {
		r.Comma = delimiter
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return catalog.Table{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return catalog.Table{}, fmt.Errorf("parse %s: empty file", path)
	}
	return catalog.Table{Source: filepath.Base(path), Header: records[0], Rows: records[1:]}, nil
}

// readParquet flattens the top-level columns of a Parquet file into strings.
// Repeated columns keep their first value; nulls become empty cells.
func readParquet(path string) (catalog.Table, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return catalog.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return catalog.Table{}, fmt.Errorf("stat %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return catalog.Table{}, fmt.Errorf("open parquet %s: %w", path, err)
	}

	columns := pf.Schema().Columns()
	header := make([]string, len(columns))
	for i, p := range columns {
		if len(p) > 0 {
			header[i] = p[0]
		}
	}

	t := catalog.Table{Source: filepath.Base(path), Header: header, Rows: make([][]string, 0, pf.NumRows())}
	for _, rg := range pf.RowGroups() {
		if err := appendRowGroup(&t, rg, len(columns)); err != nil {
			return catalog.Table{}, fmt.Errorf("read parquet %s: %w", path, err)
		}
	}
	return t, nil
}

func appendRowGroup(t *catalog.Table, rg parquet.RowGroup, width int) error {
	rows := parquet.NewRowGroupReader(rg)
	buf := make([]parquet.Row, rowBatchSize)

	for {
		n, readErr := rows.ReadRows(buf)
		for i := range n {
			cells := make([]string, width)
			seen := make([]bool, width)
			for _, v := range buf[i] {
				col := v.Column()
				if col < 0 || col >= width || seen[col] {
					continue
				}
				seen[col] = true
				cells[col] = cellString(v)
			}
			t.Rows = append(t.Rows, cells)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read rows: %w", readErr)
		}
	}
}

func cellString(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
