package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ReadCSV builds a dataset from CSV content. The first record is the
// header; empty cells become missing values.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv content is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read csv header: %w", err)
	}

	ds := New(header)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read csv record: %w", err)
		}
		row := make(Row, len(record))
		for i, cell := range record {
			if cell == "" {
				continue
			}
			row[i] = cell
		}
		if err := ds.Append(row); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func ReadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}
