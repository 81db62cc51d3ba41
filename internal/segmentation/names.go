package segmentation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ClassNames maps a 1-based class index (as listed in object150_info.csv)
// to its first synonym.
type ClassNames map[int]string

// LoadClassNames reads a class info CSV with a header row, the index in the
// first column and ';'-separated names in the sixth.
func LoadClassNames(path string) (ClassNames, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class names: %w", err)
	}
	defer f.Close()
	return ReadClassNames(f)
}

func ReadClassNames(r io.Reader) (ClassNames, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read class names header: %w", err)
	}

	names := make(ClassNames)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read class names: %w", err)
		}
		if len(row) < 6 {
			return nil, fmt.Errorf("class row %v has %d columns, want 6", row, len(row))
		}
		idx, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid class index %q: %w", row[0], err)
		}
		names[idx] = strings.Split(row[5], ";")[0]
	}
	return names, nil
}

// Name returns the name of the 0-based predicted class.
func (n ClassNames) Name(class int) string {
	if name, ok := n[class+1]; ok {
		return name
	}
	return fmt.Sprintf("class %d", class)
}
