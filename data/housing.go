package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// LoadHousing reads the housing listings CSV: a header row, then one
// listing per line with the sale price in the first column and the
// features after it.
func LoadHousing(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return Set{}, fmt.Errorf("reading %s: %v", path, err)
	}
	if len(rows) < 2 {
		return Set{}, fmt.Errorf("%s has no data rows", path)
	}

	cols := len(rows[0]) - 1
	set := Set{
		X:    make([]float64, 0, (len(rows)-1)*cols),
		Y:    make([]float64, 0, len(rows)-1),
		Cols: cols,
	}
	for _, row := range rows[1:] {
		set.Y = append(set.Y, encodeField(row[0]))
		for _, field := range row[1:] {
			set.X = append(set.X, encodeField(field))
		}
	}
	return set, nil
}

// encodeField turns one CSV cell into a float. Numbers parse as-is,
// the yes/no and furnishing categories get fixed encodings, anything
// else becomes zero.
func encodeField(field string) float64 {
	if v, err := strconv.ParseFloat(field, 64); err == nil {
		return v
	}
	switch field {
	case "yes":
		return 1
	case "no":
		return 0
	case "furnished":
		return 1
	case "semi-furnished":
		return 0.5
	case "unfurnished":
		return 0
	}
	return 0
}
