package labels

import (
	"encoding/csv"
	"github.com/pkg/errors"
	"io"
	"strconv"
)

var csvHeader = []string{"region", "filename", "highway", "bicycle", "cycleway", "lanes", "maxspeed", "oneway", "label"}

func WriteCSV(rows []Row, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)

	err := csvWriter.Write(csvHeader)
	if err != nil {
		return errors.Wrap(err, "Unable to write CSV header")
	}

	for _, row := range rows {
		err = csvWriter.Write([]string{
			row.Region,
			row.Filename,
			row.Highway,
			row.Bicycle,
			row.Cycleway,
			row.Lanes,
			row.MaxSpeed,
			row.OneWay,
			strconv.Itoa(row.Label),
		})
		if err != nil {
			return errors.Wrapf(err, "Unable to write CSV row for %s", row.Filename)
		}
	}

	csvWriter.Flush()
	return errors.Wrap(csvWriter.Error(), "Unable to flush CSV")
}

// ReadCSV reads rows written by WriteCSV. Columns are identified by the header, so the column order doesn't matter.
func ReadCSV(reader io.Reader) ([]Row, error) {
	csvReader := csv.NewReader(reader)

	header, err := csvReader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read CSV header")
	}

	columns := map[string]int{}
	for i, name := range header {
		columns[name] = i
	}
	for _, required := range []string{"filename", "label"} {
		if _, ok := columns[required]; !ok {
			return nil, errors.Errorf("CSV header has no column '%s'", required)
		}
	}

	var rows []Row
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "Unable to read CSV record")
		}

		value := func(column string) string {
			if i, ok := columns[column]; ok && i < len(record) {
				return record[i]
			}
			return ""
		}

		label, err := strconv.Atoi(value("label"))
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid label of %s", value("filename"))
		}

		rows = append(rows, Row{
			Region:   value("region"),
			Filename: value("filename"),
			Highway:  value("highway"),
			Bicycle:  value("bicycle"),
			Cycleway: value("cycleway"),
			Lanes:    value("lanes"),
			MaxSpeed: value("maxspeed"),
			OneWay:   value("oneway"),
			Label:    label,
		})
	}

	return rows, nil
}
