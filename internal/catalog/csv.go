package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xaenox/shopbot-experiment/internal/models"
)

var requiredColumns = []string{"product_id", "product_name", "price", "headset_type", "core_function"}

// columnAliases maps alternate header spellings onto canonical names
var columnAliases = map[string]string{
	"battery_life(hours)": "battery_life",
}

// CSVProvider loads the catalog from a delimited file with a header row
type CSVProvider struct {
	Path string
}

func NewCSVProvider(path string) *CSVProvider {
	return &CSVProvider{Path: path}
}

func (p *CSVProvider) Load() ([]models.Product, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("error opening catalog %s: %w", p.Path, err)
	}
	defer f.Close()

	products, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("error loading catalog %s: %w", p.Path, err)
	}
	return products, nil
}

// ReadCSV parses catalog rows. It fails if any required column is absent
// or a row carries an unparseable numeric field.
func ReadCSV(r io.Reader) ([]models.Product, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		columns[name] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("catalog is missing required columns: %s", strings.Join(missing, ", "))
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var products []models.Product
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", line, err)
		}

		price, err := strconv.ParseFloat(field(record, "price"), 64)
		if err != nil || price <= 0 {
			return nil, fmt.Errorf("line %d: invalid price %q", line, field(record, "price"))
		}

		var battery int
		if raw := field(record, "battery_life"); raw != "" {
			if battery, err = strconv.Atoi(raw); err != nil {
				return nil, fmt.Errorf("line %d: invalid battery life %q", line, raw)
			}
		}

		sales, err := models.ParseSalesVolume(field(record, "sales_volume"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		coreFunction := field(record, "core_function")
		products = append(products, models.Product{
			ID:           strings.ToUpper(field(record, "product_id")),
			Name:         field(record, "product_name"),
			Price:        price,
			HeadsetType:  field(record, "headset_type"),
			CoreFunction: coreFunction,
			Functions:    models.SplitFunctions(coreFunction),
			Brand:        field(record, "brand"),
			BatteryLife:  battery,
			SalesVolume:  sales,
			Scenario:     field(record, "scenario"),
		})
	}

	return products, nil
}
