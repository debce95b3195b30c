package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type seedRow struct {
	Line         int
	SKU          string
	Barcode      string
	Name         string
	Unit         string
	Cost         decimal.Decimal
	Quantity     int64
	MinStock     int64
	ReorderPoint int64
}

var requiredColumns = []string{"sku", "barcode", "name", "unit", "cost", "quantity"}

// parseCSV devuelve las filas válidas y un error por cada fila descartada.
// Un archivo que no es UTF-8 válido se decodifica como ISO-8859-1.
func parseCSV(raw []byte) ([]seedRow, []error) {
	var src io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		src = transform.NewReader(src, charmap.ISO8859_1.NewDecoder())
	}
	r := csv.NewReader(src)
	r.Comma = detectComma(raw)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, []error{fmt.Errorf("leer encabezado: %w", err)}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, []error{fmt.Errorf("falta la columna %q", c)}
		}
	}

	var rows []seedRow
	var errs []error
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("línea %d: %w", line, err))
			continue
		}
		row, err := toRow(rec, cols, line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}

func toRow(rec []string, cols map[string]int, line int) (seedRow, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	row := seedRow{Line: line, SKU: get("sku"), Barcode: get("barcode"), Name: get("name"), Unit: get("unit")}
	if row.SKU == "" || row.Name == "" {
		return row, fmt.Errorf("línea %d: sku y name son obligatorios", line)
	}
	var err error
	// el sistema anterior exporta el costo con coma decimal
	if row.Cost, err = decimal.NewFromString(strings.ReplaceAll(orZero(get("cost")), ",", ".")); err != nil || row.Cost.IsNegative() {
		return row, fmt.Errorf("línea %d: costo inválido %q", line, get("cost"))
	}
	if row.Quantity, err = strconv.ParseInt(orZero(get("quantity")), 10, 64); err != nil {
		return row, fmt.Errorf("línea %d: cantidad inválida %q", line, get("quantity"))
	}
	if row.MinStock, err = strconv.ParseInt(orZero(get("min_stock")), 10, 64); err != nil || row.MinStock < 0 {
		return row, fmt.Errorf("línea %d: min_stock inválido", line)
	}
	if row.ReorderPoint, err = strconv.ParseInt(orZero(get("reorder_point")), 10, 64); err != nil || row.ReorderPoint < 0 {
		return row, fmt.Errorf("línea %d: reorder_point inválido", line)
	}
	return row, nil
}

func detectComma(raw []byte) rune {
	first, _, _ := bytes.Cut(raw, []byte("\n"))
	if bytes.Count(first, []byte(";")) >= bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
