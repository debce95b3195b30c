package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestParseCSV_PuntoYComa(t *testing.T) {
	raw := []byte("sku;barcode;name;unit;cost;quantity;min_stock;reorder_point\n" +
		"AMOX-500;7701;Amoxicilina 500mg;caja;1250,50;40;5;10\n" +
		"ACET-1;;Acetaminofén;caja;300;0\n")

	rows, errs := parseCSV(raw)
	require.Empty(t, errs)
	require.Len(t, rows, 2)

	assert.Equal(t, "AMOX-500", rows[0].SKU)
	assert.Equal(t, "1250.5", rows[0].Cost.String())
	assert.Equal(t, int64(40), rows[0].Quantity)
	assert.Equal(t, int64(10), rows[0].ReorderPoint)
	assert.Equal(t, 2, rows[0].Line)

	assert.Equal(t, "Acetaminofén", rows[1].Name)
	assert.Equal(t, int64(0), rows[1].MinStock)
}

func TestParseCSV_Latin1(t *testing.T) {
	utf8Text := "sku,barcode,name,unit,cost,quantity\nIBU-4,7703,Ibuprofeno niño,frasco,800,12\n"
	latin1, err := charmap.ISO8859_1.NewEncoder().String(utf8Text)
	require.NoError(t, err)

	rows, errs := parseCSV([]byte(latin1))
	require.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ibuprofeno niño", rows[0].Name)
}

func TestParseCSV_FilasInvalidas(t *testing.T) {
	raw := []byte("sku;barcode;name;unit;cost;quantity\n" +
		";7701;Sin SKU;caja;1;1\n" +
		"X-1;;Costo malo;caja;abc;1\n" +
		"X-2;;Cantidad mala;caja;1;1.5\n" +
		"X-3;;Válido;caja;1;-2\n")

	rows, errs := parseCSV(raw)
	assert.Len(t, errs, 3)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(-2), rows[0].Quantity, "un saldo inicial negativo se deja al ledger")
}

func TestParseCSV_FaltaColumna(t *testing.T) {
	_, errs := parseCSV([]byte("sku;name\nA;B\n"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "barcode")
}
