package inventory

import "github.com/shopspring/decimal"

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// Con stock actual negativo o nulo el costo de la entrada reemplaza al anterior.
func CostCalculator(stockActual int64, costoActual decimal.Decimal, cantEntrada int64, costoEntrada decimal.Decimal) decimal.Decimal {
	if cantEntrada <= 0 {
		return costoActual
	}
	if stockActual <= 0 {
		return costoEntrada
	}
	actual := decimal.NewFromInt(stockActual)
	entrada := decimal.NewFromInt(cantEntrada)
	num := actual.Mul(costoActual).Add(entrada.Mul(costoEntrada))
	return num.Div(actual.Add(entrada)).Round(4)
}
