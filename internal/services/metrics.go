package services

// PerStoreSales divides total sales by the store count. A count of zero is
// divided as one, so the result is always finite.
func PerStoreSales(totalSales float64, storeCount int) float64 {
	if storeCount == 0 {
		storeCount = 1
	}
	return totalSales / float64(storeCount)
}
