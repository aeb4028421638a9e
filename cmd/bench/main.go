// Command bench drives an in-process engine.Engine with a synthetic order
// flow and reports throughput/latency, the Go counterpart of
// original_source/engine/benchmark.py's measure_performance. Unlike
// cmd/client/client.go (deleted — it benchmarked over the wire against a
// running server), this measures the matching core directly, same as the
// Python original does against its in-process MatchingEngine.
package main

import (
	"flag"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"vellum/internal/common"
	"vellum/internal/engine"
)

func main() {
	numOrders := flag.Int("orders", 12000, "number of orders to submit")
	symbol := flag.String("symbol", "BTC-USDT", "symbol to trade")
	basePrice := flag.Int("base-price", 50000, "base price orders cluster around")
	flag.Parse()

	eng := engine.New(common.FeeConfig{
		MakerRate:   decimal.RequireFromString("0.001"),
		TakerRate:   decimal.RequireFromString("0.002"),
		FeeCurrency: "USDT",
	})

	latencies := make([]float64, 0, *numOrders)
	totalTrades := 0

	start := time.Now()
	for i := 0; i < *numOrders; i++ {
		order := syntheticOrder(i, *symbol, *basePrice)

		t0 := time.Now()
		trades, err := eng.Submit(order)
		elapsed := time.Since(t0)

		if err != nil {
			continue
		}
		latencies = append(latencies, float64(elapsed.Microseconds()))
		totalTrades += len(trades)
	}
	totalTime := time.Since(start)

	report(*numOrders, totalTime, latencies, totalTrades)
}

func syntheticOrder(i int, symbol string, basePrice int) common.Order {
	side := common.Buy
	offset := 0
	if i%2 != 0 {
		side = common.Sell
		offset = 200
	}
	price := decimal.NewFromInt(int64(basePrice + (i % 100) + offset))
	return common.Order{
		Symbol:   symbol,
		Type:     common.Limit,
		Side:     side,
		Quantity: decimal.NewFromInt(1),
		Price:    price,
	}
}

func report(numOrders int, totalTime time.Duration, latencies []float64, totalTrades int) {
	fmt.Printf("orders_per_second: %.2f\n", float64(numOrders)/totalTime.Seconds())
	fmt.Printf("total_time_seconds: %.4f\n", totalTime.Seconds())
	fmt.Printf("num_orders_processed: %d\n", numOrders)
	fmt.Printf("total_trades: %d\n", totalTrades)

	if len(latencies) == 0 {
		return
	}
	min, max, mean, median := latencyStats(latencies)
	fmt.Printf("latency_microseconds: min=%.2f max=%.2f mean=%.2f median=%.2f\n", min, max, mean, median)
}

func latencyStats(values []float64) (min, max, mean, median float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	min, max = sorted[0], sorted[len(sorted)-1]

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean = sum / float64(len(sorted))

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}
	return
}
