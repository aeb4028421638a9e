// Package config is the venue's flag-parsed runtime configuration: listen
// address, fee schedule, and snapshot directory. The teacher never had a
// config layer of its own (cmd/main.go wired bare literals); this follows
// the pack's nearest idiom instead — a flag set of String/Int flags (fee
// rates are read as strings and parsed into decimals), parsed once by Parse
// when cmd/vellum/main.go starts, close to the style the teacher's own
// cmd/client/client.go uses for its CLI flags.
package config

import (
	"flag"

	"github.com/shopspring/decimal"

	"vellum/internal/common"
)

// Config holds everything cmd/vellum needs to start a venue server.
type Config struct {
	Address       string
	Port          int
	MakerFeeRate  decimal.Decimal
	TakerFeeRate  decimal.Decimal
	FeeCurrency   string
	SnapshotDir   string
	WebsocketAddr string
}

// Fees projects the fee-related fields into the type the engine expects.
func (c Config) Fees() common.FeeConfig {
	return common.FeeConfig{
		MakerRate:   c.MakerFeeRate,
		TakerRate:   c.TakerFeeRate,
		FeeCurrency: c.FeeCurrency,
	}
}

// Parse reads flags from args (normally os.Args[1:]) into a Config.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("vellum", flag.ContinueOnError)

	address := fs.String("address", "0.0.0.0", "TCP listen address")
	port := fs.Int("port", 9001, "TCP listen port for the order-entry protocol")
	wsAddr := fs.String("ws-address", "0.0.0.0:9002", "HTTP listen address for the trade-stream websocket")
	makerFeeRate := fs.String("maker-fee", "0.0010", "maker fee rate, as a decimal fraction of notional")
	takerFeeRate := fs.String("taker-fee", "0.0020", "taker fee rate, as a decimal fraction of notional")
	feeCurrency := fs.String("fee-currency", "USDT", "currency fees are denominated in")
	snapshotDir := fs.String("snapshot-dir", "./snapshots", "directory snapshot files are read from and written to")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	maker, err := decimal.NewFromString(*makerFeeRate)
	if err != nil {
		return Config{}, err
	}
	taker, err := decimal.NewFromString(*takerFeeRate)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Address:       *address,
		Port:          *port,
		WebsocketAddr: *wsAddr,
		MakerFeeRate:  maker,
		TakerFeeRate:  taker,
		FeeCurrency:   *feeCurrency,
		SnapshotDir:   *snapshotDir,
	}, nil
}
