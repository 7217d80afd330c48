// Command trade places a single order on the Binance USDT-M futures
// testnet from the command line.
//
// Usage examples:
//
//	trade -symbol BTCUSDT -side BUY -type MARKET -quantity 0.001
//	trade -symbol BTCUSDT -side SELL -type LIMIT -quantity 0.001 -price 90000
//	trade -symbol BTCUSDT -side BUY -type STOP_MARKET -quantity 0.001 -stop-price 85000
//	trade -symbol BTCUSDT -side SELL -type STOP -quantity 0.001 -stop-price 85000 -price 84900
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"futures-trader/internal/trading"
	"futures-trader/pkg/binance"
	"futures-trader/pkg/config"
	"futures-trader/pkg/logging"
)

// Exit codes by failure category.
const (
	exitOK         = 0
	exitUsage      = 1
	exitValidation = 2
	exitExchange   = 3
	exitTransport  = 4
)

func main() {
	var (
		symbol    = flag.String("symbol", "", "trading pair, e.g. BTCUSDT")
		side      = flag.String("side", "", "order side: BUY or SELL")
		orderType = flag.String("type", "", "order type: MARKET, LIMIT, STOP_MARKET or STOP")
		quantity  = flag.String("quantity", "", "order quantity in base asset")
		price     = flag.String("price", "", "limit price (LIMIT and STOP orders)")
		stopPrice = flag.String("stop-price", "", "stop trigger price (STOP_MARKET and STOP orders)")
		tif       = flag.String("tif", "GTC", "time in force for LIMIT orders: GTC, IOC or FOK")
		dryRun    = flag.Bool("dry-run", false, "validate inputs and print the request without placing the order")
		logLevel  = flag.String("log-level", "info", "log level: debug, info, warn or error")
	)
	flag.Parse()

	log, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(exitUsage)
	}
	defer log.Sync()

	printBanner()

	intent, err := trading.ParseIntent(trading.OrderInput{
		Symbol:      *symbol,
		Side:        *side,
		Kind:        *orderType,
		Quantity:    *quantity,
		Price:       *price,
		StopPrice:   *stopPrice,
		TimeInForce: *tif,
	})
	if err != nil {
		log.Error("input validation failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "validation error: %v\n", err)
		os.Exit(exitValidation)
	}

	printRequestSummary(intent)

	if *dryRun {
		fmt.Println("\ndry-run mode: order NOT placed")
		os.Exit(exitOK)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(exitUsage)
	}
	if !cfg.HasCredentials() {
		fmt.Fprintln(os.Stderr, "credential error: BINANCE_API_KEY and BINANCE_API_SECRET must be set")
		fmt.Fprintln(os.Stderr, "copy .env.example to .env and fill in your testnet credentials")
		os.Exit(exitUsage)
	}

	client := binance.NewClient(binance.Config{
		APIKey:      cfg.BinanceAPIKey,
		APISecret:   cfg.BinanceAPISecret,
		BaseURL:     cfg.BinanceBaseURL,
		RecvWindow:  cfg.RecvWindowMs,
		Timeout:     cfg.HTTPTimeout,
		MaxAttempts: cfg.MaxAttempts,
		Logger:      log.Named("binance"),
	})
	manager := trading.NewManager(client, log.Named("trading"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := manager.Submit(ctx, intent)
	if err != nil {
		os.Exit(reportFailure(log, err))
	}

	fmt.Println("\norder placed successfully")
	fmt.Println()
	fmt.Println(result.Summary())
}

// reportFailure prints a one-line categorized message and picks the exit code.
func reportFailure(log *zap.Logger, err error) int {
	var apiErr *binance.APIError
	if errors.As(err, &apiErr) {
		log.Error("order rejected by exchange", zap.Int64("code", apiErr.Code), zap.String("message", apiErr.Message))
		fmt.Fprintf(os.Stderr, "exchange error [%d]: %s\n", apiErr.Code, apiErr.Message)
		return exitExchange
	}
	var transportErr *binance.TransportError
	if errors.As(err, &transportErr) {
		log.Error("could not reach exchange", zap.Error(err))
		fmt.Fprintf(os.Stderr, "transport error: %v\n", err)
		return exitTransport
	}
	log.Error("unexpected error while placing order", zap.Error(err))
	fmt.Fprintf(os.Stderr, "unexpected error: %v\n", err)
	return exitUsage
}

func printBanner() {
	fmt.Println("=====================================================")
	fmt.Println("  Binance Futures Testnet (USDT-M) order placement")
	fmt.Println("=====================================================")
}

func printRequestSummary(i trading.Intent) {
	price := "N/A"
	if i.Price.IsPositive() {
		price = i.Price.String()
	}
	stop := "N/A"
	if i.StopPrice.IsPositive() {
		stop = i.StopPrice.String()
	}
	fmt.Println("\nOrder request summary")
	fmt.Printf("  Symbol      : %s\n", i.Symbol)
	fmt.Printf("  Side        : %s\n", i.Side)
	fmt.Printf("  Type        : %s\n", i.Kind)
	fmt.Printf("  Quantity    : %s\n", i.Quantity.String())
	fmt.Printf("  Price       : %s\n", price)
	fmt.Printf("  Stop price  : %s\n", stop)
	fmt.Printf("  TIF         : %s\n", i.TimeInForce)
}
