package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simtrade/config"
	"simtrade/logger"
	"simtrade/pkg/storage/postgres"
)

const importChunkSize = 500

var (
	importOHLCVPath   string
	importBalancePath string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load archive rows from CSV",
	Long: `Import loads archived series into postgres. Re-importing a file is safe:
rows whose (currency, subtype, date) already exist are skipped.

OHLCV columns:   currency,subtype,category,date,open,high,low,close,volume
Balance columns: currency,subtype,date,assets,liabilities,equity

A header row is detected by its first column and skipped.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importOHLCVPath, "ohlcv", "", "CSV file of daily candles")
	importCmd.Flags().StringVar(&importBalancePath, "balance", "", "CSV file of balance-sheet snapshots")
}

func runImport(cmd *cobra.Command, args []string) error {
	if importOHLCVPath == "" && importBalancePath == "" {
		return fmt.Errorf("nothing to import: pass --ohlcv and/or --balance")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	pg, err := postgres.Initialize(cfg.Postgres, cfg.Log.Environment, true)
	if err != nil {
		return err
	}
	defer pg.Close()

	ctx := context.Background()

	if importOHLCVPath != "" {
		n, err := importOHLCV(ctx, pg, importOHLCVPath)
		if err != nil {
			return fmt.Errorf("import ohlcv: %w", err)
		}
		log.Info("ohlcv imported", zap.String("file", importOHLCVPath), zap.Int64("rows", n))
	}
	if importBalancePath != "" {
		n, err := importBalance(ctx, pg, importBalancePath)
		if err != nil {
			return fmt.Errorf("import balance: %w", err)
		}
		log.Info("balance imported", zap.String("file", importBalancePath), zap.Int64("rows", n))
	}
	return nil
}

func readCSV(path, headerCol string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] == headerCol {
		rows = rows[1:]
	}
	return rows, nil
}

func parseFloats(row []string, from int) ([]float64, error) {
	out := make([]float64, len(row)-from)
	for i, raw := range row[from:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func importOHLCV(ctx context.Context, pg *postgres.PostgresClient, path string) (int64, error) {
	rows, err := readCSV(path, "currency")
	if err != nil {
		return 0, err
	}

	records := make([]postgres.OHLCVRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) != 9 {
			return 0, fmt.Errorf("line %d: want 9 columns, got %d", i+1, len(row))
		}
		vals, perr := parseFloats(row, 4)
		if perr != nil {
			return 0, fmt.Errorf("line %d: %w", i+1, perr)
		}
		records = append(records, postgres.OHLCVRecord{
			Currency: row[0],
			Subtype:  row[1],
			Category: row[2],
			Date:     row[3],
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		})
	}
	return insertOHLCVChunks(ctx, pg, records)
}

func importBalance(ctx context.Context, pg *postgres.PostgresClient, path string) (int64, error) {
	rows, err := readCSV(path, "currency")
	if err != nil {
		return 0, err
	}

	records := make([]postgres.BalanceRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) != 6 {
			return 0, fmt.Errorf("line %d: want 6 columns, got %d", i+1, len(row))
		}
		vals, perr := parseFloats(row, 3)
		if perr != nil {
			return 0, fmt.Errorf("line %d: %w", i+1, perr)
		}
		records = append(records, postgres.BalanceRecord{
			Currency:    row[0],
			Subtype:     row[1],
			Date:        row[2],
			Assets:      vals[0],
			Liabilities: vals[1],
			Equity:      vals[2],
		})
	}

	var total int64
	for start := 0; start < len(records); start += importChunkSize {
		end := min(start+importChunkSize, len(records))
		n, ierr := pg.InsertBalanceBatch(ctx, records[start:end])
		if ierr != nil {
			return total, ierr
		}
		total += n
	}
	return total, nil
}

func insertOHLCVChunks(ctx context.Context, pg *postgres.PostgresClient, records []postgres.OHLCVRecord) (int64, error) {
	var total int64
	for start := 0; start < len(records); start += importChunkSize {
		end := min(start+importChunkSize, len(records))
		n, err := pg.InsertOHLCVBatch(ctx, records[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
