package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"DeclCast/internal/di"
	"DeclCast/internal/domain/models"
	"DeclCast/internal/usecase"
	"DeclCast/pkg/config"
	xhttp "DeclCast/pkg/http"
	"DeclCast/pkg/util"
)

var (
	recordsFile string
	customerID  string
	modelType   string
	horizonDays int
	forecastFor int
	testSize    int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithEnv(configPath)
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
		app, err := di.InitializeApp(cfg)
		if err != nil {
			return fmt.Errorf("app initialization failed: %w", err)
		}
		return app.Run()
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model from a records file and store it",
	Example: `  declcast train --file records.json --customer C1 --model forest
  declcast train --file records.json --customer C1 --model lstm --horizon 30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := readRecords(recordsFile)
		if err != nil {
			return err
		}
		req := &models.TrainRequest{CustomerID: customerID, ModelType: modelType, Horizon: horizonDays, Data: records}
		if verr := xhttp.Validate(req); verr != nil {
			return fmt.Errorf("invalid input: %v", verr)
		}
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := rt.UseCase.Train(cmd.Context(), usecase.TrainParams{
			CustomerID: req.CustomerID,
			ModelType:  req.ModelType,
			Horizon:    req.Horizon,
			Records:    req.Data,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"success":     true,
			"modeltype":   res.ModelType,
			"rows":        res.Rows,
			"duration_ms": res.Duration.Milliseconds(),
		})
	},
}

var evaluateCmd = &cobra.Command{
	Use:     "evaluate",
	Short:   "Evaluate a model on the held-out tail of a records file",
	Example: `  declcast evaluate --file records.json --customer C1 --model forest --test-size 60`,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := readRecords(recordsFile)
		if err != nil {
			return err
		}
		req := &models.EvaluateRequest{CustomerID: customerID, ModelType: modelType, TestSize: testSize, Data: records}
		if verr := xhttp.Validate(req); verr != nil {
			return fmt.Errorf("invalid input: %v", verr)
		}
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := rt.UseCase.Evaluate(cmd.Context(), usecase.EvaluateParams{
			CustomerID: req.CustomerID,
			ModelType:  req.ModelType,
			TestSize:   req.TestSize,
			Records:    req.Data,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.EvaluateResponse{
			Success:          true,
			ValidationMatrix: res.Record.Metrics,
			Message:          "run " + res.Record.RunID,
		})
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast from a stored model",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &models.ForecastRequest{CustomerID: customerID, ModelType: modelType, Horizon: forecastFor}
		if verr := xhttp.Validate(req); verr != nil {
			return fmt.Errorf("invalid input: %v", verr)
		}
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		points, err := rt.UseCase.Forecast(cmd.Context(), usecase.ForecastParams{
			CustomerID: req.CustomerID,
			ModelType:  req.ModelType,
			Horizon:    req.Horizon,
		})
		if err != nil {
			return err
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
		out := make([][2]interface{}, len(points))
		for i, p := range points {
			out[i] = [2]interface{}{util.FormatDate(p.Date), p.Value}
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	for _, c := range []*cobra.Command{trainCmd, evaluateCmd, forecastCmd} {
		c.Flags().StringVar(&customerID, "customer", "", "customer id")
		c.Flags().StringVar(&modelType, "model", "", "model type: arima, ets, forest, xgboost, rnn, lstm")
		_ = c.MarkFlagRequired("customer")
		_ = c.MarkFlagRequired("model")
	}
	for _, c := range []*cobra.Command{trainCmd, evaluateCmd} {
		c.Flags().StringVar(&recordsFile, "file", "", "JSON file with declaration records")
		_ = c.MarkFlagRequired("file")
	}
	trainCmd.Flags().IntVar(&horizonDays, "horizon", 0, "forecast horizon in days (defaults to models.default_horizon)")
	forecastCmd.Flags().IntVar(&forecastFor, "horizon", 30, "forecast horizon in days")
	evaluateCmd.Flags().IntVar(&testSize, "test-size", 0, "held-out rows (defaults to evaluation.test_size)")
}

func loadRuntime() (*di.Runtime, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	rt, err := di.InitializeRuntime(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialization failed: %w", err)
	}
	return rt, nil
}

// readRecords accepts either a bare JSON array of records or a request body
// with a "data" array.
func readRecords(path string) ([]models.RawRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	var records []models.RawRecord
	if err := json.Unmarshal(b, &records); err == nil {
		return records, nil
	}
	var body struct {
		Data []models.RawRecord `json:"data"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	return body.Data, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
