package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/clever-forecast/internal/models"
)

var requestFile string

func init() {
	predictCmd.Flags().StringVarP(&requestFile, "request", "r", "", "Path to a JSON game request (- for stdin)")
	_ = predictCmd.MarkFlagRequired("request")
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run one prediction and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readRequest(requestFile)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := buildApp(ctx, cfg, appLog)
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.predictor.Predict(ctx, req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func readRequest(path string) (*models.GameRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}

	var req models.GameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}
