package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/brainnova/brainnova-score/internal/remote"
	"github.com/brainnova/brainnova-score/internal/resolver"
	"github.com/brainnova/brainnova-score/internal/scoring"
)

var (
	scoreReq   scoring.Request
	scoreLocal bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Resolve one Brainnova Score and print it as JSON",
	Example: `  brainnova-score score --pais España --periodo 2024
  brainnova-score score --pais España --periodo 2024 --provincia Valencia --local`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openStore(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "connect to database")
		}
		defer db.Close()

		engine := scoring.NewEngine(db, scoring.Policy(cfg.Scoring.AbsentDimensionPolicy), nil, logger)

		var result *scoring.ScoreResult
		if scoreLocal {
			result, err = engine.Compute(ctx, scoreReq)
		} else {
			result, err = resolver.New(newRemoteClient(cfg), engine, nil, nil, cfg.RemoteTimeout(), logger).
				Resolve(ctx, scoreReq)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(remote.EncodeResponse(result))
	},
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreReq.Region, "pais", "", "country or region (required)")
	f.IntVar(&scoreReq.Period, "periodo", 0, "reference year (required)")
	f.StringVar(&scoreReq.Province, "provincia", "", "province filter")
	f.StringVar(&scoreReq.Sector, "sector", "", "sector filter")
	f.StringVar(&scoreReq.Size, "tamano-empresa", "", "company size filter")
	f.BoolVar(&scoreLocal, "local", false, "skip the remote scorer and compute from the indicator tables")
	_ = scoreCmd.MarkFlagRequired("pais")
	_ = scoreCmd.MarkFlagRequired("periodo")
}
