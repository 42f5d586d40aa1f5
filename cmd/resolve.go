package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"home_dispatch/internal/matcher"
	"home_dispatch/internal/nlu"
	"home_dispatch/internal/service"

	"github.com/spf13/cobra"
)

var resolveRulesOnly bool

var resolveCmd = &cobra.Command{
	Use:   "resolve [instruction]",
	Short: "Show how an instruction resolves, without dispatching it",
	Long: `Resolve runs the rule matcher and, when configured, the semantic classifier
against the current catalog and prints the resolution together with the
rendered command. Nothing is sent to the automation agent and nothing is
recorded in the execution log.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		store := newStore(cfg, log)
		if err := store.Load(); err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}

		var semantic *matcher.SemanticMatcher
		if !resolveRulesOnly {
			classifier, err := nlu.New(cmd.Context(), nlu.Config{
				Provider: cfg.NLU.Provider,
				APIKey:   cfg.NLU.APIKey,
				BaseURL:  cfg.NLU.BaseURL,
				Model:    cfg.NLU.Model,
				Timeout:  cfg.NLU.Timeout,
			})
			if err != nil {
				return fmt.Errorf("nlu: %w", err)
			}
			semantic = matcher.NewSemanticMatcher(classifier, cfg.NLU.Timeout, log.Named("nlu"))
		}

		// Preview never touches the dispatcher or the execution log.
		instr := service.NewInstructionService(store, matcher.NewResolver(semantic), nil, nil, log.Named("instructions"))
		preview, err := instr.Preview(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(preview)
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveRulesOnly, "rules-only", false, "skip the semantic classifier")
}
