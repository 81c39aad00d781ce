package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleetsight/watchtower/internal/core/config"
	"github.com/fleetsight/watchtower/internal/rules"
	"github.com/fleetsight/watchtower/internal/store"
	"github.com/fleetsight/watchtower/internal/types"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage rule definitions",
}

var rulesLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load rule definitions from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesLoad,
}

func init() {
	rulesCmd.AddCommand(rulesLoadCmd)
	rootCmd.AddCommand(rulesCmd)
}

// ruleFile is the on-disk rule definition format: the persisted rule columns
// with the condition and action documents inline.
type ruleFile struct {
	RuleID     string          `json:"rule_id"`
	RuleSetID  string          `json:"rule_set_id"`
	Name       string          `json:"name"`
	Priority   int             `json:"priority"`
	Active     bool            `json:"active"`
	EntityKind string          `json:"entity_kind"`
	Condition  json.RawMessage `json:"condition"`
	Actions    json.RawMessage `json:"actions"`
}

func runRulesLoad(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	st, err := openStore(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.DB().Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read rule file: %w", err)
	}
	var docs []ruleFile
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("failed to parse rule file: %w", err)
	}

	ctx := context.Background()
	for _, doc := range docs {
		cond, err := store.DecodeCondition(doc.Condition)
		if err != nil {
			return fmt.Errorf("rule %s: %w", doc.RuleID, err)
		}
		actions, err := store.DecodeActions(doc.Actions)
		if err != nil {
			return fmt.Errorf("rule %s: %w", doc.RuleID, err)
		}
		rule := &rules.Rule{
			ID:         types.RuleID(doc.RuleID),
			Name:       doc.Name,
			Priority:   doc.Priority,
			Active:     doc.Active,
			EntityKind: types.TransactionKind(doc.EntityKind),
			Condition:  cond,
			Actions:    actions,
		}

		// Reject malformed rules at load time rather than letting the
		// snapshot loader skip them later.
		if _, err := rules.Compile(rule); err != nil {
			return fmt.Errorf("rule %s: %w", doc.RuleID, err)
		}

		if err := st.InsertRule(ctx, rule, doc.RuleSetID, doc.Condition, doc.Actions); err != nil {
			return err
		}
		fmt.Printf("loaded rule %s (%s)\n", doc.RuleID, doc.Name)
	}
	return nil
}
