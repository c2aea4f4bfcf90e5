package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dfproto/protogen/internal/codegen/rules"
	"github.com/dfproto/protogen/internal/codegen/typetree"
)

// RulesCommand groups rule-file subcommands.
type RulesCommand struct {
	Check RulesCheck `cmd:"" help:"Validate override rule files"`
}

// RulesCheck parses rule files and, given definitions, finds selectors
// that match nothing.
type RulesCheck struct {
	Files   []string `arg:"" help:"Rule files" type:"existingfile"`
	Against string   `help:"Structure-definition directory or file to match selectors against" env:"PROTOGEN_RULES_AGAINST"`
	Strict  bool     `help:"Fail when a selector matches nothing" env:"PROTOGEN_RULES_STRICT"`
}

func (c *RulesCheck) Run(logger *slog.Logger) error {
	unmatched, err := c.Execute(logger)
	if err != nil {
		return err
	}
	if c.Strict && len(unmatched) > 0 {
		return fmt.Errorf("%d rules select nothing", len(unmatched))
	}
	return nil
}

// Execute loads the rule files and returns the selector rules that match
// no node of the definitions named by Against.
func (c *RulesCheck) Execute(logger *slog.Logger) ([]rules.Rule, error) {
	set, err := loadRules(c.Files)
	if err != nil {
		return nil, err
	}
	logger.Info("rules ok",
		"rename", len(set.Rules(rules.KindRename)),
		"ignore", len(set.Rules(rules.KindIgnore)),
		"index", len(set.Rules(rules.KindIndex)),
		"enum", len(set.Rules(rules.KindEnum)),
		"depends", len(set.Rules(rules.KindDepends)),
	)
	if c.Against == "" {
		return nil, nil
	}

	inputs, err := discoverInputs(c.Against)
	if err != nil {
		return nil, err
	}
	docs, err := loadDocuments(inputs)
	if err != nil {
		return nil, err
	}

	var unmatched []rules.Rule
	for _, r := range set.All() {
		if r.Selector == nil || selects(docs, r.Selector) {
			continue
		}
		logger.Warn("rule selects nothing", "rule", r.String(), "source", r.Source, "line", r.Line)
		unmatched = append(unmatched, r)
	}
	return unmatched, nil
}

func selects(docs []*typetree.Document, sel *rules.Selector) bool {
	for _, doc := range docs {
		for _, t := range doc.Types {
			// Walk reports false once the callback stopped it on a match.
			if !t.Walk(func(n *typetree.Node) bool { return !sel.Match(n) }) {
				return true
			}
		}
	}
	return false
}
