// Package catalog loads the static study materials compiled into the
// binary: the decision tree, the ticket set, and the questionnaire.
// Load validates the materials against each other so a broken catalog
// fails at startup instead of mid-session.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/tud-hci/ticketlab/internal/model"
	"github.com/tud-hci/ticketlab/internal/tree"
)

//go:embed data/tree.json data/tickets.json data/survey.json
var dataFS embed.FS

// Catalog bundles the validated study materials.
type Catalog struct {
	Tree    *tree.Tree
	TreeDef model.DecisionTree
	Tickets []model.Ticket
	Survey  model.SurveyConfig
}

// Load parses and cross-validates the embedded catalog.
func Load() (*Catalog, error) {
	var def model.DecisionTree
	if err := loadJSON("data/tree.json", &def); err != nil {
		return nil, err
	}
	t, err := tree.New(def)
	if err != nil {
		return nil, fmt.Errorf("catalog: tree: %w", err)
	}

	var tickets []model.Ticket
	if err := loadJSON("data/tickets.json", &tickets); err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("catalog: no tickets defined")
	}
	seen := make(map[string]bool, len(tickets))
	for _, tk := range tickets {
		if seen[tk.ID] {
			return nil, fmt.Errorf("catalog: duplicate ticket id %q", tk.ID)
		}
		seen[tk.ID] = true
		if tk.ScheduledAppearance < 0 {
			return nil, fmt.Errorf("catalog: ticket %s: negative scheduled appearance", tk.ID)
		}
		if err := validateGoldStandard(t, tk); err != nil {
			return nil, err
		}
	}

	var survey model.SurveyConfig
	if err := loadJSON("data/survey.json", &survey); err != nil {
		return nil, err
	}
	if err := validateSurvey(survey); err != nil {
		return nil, err
	}

	return &Catalog{Tree: t, TreeDef: def, Tickets: tickets, Survey: survey}, nil
}

func loadJSON(name string, out any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("catalog: parse %s: %w", name, err)
	}
	return nil
}

// validateGoldStandard replays the ticket's canonical path through the
// tree and checks it terminates at the declared outcome.
func validateGoldStandard(t *tree.Tree, tk model.Ticket) error {
	gold := tk.GoldStandard
	if len(gold.Path) == 0 {
		return fmt.Errorf("catalog: ticket %s: empty gold path", tk.ID)
	}
	if gold.ResponseTemplate == "" {
		return fmt.Errorf("catalog: ticket %s: missing response template", tk.ID)
	}

	cur := t.RootID()
	for i, d := range gold.Path {
		if d.NodeID != cur {
			return fmt.Errorf("catalog: ticket %s: gold step %d visits %q, expected %q", tk.ID, i, d.NodeID, cur)
		}
		opt, ok := t.Option(d.NodeID, d.OptionID)
		if !ok {
			return fmt.Errorf("catalog: ticket %s: gold step %d: option %q not on node %q", tk.ID, i, d.OptionID, d.NodeID)
		}
		if d.OptionLabel != "" && d.OptionLabel != opt.Label {
			return fmt.Errorf("catalog: ticket %s: gold step %d: label %q does not match tree label %q", tk.ID, i, d.OptionLabel, opt.Label)
		}
		cur = opt.Next
	}

	if cur != gold.OutcomeID {
		return fmt.Errorf("catalog: ticket %s: gold path ends at %q, declared outcome is %q", tk.ID, cur, gold.OutcomeID)
	}
	node, ok := t.Node(cur)
	if !ok || node.Type != model.NodeOutcome {
		return fmt.Errorf("catalog: ticket %s: declared outcome %q is not an outcome node", tk.ID, gold.OutcomeID)
	}
	return nil
}

func validateSurvey(cfg model.SurveyConfig) error {
	if len(cfg.Questions) == 0 {
		return fmt.Errorf("catalog: survey has no questions")
	}
	seen := make(map[string]bool, len(cfg.Questions))
	for _, q := range cfg.Questions {
		if q.ID == "" {
			return fmt.Errorf("catalog: survey question with empty id")
		}
		if seen[q.ID] {
			return fmt.Errorf("catalog: duplicate survey question id %q", q.ID)
		}
		seen[q.ID] = true
		switch q.Type {
		case model.SurveyLikert:
			if q.Min >= q.Max {
				return fmt.Errorf("catalog: survey question %q: invalid likert range [%d, %d]", q.ID, q.Min, q.Max)
			}
		case model.SurveyText:
		default:
			return fmt.Errorf("catalog: survey question %q: unknown type %q", q.ID, q.Type)
		}
	}
	return nil
}
