package model

// NodeType discriminates the two decision-tree node variants.
type NodeType string

const (
	NodeDecision NodeType = "decision"
	NodeOutcome  NodeType = "outcome"
)

// FieldType is the input kind of an outcome field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldCheckbox FieldType = "checkbox"
)

// TreeOption is one selectable branch of a decision node.
type TreeOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Next  string `json:"next"`
}

// TreeField is a data-entry field required to close a ticket at an
// outcome node.
type TreeField struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	HelperText  string    `json:"helperText,omitempty"`
}

// TreeNode is a node in the decision tree. Decision nodes carry Options;
// outcome nodes carry Fields.
type TreeNode struct {
	ID      string       `json:"id"`
	Type    NodeType     `json:"type"`
	Prompt  string       `json:"prompt"`
	Title   string       `json:"title,omitempty"`
	Options []TreeOption `json:"options,omitempty"`
	Fields  []TreeField  `json:"fields,omitempty"`
}

// DecisionTree is the static graph loaded from the catalog.
type DecisionTree struct {
	RootID string              `json:"rootId"`
	Nodes  map[string]TreeNode `json:"nodes"`
}
