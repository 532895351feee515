package dms

// TableMappings is the DMS table-mapping document.
type TableMappings struct {
	Rules []MappingRule `json:"rules"`
}

type MappingRule struct {
	RuleType      string        `json:"rule-type"`
	RuleID        string        `json:"rule-id"`
	RuleName      string        `json:"rule-name"`
	ObjectLocator ObjectLocator `json:"object-locator"`
	RuleAction    string        `json:"rule-action"`
	Filters       []any         `json:"filters"`
}

type ObjectLocator struct {
	SchemaName string `json:"schema-name"`
	TableName  string `json:"table-name"`
}

// TaskSettings is the subset of replication task settings this stack sets.
type TaskSettings struct {
	FullLoadSettings FullLoadSettings `json:"FullLoadSettings"`
}

type FullLoadSettings struct {
	MaxFullLoadSubTasks int `json:"MaxFullLoadSubTasks"`
}

// SelectTable returns mappings that include exactly one table of one schema.
func SelectTable(schema, table string) TableMappings {
	return TableMappings{
		Rules: []MappingRule{
			{
				RuleType: "selection",
				RuleID:   "1",
				RuleName: "1",
				ObjectLocator: ObjectLocator{
					SchemaName: schema,
					TableName:  table,
				},
				RuleAction: "include",
				Filters:    []any{},
			},
		},
	}
}
