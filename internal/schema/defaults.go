package schema

import (
	"strconv"
	"time"
)

const (
	// DefaultMaxFileSize is the upload limit when no schema file overrides it.
	DefaultMaxFileSize int64 = 100 * 1024 * 1024
	// DefaultProcessingTimeout bounds a single ingestion run.
	DefaultProcessingTimeout = 5 * time.Minute
	// DefaultImpact and DefaultEffort stand in for missing OSR scores.
	DefaultImpact = 5.0
	DefaultEffort = 5.0
)

// Canonical column names read by the metrics engine.
const (
	ColMaterial    = "Material"
	ColDescription = "Description"
	ColPlant       = "Plant"
	ColRegion      = "Region"
	ColValue       = "Value"
	ColQuantity    = "Quantity"
	ColUtilization = "Utilization"
	ColThroughput  = "Throughput"
	ColSnapshot    = "Snapshot Date"

	ColIssueID   = "Issue ID"
	ColSeverity  = "Severity"
	ColImpact    = "Impact"
	ColEffort    = "Effort"
	ColUrgency   = "Urgency"
	ColRiskLevel = "Risk Level"
	ColTrend     = "Trend"
	ColHealth    = "Health"
	ColWeight    = "Weight"
	ColIndicator = "Indicator"
	ColReported  = "Reported"
)

func nonNegative(name string) ValidationRule {
	return ValidationRule{Kind: RuleMin, Bound: 0, Message: name + " must not be negative"}
}

func scoreRange(name string, max float64) []ValidationRule {
	return []ValidationRule{
		nonNegative(name),
		{Kind: RuleMax, Bound: max, Message: name + " must be at most " + strconv.FormatFloat(max, 'f', -1, 64)},
	}
}

// Default returns the built-in schema for inventory and OSR workbooks.
func Default() SchemaConfig {
	return SchemaConfig{
		Version:           "1",
		MaxFileSize:       DefaultMaxFileSize,
		AllowedExtensions: []string{".xlsx", ".xls", ".xlsm"},
		ProcessingTimeout: DefaultProcessingTimeout,
		SkipEmptyRows:     true,
		TrimStrings:       true,
		Metrics: MetricsDefaults{
			DefaultImpact: DefaultImpact,
			DefaultEffort: DefaultEffort,
		},
		Sheets: []SheetSchema{
			{
				CanonicalName: "FG value",
				Aliases:       []string{"Finished Goods Value", "FG Val", "FG_Value", "Inventory"},
				Category:      CategoryInventory,
				Columns: []ColumnSchema{
					{
						CanonicalName: ColMaterial,
						Aliases:       []string{"Item", "SKU", "Material Number", "Item Code"},
						ValueType:     TypeString,
						Required:      true,
						Rules:         []ValidationRule{{Kind: RuleMinLength, Bound: 1, Message: "Material must not be empty"}},
					},
					{
						CanonicalName: ColDescription,
						Aliases:       []string{"Material Description", "Item Description"},
						ValueType:     TypeString,
						Rules:         []ValidationRule{{Kind: RuleMaxLength, Bound: 256, Message: "Description is longer than 256 characters"}},
					},
					{CanonicalName: ColPlant, Aliases: []string{"Location", "Site", "Plant Code"}, ValueType: TypeString},
					{CanonicalName: ColRegion, Aliases: []string{"Geography", "Country", "Area"}, ValueType: TypeString},
					{
						CanonicalName: ColValue,
						Aliases:       []string{"FG Value", "Total Value", "Inventory Value", "Amount"},
						ValueType:     TypeNumber,
						Required:      true,
						Rules:         []ValidationRule{nonNegative("Value")},
					},
					{CanonicalName: ColQuantity, Aliases: []string{"Qty", "On Hand"}, ValueType: TypeNumber, Rules: []ValidationRule{nonNegative("Quantity")}},
					{CanonicalName: ColUtilization, Aliases: []string{"Utilization %", "Capacity Utilization"}, ValueType: TypeNumber, Rules: []ValidationRule{nonNegative("Utilization")}},
					{CanonicalName: ColThroughput, Aliases: []string{"Throughput Rate", "Units/Day"}, ValueType: TypeNumber, Rules: []ValidationRule{nonNegative("Throughput")}},
					{CanonicalName: ColSnapshot, Aliases: []string{"Date", "As Of"}, ValueType: TypeDate},
				},
			},
			{
				CanonicalName: "Plant Summary",
				Aliases:       []string{"Plants", "Plant Efficiency"},
				Category:      CategoryInventory,
				Optional:      true,
				Columns: []ColumnSchema{
					{CanonicalName: ColPlant, Aliases: []string{"Location", "Site", "Plant Code"}, ValueType: TypeString, Required: true},
					{CanonicalName: ColRegion, Aliases: []string{"Geography", "Country", "Area"}, ValueType: TypeString},
					{CanonicalName: ColUtilization, Aliases: []string{"Utilization %", "Capacity Utilization"}, ValueType: TypeNumber, Rules: []ValidationRule{nonNegative("Utilization")}},
					{CanonicalName: ColThroughput, Aliases: []string{"Throughput Rate", "Units/Day"}, ValueType: TypeNumber, Rules: []ValidationRule{nonNegative("Throughput")}},
				},
			},
			{
				CanonicalName: "OSR Issues",
				Aliases:       []string{"OSR", "Issues", "Stock Risk", "Over-Stock Report"},
				Category:      CategoryOSR,
				Columns: []ColumnSchema{
					{CanonicalName: ColIssueID, Aliases: []string{"ID", "Ref", "Reference"}, ValueType: TypeString},
					{
						CanonicalName: ColDescription,
						Aliases:       []string{"Issue", "Summary"},
						ValueType:     TypeString,
						Required:      true,
						Rules:         []ValidationRule{{Kind: RuleMinLength, Bound: 1, Message: "Description must not be empty"}},
					},
					{
						CanonicalName: ColSeverity,
						Aliases:       []string{"Priority", "Criticality"},
						ValueType:     TypeString,
						Rules: []ValidationRule{{
							Kind:    RuleOneOf,
							Bound:   []string{"critical", "major", "minor", "high", "medium", "low"},
							Message: "Severity must be one of critical, major, minor, high, medium, low",
						}},
					},
					{CanonicalName: ColImpact, Aliases: []string{"Impact Score"}, ValueType: TypeNumber, Rules: scoreRange("Impact", 10)},
					{CanonicalName: ColEffort, Aliases: []string{"Effort Score", "Complexity"}, ValueType: TypeNumber, Rules: scoreRange("Effort", 10)},
					{CanonicalName: ColUrgency, Aliases: []string{"Timeline", "Risk"}, ValueType: TypeString},
					{CanonicalName: ColRiskLevel, Aliases: []string{"Risk Score"}, ValueType: TypeNumber, Rules: scoreRange("Risk Level", 10)},
					{CanonicalName: ColTrend, Aliases: []string{"Direction", "Status Trend"}, ValueType: TypeString},
					{CanonicalName: ColHealth, Aliases: []string{"Health Score", "Health %"}, ValueType: TypeNumber, Rules: scoreRange("Health", 100)},
					{CanonicalName: ColWeight, Aliases: []string{"Importance"}, ValueType: TypeNumber, Rules: []ValidationRule{nonNegative("Weight")}},
					{CanonicalName: ColValue, Aliases: []string{"Excess Value", "At Risk Value"}, ValueType: TypeNumber, Rules: []ValidationRule{nonNegative("Value")}},
					{CanonicalName: ColPlant, Aliases: []string{"Location", "Site"}, ValueType: TypeString},
					{CanonicalName: ColReported, Aliases: []string{"Date", "Reported Date"}, ValueType: TypeDate},
				},
			},
			{
				CanonicalName: "OSR Health",
				Aliases:       []string{"Health", "Health Indicators", "KPIs"},
				Category:      CategoryOSR,
				Optional:      true,
				Columns: []ColumnSchema{
					{CanonicalName: ColIndicator, Aliases: []string{"KPI", "Metric"}, ValueType: TypeString, Required: true},
					{CanonicalName: ColHealth, Aliases: []string{"Health Score", "Score", "Health %"}, ValueType: TypeNumber, Required: true, Rules: scoreRange("Health", 100)},
					{CanonicalName: ColWeight, Aliases: []string{"Importance"}, ValueType: TypeNumber, Rules: []ValidationRule{nonNegative("Weight")}},
					{CanonicalName: ColTrend, Aliases: []string{"Direction"}, ValueType: TypeString},
				},
			},
		},
	}
}
