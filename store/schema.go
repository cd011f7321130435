package store

import "fmt"

// DynamoDB single-table design constants.
const (
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrEntityType = "entity_type"

	EntityTypeWorkflow = "Workflow"
	EntityTypeStep     = "Step"
)

// Workflow meta row keys: PK=WF#{workflowID}, SK=META
func workflowPK(workflowID string) string {
	return fmt.Sprintf("WF#%s", workflowID)
}

func workflowSK() string {
	return "META"
}

// Step row keys: PK=WF#{workflowID}, SK=STEP#{stepKey}
func stepPK(workflowID string) string {
	return fmt.Sprintf("WF#%s", workflowID)
}

func stepSK(stepKey string) string {
	return fmt.Sprintf("STEP#%s", stepKey)
}

// stepPrefix is used to range-scan all step rows for a workflow via
// begins_with(SK, "STEP#").
func stepPrefix() string {
	return "STEP#"
}
