// Package models defines state structures for the step-flow micro-orchestrator.
package models

// StepFlowState is the per-chat state of the fixed-question step flow. It has an
// independent lifecycle from ConversationState: created on the start command,
// mutated per answer, deleted on completion or terminal fallback.
type StepFlowState struct {
	Step                    int               `json:"step"`
	Answers                 map[string]string `json:"answers"`
	WaitingForAssignConfirm bool              `json:"waiting_for_assign_confirm"`
}

// StepFlowSave is the payload emitted when the step flow completes.
type StepFlowSave struct {
	WorkLocation    string `json:"work_location"`
	RoomsCount      string `json:"rooms_count"`
	AssignResources bool   `json:"assign_resources"`
}
