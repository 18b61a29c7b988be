package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskWorkflowRun = "workflows.run"

type WorkflowRunPayload struct {
	WorkflowID  string   `json:"workflowId"`
	TenantID    string   `json:"tenantId"`
	Identifiers []string `json:"identifiers,omitempty"`
}

func NewWorkflowRunTask(payload WorkflowRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWorkflowRun, data), nil
}

func ParseWorkflowRunPayload(task *asynq.Task) (WorkflowRunPayload, error) {
	var payload WorkflowRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WorkflowRunPayload{}, err
	}
	return payload, nil
}
