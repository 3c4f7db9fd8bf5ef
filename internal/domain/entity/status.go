package entity

// Status is an entry in the document status registry. Workflow steps
// bind one by id; its code is written verbatim into the document's
// status field while an instance sits on that step.
type Status struct {
	ID    int64  `json:"id"`
	Code  string `json:"code"`
	Label string `json:"label"`
}
