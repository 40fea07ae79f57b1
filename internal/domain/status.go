package domain

// Status 项目生命周期：PENDING -> IN_PROGRESS -> COMPLETED，只能前进
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

var statusOrder = map[Status]int{
	StatusPending:    0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

// CanAdvance 只允许相邻的前进一步
func CanAdvance(from, to Status) bool {
	f, ok1 := statusOrder[from]
	t, ok2 := statusOrder[to]
	return ok1 && ok2 && t == f+1
}

// CheckStatusUpdate 状态接口的前置检查。
// PENDING -> IN_PROGRESS 只能通过接受报价产生，这里一律拒绝。
func CheckStatusUpdate(p *Project, to Status) error {
	if p.Status == StatusCompleted {
		return InvalidState("Project is already completed")
	}
	if to != StatusCompleted {
		return InvalidState("Project status can only be changed to COMPLETED; accept a bid to start work")
	}
	if !CanAdvance(p.Status, to) {
		return InvalidState("Can only complete projects that are in progress")
	}
	if !p.HasDeliverable() {
		return InvalidState("Cannot complete project without uploading deliverable")
	}
	return nil
}
