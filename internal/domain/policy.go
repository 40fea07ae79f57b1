package domain

// Actor 已认证的调用方
type Actor struct {
	ID    string
	Email string
	Role  Role
}

type Capability int

const (
	CapCreateProject Capability = iota + 1
	CapPlaceBid
	CapAcceptBid
	CapUpdateStatus
	CapUploadDeliverable
	CapReview
)

// Authorize 纯函数：只看角色与归属，不看项目状态。
// 对 CapCreateProject / CapPlaceBid，p 可以为 nil。
func Authorize(a Actor, c Capability, p *Project) error {
	switch c {
	case CapCreateProject:
		if a.Role != RoleBuyer {
			return Forbidden("Only buyers can create projects")
		}
	case CapPlaceBid:
		if a.Role != RoleSeller {
			return Forbidden("Only sellers can place bids")
		}
		if p != nil && p.BuyerID == a.ID {
			return Forbidden("You cannot bid on your own project")
		}
	case CapAcceptBid:
		if p == nil || a.Role != RoleBuyer || p.BuyerID != a.ID {
			return Forbidden("Only the project owner can accept bids")
		}
	case CapUpdateStatus:
		if p == nil || (p.BuyerID != a.ID && !p.AssignedTo(a.ID)) {
			return Forbidden("Only the project owner or assigned seller can update status")
		}
	case CapUploadDeliverable:
		if p == nil || a.Role != RoleSeller || !p.AssignedTo(a.ID) {
			return Forbidden("Only the assigned seller can upload deliverables")
		}
	case CapReview:
		if p == nil || a.Role != RoleBuyer || p.BuyerID != a.ID {
			return Forbidden("Only the project owner can review this project")
		}
	default:
		return Forbidden("Operation not permitted")
	}
	return nil
}
