package booking

import "github.com/azusa-tani/kajishift-backend/internal/models"

// Caller identifies who is performing an operation. Role comes from the
// JWT claims; every operation's allowed-caller set is checked against it
// here rather than ad hoc in handlers.
type Caller struct {
	ID   uint
	Role models.Role
}

func (c Caller) IsCustomer() bool { return c.Role == models.RoleCustomer }
func (c Caller) IsWorker() bool   { return c.Role == models.RoleWorker }
func (c Caller) IsAdmin() bool    { return c.Role == models.RoleAdmin }

// CanAccess reports whether the caller may read the given booking:
// its customer, its assigned worker, or an admin.
func (c Caller) CanAccess(b *models.Booking) bool {
	if c.IsAdmin() {
		return true
	}
	if c.IsCustomer() {
		return b.CustomerID == c.ID
	}
	if c.IsWorker() {
		return b.WorkerID != nil && *b.WorkerID == c.ID
	}
	return false
}
