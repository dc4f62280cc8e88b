package leave

import (
	"context"
	"time"
)

type StoreAPI interface {
	Get(ctx context.Context, id string) (Leave, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Leave, int, error)
	HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error)
	CreateWithBalance(ctx context.Context, l Leave) (Leave, error)
	ReviewWithBalance(ctx context.Context, id string, review Review) (Leave, error)
	CancelWithBalance(ctx context.Context, id string, today time.Time) (Leave, error)

	ListPolicies(ctx context.Context, activeOnly bool) ([]Policy, error)
	PolicyByType(ctx context.Context, leaveType string) (Policy, error)
	CreatePolicy(ctx context.Context, p Policy) (Policy, error)
	UpdatePolicy(ctx context.Context, id string, in PolicyUpdate) (Policy, error)

	GetBalance(ctx context.Context, employeeID string, year int) (Balance, error)
	CreateBalance(ctx context.Context, b Balance) (Balance, error)
	Profile(ctx context.Context, employeeID string) (Profile, error)
	ActiveEmployeeIDs(ctx context.Context) ([]string, error)
}
