package channel

import "context"

type Repository interface {
	GetChannelByID(ctx context.Context, id int64) (*Channel, error)
	GetPackageByID(ctx context.Context, id int64) (*Package, error)
	GetPlanByID(ctx context.Context, id int64) (*Plan, error)
	// ResolveChannels expands a purchase target to its concrete channel set:
	// a single channel, or every active channel in a package.
	ResolveChannels(ctx context.Context, targetType TargetType, targetID int64) ([]Channel, error)
}
