package gmail

import "context"

// Service is the narrow Gmail surface the organizer requires. The
// gmail/v1 adapter implements it for production; tests substitute
// in-memory fakes.
type Service interface {
	ListLabels(ctx context.Context) ([]Label, error)
	CreateLabel(ctx context.Context, name string) (Label, error)
	ListMessages(ctx context.Context, query, pageToken string, maxResults int64) (ListPage, error)
	GetMessage(ctx context.Context, id string) (Message, error)
	Modify(ctx context.Context, id string, spec ModifySpec) error
	Trash(ctx context.Context, id string) error
}
