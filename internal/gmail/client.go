package gmail

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const user = "me"

// metadataHeaders are the only headers the organizer reads.
var metadataHeaders = []string{"From", "Subject"}

// GoogleService adapts *gmailv1.Service to the Service interface.
type GoogleService struct {
	svc *gmailv1.Service
}

// NewGoogleService builds the gmail/v1 adapter on top of a token
// source.
func NewGoogleService(ctx context.Context, ts oauth2.TokenSource) (*GoogleService, error) {
	svc, err := gmailv1.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &GoogleService{svc: svc}, nil
}

func (g *GoogleService) ListLabels(ctx context.Context) ([]Label, error) {
	res, err := g.svc.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	labels := make([]Label, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, Label{ID: l.Id, Name: l.Name})
	}
	return labels, nil
}

func (g *GoogleService) CreateLabel(ctx context.Context, name string) (Label, error) {
	created, err := g.svc.Users.Labels.Create(user, &gmailv1.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return Label{}, err
	}
	return Label{ID: created.Id, Name: created.Name}, nil
}

func (g *GoogleService) ListMessages(ctx context.Context, query, pageToken string, maxResults int64) (ListPage, error) {
	call := g.svc.Users.Messages.List(user).Q(query)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return ListPage{}, err
	}
	page := ListPage{
		NextPageToken: res.NextPageToken,
		SizeEstimate:  res.ResultSizeEstimate,
	}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, m.Id)
	}
	return page, nil
}

func (g *GoogleService) GetMessage(ctx context.Context, id string) (Message, error) {
	m, err := g.svc.Users.Messages.Get(user, id).
		Format("metadata").
		MetadataHeaders(metadataHeaders...).
		Context(ctx).Do()
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		ID:           m.Id,
		ThreadID:     m.ThreadId,
		LabelIDs:     m.LabelIds,
		InternalDate: m.InternalDate,
		SizeEstimate: m.SizeEstimate,
	}
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			switch h.Name {
			case "From":
				msg.From = h.Value
			case "Subject":
				msg.Subject = h.Value
			}
		}
	}
	return msg, nil
}

func (g *GoogleService) Modify(ctx context.Context, id string, spec ModifySpec) error {
	if spec.Empty() {
		return nil
	}
	_, err := g.svc.Users.Messages.Modify(user, id, &gmailv1.ModifyMessageRequest{
		AddLabelIds:    spec.Add,
		RemoveLabelIds: spec.Remove,
	}).Context(ctx).Do()
	return err
}

func (g *GoogleService) Trash(ctx context.Context, id string) error {
	_, err := g.svc.Users.Messages.Trash(user, id).Context(ctx).Do()
	return err
}
