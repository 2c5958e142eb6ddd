package ingest

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/coupn-app/coupn/internal/common"
)

// gmailUser is the special user ID for the authenticated account.
const gmailUser = "me"

// Mailbox lists and fetches email messages.
type Mailbox interface {
	// ListMessageIDs returns the IDs of the newest messages matching query.
	ListMessageIDs(ctx context.Context, query string, limit int64) ([]string, error)
	// GetMessage fetches a full message.
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
}

// GmailMailbox reads the authenticated user's Gmail.
type GmailMailbox struct {
	service *gmail.Service
}

// NewGmailMailbox creates a mailbox authorized by ts. Extra client options are
// applied after the token source.
func NewGmailMailbox(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*GmailMailbox, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &GmailMailbox{service: service}, nil
}

// ListMessageIDs returns message IDs newest first, as Gmail orders them.
func (m *GmailMailbox) ListMessageIDs(ctx context.Context, query string, limit int64) ([]string, error) {
	call := m.service.Users.Messages.List(gmailUser).Context(ctx).MaxResults(limit)
	if query != "" {
		call = call.Q(query)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w: %w", common.ErrMailboxUnavailable, err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

// GetMessage fetches the full message with its MIME payload.
func (m *GmailMailbox) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	msg, err := m.service.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w: %w", id, common.ErrMailboxUnavailable, err)
	}
	return msg, nil
}

var _ Mailbox = (*GmailMailbox)(nil)
