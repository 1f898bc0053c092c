package sender

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/apexsend/sequence-engine/internal/model"
)

// MockSender stands in for a real email/SMS provider. It accepts every
// message with a valid address and mints a provider-style message id.
type MockSender struct {
	Channel string
}

func NewMockSender(channel string) *MockSender {
	return &MockSender{Channel: channel}
}

func (s *MockSender) Send(ctx context.Context, scope model.TenantScope, to string, content RenderedContent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if to == "" {
		return "", fmt.Errorf("recipient has no %s address", s.Channel)
	}

	externalID := s.Channel + "-" + uuid.NewString()
	log.Printf("[SENDER] Delivered %s message to %s (workspace %d, external id %s)", s.Channel, to, scope.ID, externalID)
	return externalID, nil
}

var _ Sender = (*MockSender)(nil)
