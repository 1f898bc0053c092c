package sender

import (
	"context"

	"github.com/apexsend/sequence-engine/internal/model"
)

// RenderedContent is what a provider receives: a rendered subject (email
// only) and body.
type RenderedContent struct {
	Subject string
	Body    string
}

// Sender delivers one message through a channel provider. Implementations
// must be safe to call at most once per claimed row: no internal retries
// that could double-send without returning a stable external id.
type Sender interface {
	Send(ctx context.Context, scope model.TenantScope, to string, content RenderedContent) (externalID string, err error)
}
