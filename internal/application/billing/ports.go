package billing

import (
	"context"
	"time"
)

// ArchiveStorage persists generated bill artifacts in object storage
// and hands out short-lived download links for them.
type ArchiveStorage interface {
	// Upload stores an artifact under the given key
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	// GenerateDownloadURL returns a presigned GET URL and its expiry
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	// ObjectExists reports whether an artifact is present
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
	// DeleteObject removes an artifact
	DeleteObject(ctx context.Context, storageKey string) error
}

// OutgoingMail is one message handed to the mailer
type OutgoingMail struct {
	To          []string
	Subject     string
	Body        string
	HTMLBody    string
	Attachments []MailAttachment
}

// MailAttachment is a file attached to an outgoing message
type MailAttachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Mailer sends bill notifications over SMTP
type Mailer interface {
	Send(ctx context.Context, msg OutgoingMail) error
}
