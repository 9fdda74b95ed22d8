// Package transport abstracts the chat side of the bridge. The notification
// pipeline talks to a Sender; the Telegram implementation lives in the
// telegram subpackage.
package transport

import "context"

// ChatTarget identifies a destination chat.
type ChatTarget struct {
	ChatID int64
}

// Media is one binary upload. Filename and ContentType must be set so the
// transport does not mis-detect the payload as a generic binary stream.
type Media struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Sender delivers one message per call. Captions use the transport's markup
// language (HTML for Telegram); callers are responsible for escaping.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string) error
	SendPhoto(ctx context.Context, to ChatTarget, photo Media, caption string) error
	// SendAnimation and SendVideo accept an optional poster frame used as the
	// preview still.
	SendAnimation(ctx context.Context, to ChatTarget, anim Media, poster *Media, caption string) error
	SendVideo(ctx context.Context, to ChatTarget, video Media, poster *Media, caption string) error
}
