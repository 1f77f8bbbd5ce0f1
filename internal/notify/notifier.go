package notify

import "context"

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Notifier delivers a message to a user. Implementations can be swapped
// without touching the callers.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// WelcomeMessage is sent once a user finishes onboarding.
func WelcomeMessage(to string) Message {
	return Message{
		To:      to,
		Subject: "Welcome to EZ Eatin'!",
		HTML: `
			<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
				<h2 style="color: #333;">You're all set!</h2>
				<p>Thanks for telling us about your kitchen. Your first meal plan and shopping list are being prepared.</p>
				<p style="color: #888; font-size: 14px; margin-top: 16px;">
					You can update your preferences any time from your profile.
				</p>
			</div>
		`,
	}
}
