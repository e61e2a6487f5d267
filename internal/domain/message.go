package domain

// InlineButton is one clickable action attached to a rendered message.
type InlineButton struct {
	Text string
	URL  string
}

// RenderedMessage is C9's output: chat-ready text plus an optional grid of
// inline buttons (rows of buttons, matching the chat platform's keyboard
// layout).
type RenderedMessage struct {
	Text    string
	Buttons [][]InlineButton
}
