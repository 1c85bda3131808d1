package socketclient

import (
	"github.com/codefionn/auswahl/internal/protocol"
)

// SetChoices replaces the picker's choice set wholesale. The server side
// deduplicates ids, restores (priority, id, text) order and clamps the
// selection, so the set on screen may differ from the one passed in.
func (c *Client) SetChoices(choices protocol.ChoiceSet) error {
	return c.sendRequest(protocol.SetChoicesRequest{Choices: choices})
}

// SetInput replaces the picker's query text. In a fuzzy session the picker
// re-ranks the choices and moves the cursor to the best match, exactly as if
// the user had typed the text.
func (c *Client) SetInput(text string) error {
	return c.sendRequest(protocol.SetInputRequest{Text: text})
}

// Stop asks the picker to close. The session winds down asynchronously; wait
// for the events channel to end before treating it as over.
func (c *Client) Stop() error {
	return c.sendRequest(protocol.StopRequest{})
}
