// README: Icebreaker suggestions for matched riders, metered per month.
package icebreaker

import "errors"

var (
	// ErrInsufficientTokens is returned when a rider has no tokens remaining for the current month.
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrDisabled           = errors.New("icebreakers are not enabled")
)

// DefaultTokens is the number of tokens granted per month.
const DefaultTokens = 20

type Suggestion struct {
	Text            string   `json:"text"`
	SharedInterests []string `json:"shared_interests"`
}
