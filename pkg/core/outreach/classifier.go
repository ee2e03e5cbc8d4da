package outreach

import "strings"

// Reply is the classification of an inbound message body
type Reply int

const (
	ReplyUnknown Reply = iota
	ReplyPositive
	ReplyNegative
)

func (r Reply) String() string {
	switch r {
	case ReplyPositive:
		return "positive"
	case ReplyNegative:
		return "negative"
	default:
		return "unknown"
	}
}

var positiveReplies = map[string]bool{
	"yes":     true,
	"y":       true,
	"yeah":    true,
	"yep":     true,
	"ok":      true,
	"okay":    true,
	"sure":    true,
	"confirm": true,
}

var negativeReplies = map[string]bool{
	"no":             true,
	"n":              true,
	"nope":           true,
	"not interested": true,
	"decline":        true,
	"pass":           true,
}

// Classify maps a free-text inbound message body to a reply classification.
// Case-insensitive exact match against small fixed vocabularies; anything
// else is ReplyUnknown and the system does not guess.
func Classify(body string) Reply {
	normalized := strings.ToLower(strings.TrimSpace(body))
	normalized = strings.TrimRight(normalized, ".!")

	if positiveReplies[normalized] {
		return ReplyPositive
	}
	if negativeReplies[normalized] {
		return ReplyNegative
	}
	return ReplyUnknown
}
