package provider

import (
	"github.com/AlhasanIQ/mcp-clarify/contract"
)

// Channel is an elicitation channel owned by its creator, who closes it.
type Channel interface {
	contract.Elicitor
	Close() error
}
