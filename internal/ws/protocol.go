package ws

import (
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/sp500-explorer/internal/dashboard"
	"github.com/dgnsrekt/sp500-explorer/internal/selection"
)

// Message types
const (
	TypeConnected   = "connected"
	TypeRerun       = "rerun"
	TypeTicker      = "ticker"
	TypePage        = "page"
	TypeInvalidated = "invalidated"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeError       = "error"
)

// Upstream is a message sent by the browser.
type Upstream struct {
	Type      string                 `json:"type"`
	ID        uint64                 `json:"id,omitempty"`
	Selection *selection.Request     `json:"selection,omitempty"`
	Ticker    *dashboard.TickerQuery `json:"ticker,omitempty"`
}

// Downstream is a message sent to the browser. ID echoes the request it
// answers; pushed messages carry no ID.
type Downstream struct {
	Type         string                `json:"type"`
	ID           uint64                `json:"id,omitempty"`
	ConnectionID string                `json:"connection_id,omitempty"`
	Page         *dashboard.Page       `json:"page,omitempty"`
	Ticker       *dashboard.TickerPage `json:"ticker,omitempty"`
	Count        int                   `json:"count,omitempty"`
	Error        string                `json:"error,omitempty"`
}

func parseUpstream(data []byte) (*Upstream, error) {
	var msg Upstream
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal upstream message: %w", err)
	}
	switch msg.Type {
	case TypeRerun:
		if msg.Selection == nil {
			msg.Selection = &selection.Request{}
		}
	case TypeTicker:
		if msg.Ticker == nil {
			msg.Ticker = &dashboard.TickerQuery{}
		}
	case TypePing:
	default:
		return nil, fmt.Errorf("unknown message type: %q", msg.Type)
	}
	return &msg, nil
}

func connectedMessage(connID string) Downstream {
	return Downstream{Type: TypeConnected, ConnectionID: connID}
}

func invalidatedMessage(count int) Downstream {
	return Downstream{Type: TypeInvalidated, Count: count}
}

func errorMessage(id uint64, err error) Downstream {
	return Downstream{Type: TypeError, ID: id, Error: err.Error()}
}
