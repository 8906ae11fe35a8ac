// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used within the match handlers. These provide
// more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided auth token was invalid or expired.
	InvalidSeatIDError    = 3002 // Seat ID from the query string was malformed or not part of the match.
	InvalidMatchIDError   = 3003 // Target match ID specified in the WS URL does not exist or is invalid.
)
