package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadConfig  = "E_BAD_CONFIG"
	ErrBadCommand = "E_BAD_COMMAND"
	ErrStopped    = "E_STOPPED"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadConfig:       {},
	ErrBadCommand:      {},
	ErrStopped:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
