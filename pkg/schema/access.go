package schema

// Access is one entry of the access log, written after a gated request.
type Access struct {
	TokenID   TokenID `json:"tokenId"`
	IP        string  `json:"ip"`
	Path      string  `json:"path"`
	Method    string  `json:"method"`
	Status    int     `json:"status"`
	Timestamp int64   `json:"timestamp"`
}
