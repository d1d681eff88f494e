package models

// Referral is an invite code with a remaining allowance. Owner is an account
// id, the deactivation marker "-", or empty for the global code.
type Referral struct {
	Code      string `json:"code"`
	Owner     string `json:"owner"`
	Allowance int    `json:"allowance"`
}

// RefInfo is the answer to a getRef lookup.
type RefInfo struct {
	DefaultRef string `json:"defaultRef,omitempty"`
}
