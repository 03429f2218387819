package store

// User is the persisted record for one provisioned VPN user.
//
// ID is the caller-supplied unique key and never changes. PrivateKey and
// PublicKey are base64 strings; PublicKey is the peer's identity on the
// interface. IP is drawn from the configured subnet and unique among stored
// users; AllowedIPs is always the derived single-host route "<ip>/32".
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
	IP         string `json:"ip"`
	AllowedIPs string `json:"allowed_ips"`
}
