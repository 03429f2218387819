// Package clientconf renders client-side tunnel configuration text.
//
// The consuming client is strict about field names and ordering, so the
// layout is built as an explicit ordered list of key/value lines rather than
// ad-hoc string concatenation. Render is a pure function: identical inputs
// produce byte-identical output.
package clientconf

import (
	"strconv"
	"strings"

	"github.com/awgman/awgman/pkg/store"
)

// Params carries the server-side and obfuscation settings that go into every
// rendered client config. The H and I fields are optional; empty values are
// omitted from the output.
type Params struct {
	ServerPublicKey string
	ServerEndpoint  string
	ServerPort      int
	DNS             string

	// Junk packet count and size bounds.
	Jc   int
	Jmin int
	Jmax int

	// Per-message-type padding lengths.
	S1 int
	S2 int
	S3 int
	S4 int

	// Per-message-type header overrides, emitted only when set.
	H1 string
	H2 string
	H3 string
	H4 string

	// Signature packets, emitted only when set.
	I1 string
	I2 string
	I3 string
	I4 string
	I5 string
}

// keepaliveInterval is the fixed PersistentKeepalive value in seconds.
const keepaliveInterval = 25

// line is one "Key = Value" entry; optional lines are dropped when the
// value is empty.
type line struct {
	key      string
	value    string
	optional bool
}

// Render produces the client configuration for a user. Field order within
// each section is a compatibility contract and must not change.
func Render(user store.User, p Params) string {
	interfaceLines := []line{
		{key: "PrivateKey", value: user.PrivateKey},
		{key: "Address", value: user.IP + "/32"},
		{key: "DNS", value: p.DNS},
		{key: "Jc", value: strconv.Itoa(p.Jc)},
		{key: "Jmin", value: strconv.Itoa(p.Jmin)},
		{key: "Jmax", value: strconv.Itoa(p.Jmax)},
		{key: "S1", value: strconv.Itoa(p.S1)},
		{key: "S2", value: strconv.Itoa(p.S2)},
		{key: "S3", value: strconv.Itoa(p.S3)},
		{key: "S4", value: strconv.Itoa(p.S4)},
		{key: "H1", value: p.H1, optional: true},
		{key: "H2", value: p.H2, optional: true},
		{key: "H3", value: p.H3, optional: true},
		{key: "H4", value: p.H4, optional: true},
		{key: "I1", value: p.I1, optional: true},
		{key: "I2", value: p.I2, optional: true},
		{key: "I3", value: p.I3, optional: true},
		{key: "I4", value: p.I4, optional: true},
		{key: "I5", value: p.I5, optional: true},
	}

	peerLines := []line{
		{key: "PublicKey", value: p.ServerPublicKey},
		{key: "Endpoint", value: p.ServerEndpoint + ":" + strconv.Itoa(p.ServerPort)},
		{key: "AllowedIPs", value: "0.0.0.0/0"},
		{key: "PersistentKeepalive", value: strconv.Itoa(keepaliveInterval)},
	}

	var b strings.Builder
	writeSection(&b, "Interface", interfaceLines)
	b.WriteString("\n")
	writeSection(&b, "Peer", peerLines)
	return b.String()
}

func writeSection(b *strings.Builder, name string, lines []line) {
	b.WriteString("[")
	b.WriteString(name)
	b.WriteString("]\n")
	for _, l := range lines {
		if l.optional && l.value == "" {
			continue
		}
		b.WriteString(l.key)
		b.WriteString(" = ")
		b.WriteString(l.value)
		b.WriteString("\n")
	}
}
