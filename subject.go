package fxcore

import (
	"fmt"
	"strings"
)

// Entity identities are commonly email addresses, which contain characters
// that are not valid in NATS subject tokens or key-value keys ("." most
// notably). EncodeToken maps an identity to a single safe token. Letters,
// digits, "-" and "_" pass through; every other byte is escaped as "=XX"
// hex. The mapping is deterministic and collision-free, so the token is
// usable both as the stream subject suffix and as a view key. The original
// identity travels in event metadata.
func EncodeToken(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9',
			c == '-', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "=%02X", c)
		}
	}
	return b.String()
}

// Subject returns the stream subject for an entity identity.
func Subject(entity, id string) string {
	return fmt.Sprintf("%s.%s", entity, EncodeToken(id))
}
