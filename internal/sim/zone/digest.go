package zone

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// stateDigest hashes every participant's authoritative state in id order.
// Two zones that processed the same inputs produce the same digest.
func (z *Zone) stateDigest() string {
	ids := make([]string, 0, len(z.participants))
	for id := range z.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		p := z.participants[id]
		fmt.Fprintf(h, "%s|%s|%d|%d|%d|%t;", p.ID, p.MapID, p.X, p.Y, p.Dir, p.Moving)
	}
	return hex.EncodeToString(h.Sum(nil))
}
