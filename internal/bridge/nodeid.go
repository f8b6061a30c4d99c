package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gopcua/opcua/ua"
)

// parseStrictNodeID parses a node id in the ns=<n>;<type>=<value> notation.
// ua.ParseNodeID falls back to treating any bare string as a ns=0 string id,
// which silently accepts typos like "85" or "ns=2". Configured and
// caller-supplied ids must name the identifier type explicitly.
func parseStrictNodeID(s string) (*ua.NodeID, error) {
	rest := s
	if strings.HasPrefix(rest, "ns=") {
		sep := strings.Index(rest, ";")
		if sep < 0 {
			return nil, fmt.Errorf("node id %q: missing identifier after namespace", s)
		}
		if _, err := strconv.ParseUint(rest[3:sep], 10, 16); err != nil {
			return nil, fmt.Errorf("node id %q: bad namespace index", s)
		}
		rest = rest[sep+1:]
	}
	switch {
	case strings.HasPrefix(rest, "i="),
		strings.HasPrefix(rest, "s="),
		strings.HasPrefix(rest, "g="),
		strings.HasPrefix(rest, "b="):
		return ua.ParseNodeID(s)
	}
	return nil, fmt.Errorf("node id %q: identifier must start with i=, s=, g= or b=", s)
}
