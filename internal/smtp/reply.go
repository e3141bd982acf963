package smtp

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/astromail/verifier/types"
)

// maxReplyBytes bounds the accumulated text of a single (possibly
// multi-line) reply. Exceeding it is a protocol violation.
const maxReplyBytes = 8 * 1024

// ErrProtocolViolation wraps malformed-reply errors so callers can
// distinguish them from plain transport/timeout errors if they need to.
var ErrProtocolViolation = errors.New("smtp: protocol violation")

// readReply reads one logical SMTP reply from r: one or more lines
// sharing a 3-digit code, terminated by a line whose 4th character is a
// space (continuation lines use a hyphen there). The caller is
// responsible for setting a read deadline on the underlying connection
// before calling this.
func readReply(r *bufio.Reader) (types.SmtpReply, error) {
	var texts []string
	var code int
	var total int

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return types.SmtpReply{}, fmt.Errorf("read smtp reply: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")

		total += len(line)
		if total > maxReplyBytes {
			return types.SmtpReply{}, fmt.Errorf("%w: reply exceeds %d bytes", ErrProtocolViolation, maxReplyBytes)
		}
		if len(line) < 3 || line[0] < '0' || line[0] > '9' {
			return types.SmtpReply{}, fmt.Errorf("%w: reply line %q has no numeric code", ErrProtocolViolation, line)
		}

		lineCode, err := strconv.Atoi(line[:3])
		if err != nil || lineCode < 100 || lineCode > 599 {
			return types.SmtpReply{}, fmt.Errorf("%w: reply code %q out of range", ErrProtocolViolation, line[:3])
		}
		if len(texts) == 0 {
			code = lineCode
		}

		text := ""
		if len(line) > 4 {
			text = line[4:]
		}
		texts = append(texts, text)

		// hyphen in the 4th position means a continuation line follows;
		// anything else (space, or no 4th character) is the final line.
		if len(line) >= 4 && line[3] == '-' {
			continue
		}
		break
	}

	return types.SmtpReply{Code: code, Text: strings.Join(texts, " | ")}, nil
}
