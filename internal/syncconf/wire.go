package syncconf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxPayloadBytes bounds one sync payload. The whole config file is a few
// kilobytes; anything near this limit is a broken or hostile peer.
const maxPayloadBytes = 1 << 20

// Frame prefixes payload with the sync protocol's header: the payload length
// as decimal ASCII terminated by a newline. The same framing is used in both
// directions.
func Frame(payload []byte) []byte {
	header := strconv.Itoa(len(payload))
	framed := make([]byte, 0, len(header)+1+len(payload))
	framed = append(framed, header...)
	framed = append(framed, '\n')
	framed = append(framed, payload...)
	return framed
}

// ReadFrame reads one length header line and exactly that many payload
// bytes. The caller bounds blocking with a read deadline on the underlying
// connection.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	length, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil {
		return nil, fmt.Errorf("parse frame header %q: %w", strings.TrimSpace(header), err)
	}
	if length < 0 || length > maxPayloadBytes {
		return nil, fmt.Errorf("frame length %d out of range", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}
