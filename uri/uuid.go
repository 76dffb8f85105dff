package uri

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"braces.dev/errtrace"
)

// UUIDLen is the buffer size required by [AssembleUUID], terminator included.
const UUIDLen = 46

// HashFunc computes the digest used by [AssembleUUID].
// Only the first 16 bytes of the digest are used.
var HashFunc = func(data []byte) []byte {
	sum := md5.Sum(data)
	return sum[:]
}

// RandomSource supplies the random salt of [AssembleUUID].
var RandomSource io.Reader = rand.Reader

// AssembleUUID writes a "urn:uuid:" URN for the object identified by server, port,
// name and number into buf and returns its length. An empty name is replaced by server.
// The UUID is a version 3 UUID built from the hash of the identifiers and random salt,
// so repeated calls give different results.
func AssembleUUID(server string, port int, name string, number int, buf []byte) (int, error) {
	if len(buf) < UUIDLen {
		clearBuf(buf)
		return 0, errtrace.Wrap(StatusOverflow)
	}
	if name == "" {
		name = server
	}

	var salt [4]byte
	if _, err := io.ReadFull(RandomSource, salt[:]); err != nil {
		clearBuf(buf)
		return 0, errtrace.Wrap(err)
	}

	data := fmt.Appendf(nil, "%s:%d:%s:%d:%04x:%04x",
		server, port, name, number,
		binary.BigEndian.Uint16(salt[:2]), binary.BigEndian.Uint16(salt[2:]))
	sum := HashFunc(data)
	if len(sum) < 16 {
		clearBuf(buf)
		return 0, errtrace.Wrap(StatusBadArguments)
	}

	var u [16]byte
	copy(u[:], sum)
	u[6] = u[6]&0x0f | 0x30
	u[8] = u[8]&0x3f | 0x40

	out := fmt.Appendf(buf[:0], "urn:uuid:%x-%x-%x-%x-%x", u[:4], u[4:6], u[6:8], u[8:10], u[10:])
	buf[len(out)] = 0
	return len(out), nil
}
