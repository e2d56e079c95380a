package dcc

import (
	"errors"
	"net/netip"
	"strconv"
	"strings"
)

// ErrInvalidAddress is returned when a DCC address is neither an integer nor
// an IP literal.
var ErrInvalidAddress = errors.New("dcc: invalid address")

// FormatAddress encodes an address the way it goes on the wire in DCC
// requests. IPv4 addresses become the decimal form of the four octets as a
// big-endian unsigned integer, "127.0.0.1" is "2130706433". IPv6 addresses are
// written out as eight colon separated groups without compression.
func FormatAddress(addr netip.Addr) string {
	addr = addr.Unmap()

	if addr.Is4() {
		octets := addr.As4()
		value := uint32(octets[0])<<24 | uint32(octets[1])<<16 | uint32(octets[2])<<8 | uint32(octets[3])

		return strconv.FormatUint(uint64(value), 10)
	}

	bytes := addr.As16()
	groups := make([]string, 8)
	for i := range groups {
		group := uint16(bytes[i*2])<<8 | uint16(bytes[i*2+1])
		groups[i] = strconv.FormatUint(uint64(group), 16)
	}

	return strings.Join(groups, ":")
}

// ParseAddress decodes a DCC address. An all-digit string is taken as the
// integer form of an IPv4 address, anything else must be an IPv4 or IPv6
// literal.
func ParseAddress(s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, ErrInvalidAddress
	}

	if isDigits(s) {
		value, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return netip.Addr{}, ErrInvalidAddress
		}

		return netip.AddrFrom4([4]byte{
			byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value),
		}), nil
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, ErrInvalidAddress
	}

	return addr.Unmap(), nil
}

// NormalizeAddress parses and re-emits an address, turning IPv6 literals into
// the uncompressed form used by FormatAddress and dotted IPv4 addresses into
// their integer form.
func NormalizeAddress(s string) (string, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", err
	}

	return FormatAddress(addr), nil
}

func isDigits(s string) bool {
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	return true
}
