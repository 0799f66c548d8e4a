package token

import (
	"strings"
	"time"
)

const (
	addressHead = 6
	addressTail = 4
)

// TruncateAddress shortens an address to its first and last characters.
// Already shortened or short addresses are returned unchanged.
func TruncateAddress(address string) string {
	return TruncateAddressN(address, addressHead, addressTail)
}

// TruncateAddressN is TruncateAddress with explicit head and tail lengths.
func TruncateAddressN(address string, head, tail int) string {
	if address == "" || strings.Contains(address, "...") {
		return address
	}
	if head < 0 {
		head = 0
	}
	if tail < 0 {
		tail = 0
	}
	if len(address) <= head+tail {
		return address
	}
	return address[:head] + "..." + address[len(address)-tail:]
}

// FormatUpdated renders a unix timestamp as "15 January 2026" in UTC.
// A zero timestamp renders as an empty string.
func FormatUpdated(unix int64) string {
	if unix <= 0 {
		return ""
	}
	return time.Unix(unix, 0).UTC().Format("2 January 2006")
}
