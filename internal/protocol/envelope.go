package protocol

import (
	"fmt"

	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
)

// BodyLength sums len(tag)+len(value)+2 over every scalar in g, depth
// first, excluding 8, 9 and 10.
func BodyLength(g *group.Group) int {
	n := 0
	for tag, value := range g.Scalars() {
		switch tag {
		case schema.TagBeginString, schema.TagBodyLength, schema.TagCheckSum:
			continue
		}
		n += len(tagvalue.Itoa(tag)) + len(value) + 2
	}
	return n
}

// CheckSum sums the bytes of every scalar except 10 as they appear on the
// wire, '=' and SOH included, modulo 256.
func CheckSum(g *group.Group) int {
	sum := 0
	for tag, value := range g.Scalars() {
		if tag == schema.TagCheckSum {
			continue
		}
		for _, b := range tagvalue.Itoa(tag) {
			sum += int(b)
		}
		for _, b := range value {
			sum += int(b)
		}
		sum += int(tagvalue.Separator) + int(tagvalue.DefaultDelimiter)
	}
	return sum % 256
}

// FormatCheckSum renders n as the three digit checksum value.
func FormatCheckSum(n int) []byte {
	return fmt.Appendf(nil, "%03d", n)
}

// CheckSumBytes computes the checksum over raw SOH-delimited bytes that
// precede the 10= field.
func CheckSumBytes(raw []byte) int {
	sum := 0
	for _, b := range raw {
		sum += int(b)
	}
	return sum % 256
}
