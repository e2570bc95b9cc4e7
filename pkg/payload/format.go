package payload

import (
	"fmt"
	"strings"
)

type Format int

const (
	FormatUndefined = Format(iota)
	FormatAuto
	FormatHex
	FormatRaw
)

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "<undefined>"
	case FormatAuto:
		return "auto"
	case FormatHex:
		return "hex"
	case FormatRaw:
		return "raw"
	default:
		return fmt.Sprintf("unknown_format_%d", int(f))
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "hex":
		return FormatHex, nil
	case "raw", "h264", "annexb":
		return FormatRaw, nil
	}
	return FormatUndefined, fmt.Errorf("unknown payload format '%s'", s)
}

// Set implements pflag.Value.
func (f *Format) Set(s string) error {
	v, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Type implements pflag.Value.
func (f *Format) Type() string {
	return "payload-format"
}
