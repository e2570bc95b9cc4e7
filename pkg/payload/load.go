package payload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
)

// Load reads a compressed payload from path. FormatAuto treats files with the
// ".hex" or ".txt" extension as hex text and everything else as raw bytes.
func Load(
	ctx context.Context,
	path string,
	format Format,
) (_ret []byte, _err error) {
	logger.Debugf(ctx, "Load(ctx, '%s', %s)", path, format)
	defer func() { logger.Debugf(ctx, "/Load(ctx, '%s', %s): %d bytes, %v", path, format, len(_ret), _err) }()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read '%s': %w", path, err)
	}

	if format == FormatAuto || format == FormatUndefined {
		format = detectFormat(path)
	}

	switch format {
	case FormatRaw:
	case FormatHex:
		b, err = DecodeHex(string(b))
		if err != nil {
			return nil, fmt.Errorf("unable to decode the hex payload in '%s': %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unexpected payload format %s", format)
	}

	logger.Infof(ctx, "loaded %s of %s payload from '%s'", humanize.Bytes(uint64(len(b))), format, path)
	return b, nil
}

func detectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".txt":
		return FormatHex
	}
	return FormatRaw
}
