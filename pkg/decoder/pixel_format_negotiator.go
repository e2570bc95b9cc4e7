package decoder

// PixelFormatNegotiator picks the output format among the candidates offered
// by the decoder. It is called from inside a decode call, so it must not
// block or keep a reference to candidates.
type PixelFormatNegotiator func(candidates []PixelFormat, preferred PixelFormat) PixelFormat

var _ PixelFormatNegotiator = SelectPixelFormat

// SelectPixelFormat returns preferred if it is offered, otherwise YUV420P,
// otherwise NV12, otherwise PixelFormatNone (which makes the decoder fail the
// negotiation). candidates end at the first PixelFormatNone element.
func SelectPixelFormat(
	candidates []PixelFormat,
	preferred PixelFormat,
) PixelFormat {
	candidates = terminatedPixelFormats(candidates)
	for _, want := range []PixelFormat{preferred, PixelFormatYUV420P, PixelFormatNV12} {
		if want == PixelFormatNone {
			continue
		}
		for _, pf := range candidates {
			if pf == want {
				return pf
			}
		}
	}
	return PixelFormatNone
}

func terminatedPixelFormats(candidates []PixelFormat) []PixelFormat {
	for idx, pf := range candidates {
		if pf == PixelFormatNone {
			return candidates[:idx]
		}
	}
	return candidates
}
