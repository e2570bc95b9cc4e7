package payload

import (
	"bytes"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/bits"
)

var startCode = []byte{0, 0, 0, 1}

// NALUnit is one NAL unit of an Annex-B stream; Data starts with the NAL
// header, the start code is not included.
type NALUnit struct {
	Type avc.NaluType
	Data []byte
}

func (u NALUnit) IsSlice() bool {
	return u.Type != 0 && avc.IsVideoNaluType(u.Type)
}

// startsPicture reports whether a slice starts a new picture, i.e.
// first_mb_in_slice (the first field of the slice header) equals zero.
func (u NALUnit) startsPicture() bool {
	if !u.IsSlice() || len(u.Data) < 2 {
		return false
	}
	r := bits.NewEBSPReader(bytes.NewReader(u.Data[1:]))
	firstMB := r.ReadExpGolomb()
	return r.AccError() == nil && firstMB == 0
}

// SplitNALUnits splits an Annex-B byte stream at the start codes. Bytes
// before the first start code are ignored.
func SplitNALUnits(data []byte) []NALUnit {
	var result []NALUnit
	for _, nalu := range avc.ExtractNalusFromByteStream(data) {
		if len(nalu) == 0 {
			continue
		}
		result = append(result, NALUnit{
			Type: avc.GetNaluType(nalu[0]),
			Data: nalu,
		})
	}
	return result
}

// SplitAccessUnits groups the NAL units of an Annex-B stream into access
// units, each one an Annex-B stream with 4-byte start codes. A new unit
// begins at an AUD, SEI, SPS or PPS following a slice, and at a slice with
// first_mb_in_slice equal to zero following a slice.
func SplitAccessUnits(data []byte) [][]byte {
	var (
		result   [][]byte
		cur      []byte
		hasSlice bool
	)
	for _, u := range SplitNALUnits(data) {
		if hasSlice {
			switch u.Type {
			case avc.NALU_AUD, avc.NALU_SEI, avc.NALU_SPS, avc.NALU_PPS:
				result, cur, hasSlice = append(result, cur), nil, false
			default:
				if u.startsPicture() {
					result, cur, hasSlice = append(result, cur), nil, false
				}
			}
		}
		cur = append(cur, startCode...)
		cur = append(cur, u.Data...)
		if u.IsSlice() {
			hasSlice = true
		}
	}
	if cur != nil {
		result = append(result, cur)
	}
	return result
}
