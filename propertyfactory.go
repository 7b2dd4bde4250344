package cfb

import (
	"fmt"

	"github.com/logicossoftware/go-cfb/binrec"
	"go.uber.org/zap"
)

// convertProperties turns directory blocks into a flat list with one entry
// per slot. Slots with unknown types stay nil so that positions keep
// matching the on-disk links.
func convertProperties(blocks [][]byte, bs BlockSize, limits Limits, log *zap.Logger) ([]*Property, error) {
	var out []*Property
	for bi, b := range blocks {
		if len(b)%PropertySize != 0 {
			return nil, fmt.Errorf("%w: directory block %d is %d bytes", binrec.ErrTruncated, bi, len(b))
		}
		for off := 0; off < len(b); off += PropertySize {
			if len(out) >= limits.MaxProperties {
				return nil, fmt.Errorf("%w: more than %d property slots", ErrLimitExceeded, limits.MaxProperties)
			}
			p, err := decodeProperty(b, off, bs, log)
			if err != nil {
				return nil, err
			}
			if p != nil {
				p.Index = uint32(len(out))
			}
			out = append(out, p)
		}
	}
	return out, nil
}
