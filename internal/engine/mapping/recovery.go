package mapping

// recoverFactor separates the span index from the offset in a packed token.
// Packing uses multiplication and division so the full 64-bit range is
// available to offsets.
const recoverFactor = 65536

// Recovery identifies a position that fell inside a replaced span: the span's
// index within its RangeMap and the offset from the span's start, measured in
// the map's old coordinate space.
//
// A Recovery is only meaningful for the RangeMap that produced it, or for a
// map holding the exact same spans (its mirror).
type Recovery struct {
	Index  int
	Offset int64
}

// Token packs the recovery into a single scalar as index + offset*65536.
// The packing is lossless for indexes below 65536 and offsets below 2^48.
func (r Recovery) Token() uint64 {
	return uint64(r.Index) + uint64(r.Offset)*recoverFactor
}

// RecoveryFromToken decodes a scalar produced by Recovery.Token.
func RecoveryFromToken(token uint64) Recovery {
	index := token % recoverFactor
	return Recovery{
		Index:  int(index),
		Offset: int64((token - index) / recoverFactor),
	}
}
