package reloc

// moveBytes copies src to dst where the two ranges may alias the same
// backing memory (a single record moving a short distance within its own
// span). The copy walks front-to-back when the destination lies below the
// source and back-to-front otherwise, so the overlapped tail or head is
// read before it is overwritten. This is the one copy primitive the mover
// uses; callers pass backward=true when the destination address is above
// the source address.
func moveBytes(dst, src []byte, backward bool) {
	if backward {
		for i := len(src) - 1; i >= 0; i-- {
			dst[i] = src[i]
		}
		return
	}
	for i := range src {
		dst[i] = src[i]
	}
}

// zeroBytes clears dst without touching any other memory.
func zeroBytes(dst []byte) {
	for i := range dst {
		dst[i] = 0
	}
}
