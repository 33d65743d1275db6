package hll

// denseStorage is a bit vector composed of uint32 words.  Each word holds
// settings.registersPerWord whole registers, least significant register first,
// so that no register ever spans two words.  The unused high bits of every
// word and the padding registers of the final word are always zero.
type denseStorage []uint32

// newDenseStorage allocates a new instance with sufficient space to store all
// of the register values.
func newDenseStorage(settings *settings) denseStorage {
	return make(denseStorage, settings.wordsCapacity)
}

// sizeInBytes returns the number of bytes required to serialize every word.
func (s denseStorage) sizeInBytes() int {
	return 4 * len(s)
}

func (s denseStorage) copy() denseStorage {
	o := make(denseStorage, len(s))
	copy(o, s)
	return o
}

// get extracts a single register value.
func (s denseStorage) get(settings *settings, regnum int) uint8 {
	idx, shift := settings.position(regnum)
	return uint8((s[idx] >> shift) & settings.registerMask)
}

// set overwrites the register regnum with value.  value is expected to fit in
// settings.regwidth bits.
func (s denseStorage) set(settings *settings, regnum int, value uint8) {
	idx, shift := settings.position(regnum)
	s[idx] = (s[idx] &^ (settings.registerMask << shift)) | (uint32(value) << shift)
}

// setIfGreater sets the register value of register regnum to the provided value
// if and only if it's greater than the current value.  It returns the value the
// register held before the call.
func (s denseStorage) setIfGreater(settings *settings, regnum int, value uint8) uint8 {
	idx, shift := settings.position(regnum)
	word := s[idx]
	current := uint8((word >> shift) & settings.registerMask)
	if value > current {
		s[idx] = (word &^ (settings.registerMask << shift)) | (uint32(value) << shift)
	}
	return current
}

// indicator computes the "indicator function" (Z in the HLL paper).  It
// additionally returns the number of registers whose value is zero (V in the
// paper).
//
// For reference, Z = indicator(2^(-M[j])) for all j from 0 -> num registers
// where M[j] is the register value.
func (s denseStorage) indicator(settings *settings) (float64, int) {

	sum := float64(0)
	numberOfZeros := 0

	regnum := 0
	width := uint(settings.regwidth)

	for _, word := range s {
		for j := 0; j < settings.registersPerWord && regnum < settings.registerCount; j++ {
			value := word & settings.registerMask
			word >>= width

			sum += 1.0 / float64(uint64(1)<<value)
			if value == 0 {
				numberOfZeros++
			}
			regnum++
		}
	}

	return sum, numberOfZeros
}

// countZeros returns the number of registers whose value is zero.
func (s denseStorage) countZeros(settings *settings) int {
	numberOfZeros := 0
	for i := 0; i < settings.registerCount; i++ {
		if s.get(settings, i) == 0 {
			numberOfZeros++
		}
	}
	return numberOfZeros
}

// paddingClear reports whether every bit that does not belong to a register is
// zero.
func (s denseStorage) paddingClear(settings *settings) bool {
	for _, word := range s {
		if word&^settings.usedBitsMask != 0 {
			return false
		}
	}
	slots := settings.wordsCapacity * settings.registersPerWord
	for i := settings.registerCount; i < slots; i++ {
		if s.get(settings, i) != 0 {
			return false
		}
	}
	return true
}

// union is a special operation on denseStorage that will union other into the
// receiver as a linear pass through the two backing slices, keeping the
// maximum of each pair of registers.  It returns the number of zero registers
// in the result.
func (s denseStorage) union(settings *settings, other denseStorage) int {
	return s.merge(settings, other, true)
}

// intersect keeps the minimum of each pair of registers.  It returns the
// number of zero registers in the result.
func (s denseStorage) intersect(settings *settings, other denseStorage) int {
	return s.merge(settings, other, false)
}

func (s denseStorage) merge(settings *settings, other denseStorage, keepMax bool) int {

	mask := settings.registerMask
	width := uint(settings.regwidth)

	zeros := 0

	for idx, thisWord := range s {
		otherWord := other[idx]
		computed := uint32(0)
		shift := uint(0)

		for j := 0; j < settings.registersPerWord; j++ {
			thisValue := (thisWord >> shift) & mask
			otherValue := (otherWord >> shift) & mask

			if keepMax {
				if otherValue > thisValue {
					thisValue = otherValue
				}
			} else if otherValue < thisValue {
				thisValue = otherValue
			}

			computed |= thisValue << shift
			if thisValue == 0 {
				zeros++
			}
			shift += width
		}

		s[idx] = computed
	}

	// the padding registers of the final word are always zero and have been
	// counted above.
	return zeros - settings.paddingRegisters
}
