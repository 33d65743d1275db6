package hll

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"math/bits"
	"slices"

	"github.com/pkg/errors"
)

// ErrIncompatible is returned by merge operations in cases where the two Hlls
// have different settings.
var ErrIncompatible = errors.New("cannot merge Hlls with different regwidth or log2m settings")

// ErrRegisterCount is returned by FromRegisters when the number of register
// values does not match the settings.
var ErrRegisterCount = errors.New("register count does not match settings")

// ErrRegisterOverflow is returned by FromRegisters when a register value does
// not fit in the configured register width.
var ErrRegisterOverflow = errors.New("register value exceeds register width")

// ErrWordCount is returned by FromWords when the number of words does not
// match the settings.
var ErrWordCount = errors.New("word count does not match settings")

// ErrPadding is returned by FromWords and FromBytes when bits that do not
// belong to any register are set.
var ErrPadding = errors.New("padding bits must be zero")

// Hll is a probabilistic set of hashed elements backed by a dense array of
// bit-packed registers.  It supports insert, union and intersection operations
// in addition to estimating the cardinality.
//
// The zero value is an empty set, provided that Defaults has been invoked with
// default settings.  Otherwise, operations on the zero value will cause a panic
// as it would be a coding error to attempt operations without first
// configuring the library.
//
// An Hll is not safe for concurrent mutation.  Distinct Hlls may be used from
// different goroutines freely.  Copying an Hll value shares its registers, use
// Clone for an independent copy.
type Hll struct {
	settings *settings
	storage  denseStorage

	// zeros is the number of registers whose value is zero.
	zeros int

	// insertions counts calls to the insert methods.  It is not a count of
	// distinct values.
	insertions uint64

	hasher Hasher
}

// NewHll creates a new, empty Hll with the provided settings.  It will return
// an error if the settings are invalid.  Since an application usually deals
// with homogeneous Hlls, it's preferable to install default settings and use
// the zero value.  This function is provided in case an application must
// juggle different configurations.
func NewHll(s Settings) (Hll, error) {

	settings, err := s.toInternal()
	if err != nil {
		return Hll{}, err
	}

	return newHll(settings), nil
}

func newHll(settings *settings) Hll {
	return Hll{
		settings: settings,
		storage:  newDenseStorage(settings),
		zeros:    settings.registerCount,
	}
}

// FromRegisters builds an Hll from one value per register.  The insertion
// count of the result is set to its rounded cardinality estimate since the
// true number of insertions is unknown.
func FromRegisters(s Settings, registers []uint8) (Hll, error) {

	settings, err := s.toInternal()
	if err != nil {
		return Hll{}, err
	}

	if len(registers) != settings.registerCount {
		return Hll{}, errors.Wrapf(ErrRegisterCount, "expected %d registers but got %d", settings.registerCount, len(registers))
	}

	h := newHll(settings)
	for i, value := range registers {
		if value > settings.maxRank {
			return Hll{}, errors.Wrapf(ErrRegisterOverflow, "register %d holds %d but at most %d fits", i, value, settings.maxRank)
		}
		h.storage.set(settings, i, value)
	}

	h.zeros = h.storage.countZeros(settings)
	h.insertions = saturatingUint64(math.Round(h.Estimate()))

	return h, nil
}

// FromWords builds an Hll from an already packed register array as returned by
// Words.  The words are copied.
func FromWords(s Settings, words []uint32) (Hll, error) {

	settings, err := s.toInternal()
	if err != nil {
		return Hll{}, err
	}

	return fromWords(settings, words)
}

func fromWords(settings *settings, words []uint32) (Hll, error) {

	if len(words) != settings.wordsCapacity {
		return Hll{}, errors.Wrapf(ErrWordCount, "expected %d words but got %d", settings.wordsCapacity, len(words))
	}

	h := Hll{settings: settings, storage: make(denseStorage, len(words))}
	copy(h.storage, words)

	if !h.storage.paddingClear(settings) {
		return Hll{}, ErrPadding
	}

	h.zeros = h.storage.countZeros(settings)

	return h, nil
}

// Settings returns the Settings for this Hll.
func (h *Hll) Settings() Settings {
	h.initOrPanic()
	return h.settings.toExternal()
}

// SetHasher replaces the Hasher used by Insert, InsertString and InsertUint64.
// Passing nil restores DefaultHasher.
func (h *Hll) SetHasher(hasher Hasher) {
	h.hasher = hasher
}

// Insert hashes b and adds it into the Hll.
func (h *Hll) Insert(b []byte) {
	h.InsertHash(h.getHasher().Sum64(b))
}

// InsertString hashes s and adds it into the Hll.
func (h *Hll) InsertString(s string) {
	h.Insert([]byte(s))
}

// InsertUint64 hashes the little endian encoding of v and adds it into the Hll.
func (h *Hll) InsertUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.Insert(buf[:])
}

// InsertSeq inserts every value produced by seq.
func (h *Hll) InsertSeq(seq iter.Seq[[]byte]) {
	for b := range seq {
		h.Insert(b)
	}
}

// InsertHash adds an already hashed value into the Hll.  The value is expected
// to have been hashed with a good hash function such as SipHash or xxHash.  If
// the value does not have sufficient entropy, then the resulting cardinality
// estimations will not be accurate.
func (h *Hll) InsertHash(hash uint64) {

	h.initOrPanic()

	// the top log2m bits select the register.
	regnum := int(hash >> uint(64-h.settings.log2m))

	// p(w): one plus the number of leading zeros of the bits remaining after the
	// index is removed.  the guard bit bounds the count so that the rank always
	// fits in a register.
	w := (hash << uint(h.settings.log2m)) | h.settings.guardMask
	rank := uint8(1 + bits.LeadingZeros64(w))

	h.insertions++

	if current := h.storage.setIfGreater(h.settings, regnum, rank); current == 0 {
		// rank is always at least one, so a zero register was just filled.
		h.zeros--
	}

	if debug {
		if rank > h.settings.maxRank {
			panic(fmt.Sprintf("rank %d exceeds register maximum %d", rank, h.settings.maxRank))
		}
		h.verify()
	}
}

// Insertions returns the number of insert calls made against this Hll.  Hlls
// built with FromRegisters report their rounded cardinality estimate instead.
func (h *Hll) Insertions() uint64 {
	h.initOrPanic()
	return h.insertions
}

// ZeroRegisters returns the number of registers whose value is zero.
func (h *Hll) ZeroRegisters() int {
	h.initOrPanic()
	return h.zeros
}

// Registers returns a copy of every register value in register order.
func (h *Hll) Registers() []uint8 {
	h.initOrPanic()
	registers := make([]uint8, h.settings.registerCount)
	for i := range registers {
		registers[i] = h.storage.get(h.settings, i)
	}
	return registers
}

// Words returns a copy of the packed register array.
func (h *Hll) Words() []uint32 {
	h.initOrPanic()
	return h.storage.copy()
}

// SizeInBytes returns the number of bytes needed to hold the register array and
// its counters.
func (h *Hll) SizeInBytes() int {
	h.initOrPanic()
	return h.storage.sizeInBytes() + h.settings.zeroCounterBits/8 + 8 /*insertions*/
}

// Equal reports whether both Hlls have the same settings and register values.
// Insertion counts and Hashers are not compared.
func (h *Hll) Equal(other Hll) bool {
	h.initOrPanic()
	other.initOrPanic()
	return h.settings.compatible(other.settings) && slices.Equal(h.storage, other.storage)
}

// Clone returns a deep copy of this Hll.
func (h *Hll) Clone() Hll {
	h.initOrPanic()
	o := *h
	o.storage = h.storage.copy()
	return o
}

// Clear resets every register of this Hll to zero.
func (h *Hll) Clear() {

	h.initOrPanic()

	clear(h.storage)
	h.zeros = h.settings.registerCount
	h.insertions = 0
}

// initOrPanic is used to lazily initialize a zero value to an empty Hll (in the
// presence of default settings) or to panic if the operation is being evaluated
// against an undefined Hll.  If there are no default settings, the zero value
// will also cause a panic.
func (h *Hll) initOrPanic() {

	// h is initialized if it has non-nil storage.  that will either happen by
	// lazy initialization or via explicit instantiation with NewHll
	if h.storage != nil {
		return
	}

	if h.settings == nil {
		defaults := getDefaults()
		if defaults == nil {
			panic("attempted operation on empty Hll without default settings")
		}
		h.settings = defaults
	}

	h.storage = newDenseStorage(h.settings)
	h.zeros = h.settings.registerCount
}

func (h *Hll) getHasher() Hasher {
	if h.hasher == nil {
		return DefaultHasher
	}
	return h.hasher
}

// verify panics if the cached zero register count or the padding bits have
// drifted from the register array.
func (h *Hll) verify() {
	if zeros := h.storage.countZeros(h.settings); zeros != h.zeros {
		panic(fmt.Sprintf("zero register count is %d but %d registers are zero", h.zeros, zeros))
	}
	if !h.storage.paddingClear(h.settings) {
		panic("non-zero padding bits in register array")
	}
}
