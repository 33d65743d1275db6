package hll

import (
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
)

const (
	// minimum and maximum values for the log-base-2 of the number of registers
	// in the HLL
	minimumLog2mParam = 4
	maximumLog2mParam = 18

	// minimum and maximum values for the register width of the HLL
	minimumRegwidthParam = 4
	maximumRegwidthParam = 6

	// wordBits is the width of a single backing word of the register array.
	wordBits = 32
)

// Settings are used to configure the Hll.  Two Hlls can only be merged when
// their Settings are equal.
type Settings struct {
	// Log2m determines the number of registers in the Hll.  The minimum value
	// is 4 and the maximum value is 18.  The number of registers in the Hll
	// will be calculated as 2^Log2m.
	Log2m int

	// Regwidth is the number of bits dedicated to each register value.  The
	// minimum value is 4 and the maximum value is 6.
	Regwidth int
}

var defaultSettings *settings
var defaultSettingsLock sync.RWMutex

var settingsCache map[Settings]*settings
var settingsCacheLock sync.RWMutex

func init() {
	settingsCache = make(map[Settings]*settings)
}

// Defaults installs settings that will be used by the zero value Hll.  It
// recommended to call this function once at initialization time and never
// again.  It will return an error if the provided settings are invalid or if a
// different set of defaults has already been installed.
func Defaults(settings Settings) error {

	s, err := settings.toInternal()
	if err != nil {
		return err
	}

	defaultSettingsLock.Lock()
	defer defaultSettingsLock.Unlock()

	if defaultSettings != nil && s != defaultSettings {
		return errors.New("different default settings have already been installed")
	}

	defaultSettings = s

	return nil
}

// getDefaults will return the default settings or nil if they haven't been
// configured.
func getDefaults() *settings {
	defaultSettingsLock.RLock()
	defer defaultSettingsLock.RUnlock()
	return defaultSettings
}

// settings holds everything derived from a Settings value.  Instances are
// shared through settingsCache and must never be modified once installed.
type settings struct {
	log2m, regwidth int

	// registerCount is 2^log2m.
	registerCount int

	// registersPerWord is the number of whole registers packed into a single
	// 32 bit word.  The top 32 % regwidth bits of every word are unused.
	registersPerWord int

	// wordsCapacity is the number of words required to hold every register.
	wordsCapacity int

	// paddingRegisters is the number of register slots in the final word that
	// do not correspond to a real register.  They always read zero.
	paddingRegisters int

	// registerMask has the bottom-most regwidth bits set.
	registerMask uint32

	// usedBitsMask has the bottom registersPerWord*regwidth bits of a word set.
	usedBitsMask uint32

	// maxRank is the largest value a register can hold.
	maxRank uint8

	// guardMask is or-ed into the shifted hash before counting leading zeros so
	// that the resulting rank never exceeds maxRank.
	guardMask uint64

	// zeroCounterBits is the width of the narrowest unsigned integer able to
	// hold every value in [0, registerCount].
	zeroCounterBits int

	// alpha * m^2 (the constant in the "'raw' HyperLogLog estimator")
	alphaMSquared float64

	// smallEstimatorCutoff is the cutoff value of the estimator for using the
	// "small" range cardinality correction formula
	smallEstimatorCutoff float64

	// largeEstimatorCutoff is the cutoff value of the estimator for using the
	// "large" range cardinality correction formula
	largeEstimatorCutoff float64

	twoToL float64

	// smallCorrections[v-1] is the linear counting estimate m * ln(m/v) for v
	// zero registers.
	smallCorrections []float64
}

// toInternal translates Settings to settings, validating them in the process.
// This function will also compute and populate constant values and tables used
// by the Hll calculations and cache the result.
func (s Settings) toInternal() (*settings, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	settingsCacheLock.RLock()
	cachedSettings := settingsCache[s]
	settingsCacheLock.RUnlock()

	if cachedSettings != nil {
		return cachedSettings, nil
	}

	log2m := s.Log2m
	regwidth := s.Regwidth
	m := 1 << uint(log2m)

	registersPerWord := wordBits / regwidth
	wordsCapacity := divideRoundUp(m, registersPerWord)
	twoToL := twoToL(log2m, regwidth)

	settings := settings{
		log2m:                log2m,
		regwidth:             regwidth,
		registerCount:        m,
		registersPerWord:     registersPerWord,
		wordsCapacity:        wordsCapacity,
		paddingRegisters:     wordsCapacity*registersPerWord - m,
		registerMask:         uint32((1 << uint(regwidth)) - 1),
		usedBitsMask:         uint32((uint64(1) << uint(registersPerWord*regwidth)) - 1),
		maxRank:              maxRank(regwidth),
		guardMask:            guardMask(log2m, regwidth),
		zeroCounterBits:      counterBits(m),
		alphaMSquared:        alphaMSquared(log2m),
		smallEstimatorCutoff: smallEstimatorCutoff(m),
		largeEstimatorCutoff: largeEstimatorCutoff(twoToL),
		twoToL:               twoToL,
		smallCorrections:     smallCorrections(m),
	}

	// install the settings.  if another goroutine installed an equal set in the
	// meantime, keep theirs so that pointer comparison keeps working.
	settingsCacheLock.Lock()
	if existing := settingsCache[s]; existing != nil {
		settingsCacheLock.Unlock()
		return existing, nil
	}
	settingsCache[s] = &settings
	settingsCacheLock.Unlock()

	return &settings, nil
}

// validate ensures that all of the settings in s are within bounds.  It will
// throw an error if any of them are not.
func (s *Settings) validate() error {

	if s.Log2m < minimumLog2mParam {
		return fmt.Errorf("Log2m is too small.  Requires at least %d but got %d", minimumLog2mParam, s.Log2m)
	} else if s.Log2m > maximumLog2mParam {
		return fmt.Errorf("Log2m is too large.  Allows at most %d but got %d", maximumLog2mParam, s.Log2m)
	}

	if s.Regwidth < minimumRegwidthParam {
		return fmt.Errorf("Regwidth is too small.  Requires at least %d but got %d", minimumRegwidthParam, s.Regwidth)
	} else if s.Regwidth > maximumRegwidthParam {
		return fmt.Errorf("Regwidth is too large.  Allows at most %d but got %d", maximumRegwidthParam, s.Regwidth)
	}

	return nil
}

// toExternal translates the internal settings back to their exported version.
func (s *settings) toExternal() Settings {
	return Settings{
		Log2m:    s.log2m,
		Regwidth: s.regwidth,
	}
}

// compatible reports whether registers produced under s and o can be merged.
func (s *settings) compatible(o *settings) bool {
	return s.log2m == o.log2m && s.regwidth == o.regwidth
}

// position returns the word index and in-word bit shift of register regnum.
func (s *settings) position(regnum int) (int, uint) {
	return regnum / s.registersPerWord, uint((regnum % s.registersPerWord) * s.regwidth)
}

// maxRank is the largest value representable in a register of the given width.
func maxRank(regwidth int) uint8 {
	return uint8((1 << uint(regwidth)) - 1)
}

// guardMask calculates the bit that bounds the rank computed from a hash.
//
// Narrow registers (regwidth < 6) cannot represent every possible run of
// leading zeros, so the guard sits maxRank-1 bits below the top of the word:
// at most maxRank-1 leading zeros can be observed, giving a rank of at most
// maxRank.  Six bit registers can represent any run that fits in the 64-log2m
// hash bits left after the index is removed, so the guard is the highest of the
// zero bits shifted in below them.
func guardMask(log2m, regwidth int) uint64 {
	if regwidth < 6 {
		return uint64(1) << uint(64-int(maxRank(regwidth)))
	}
	return uint64(1) << uint(log2m-1)
}

// counterBits returns the width of the narrowest unsigned integer type that can
// hold any value in [0, n].
func counterBits(n int) int {
	switch {
	case n <= math.MaxUint8:
		return 8
	case n <= math.MaxUint16:
		return 16
	default:
		return 32
	}
}

// alphaMSquared calculates the 'alpha-m-squared' constant (gamma times
// registerCount squared where gamma is based on the value of registerCount)
// used by the HyperLogLog algorithm.
func alphaMSquared(log2m int) float64 {

	m := float64(int(1) << uint(log2m))

	switch log2m {
	case 4:
		return 0.673 * m * m
	case 5:
		return 0.697 * m * m
	case 6:
		return 0.709 * m * m
	default:
		return (0.7213 / (1.0 + 1.079/m)) * m * m
	}
}

// smallEstimatorCutoff calculates the "small range correction" formula, in the
// HyperLogLog algorith based on the total number of registers (m)
func smallEstimatorCutoff(m int) float64 {
	return (float64(m) * 5) / 2
}

// largeEstimatorCutoff calculates The cutoff for using the "large range
// correction" formula, from the HyperLogLog algorithm, adapted for 64 bit
// hashes.  See http://research.neustar.biz/2013/01/24/hyperloglog-googles-take-on-engineering-hll.
func largeEstimatorCutoff(twoToL float64) float64 {
	return twoToL / 30.0
}

// twoToL calculates 2 raised to L where L is the "large range correction
// boundary" described at http://research.neustar.biz/2013/01/24/hyperloglog-googles-take-on-engineering-hll.
func twoToL(log2m int, regwidth int) float64 {

	// six bit registers observe every hash bit, so the hash space is the full
	// 64 bits.
	if regwidth >= 6 {
		return math.Pow(2, 64)
	}

	// Since 1 is added to p(w) in the insertion algorithm, only
	// (maxRank - 1) bits are inspected hence the hash space is one power of
	// two smaller.
	pwBits := int(maxRank(regwidth)) - 1
	totalBits := pwBits + log2m

	return math.Pow(2, float64(totalBits))
}

// smallCorrections precomputes the linear counting estimate for every possible
// non-zero number of zero registers.
func smallCorrections(m int) []float64 {
	table := make([]float64, m)
	fm := float64(m)
	for v := 1; v <= m; v++ {
		table[v-1] = fm * math.Log(fm/float64(v))
	}
	return table
}
