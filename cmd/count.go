package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	hll "github.com/segmentio/go-hll-dense"
)

const (
	defaultLog2m    = 14
	defaultRegwidth = 6

	// maxLineBytes bounds the length of a single input line.
	maxLineBytes = 1 << 20
)

// CountCommand estimates the distinct lines of its inputs.
type CountCommand struct {
	Log2m    int
	Regwidth int
	Hasher   string

	// Compare names a file whose lines are counted into a second Hll and
	// compared against the input.
	Compare string

	// Merge lists files holding serialized Hlls that are unioned into the
	// count.
	Merge []string

	// Save is the path the resulting Hll is written to.
	Save string

	Verbose bool

	// Paths are the input files.  Standard input is read when empty.
	Paths []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	logger *zap.Logger
}

// NewCountCommand returns a CountCommand with default settings.
func NewCountCommand(stdin io.Reader, stdout, stderr io.Writer) *CountCommand {
	return &CountCommand{
		Log2m:    defaultLog2m,
		Regwidth: defaultRegwidth,
		Hasher:   "sip",
		Stdin:    stdin,
		Stdout:   stdout,
		Stderr:   stderr,
	}
}

// Run counts the inputs and prints the result.
func (c *CountCommand) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = newLogger(c.Stderr, c.Verbose)
	defer func() { _ = c.logger.Sync() }()

	settings := hll.Settings{Log2m: c.Log2m, Regwidth: c.Regwidth}
	hasher, err := hasherByName(c.Hasher)
	if err != nil {
		return err
	}

	start := time.Now()

	counted, err := c.count(ctx, settings, hasher, c.Paths)
	if err != nil {
		return err
	}

	for _, path := range c.Merge {
		other, err := readHll(path)
		if err != nil {
			return err
		}
		if err := counted.Union(other); err != nil {
			return errors.Wrapf(err, "merging %s", path)
		}
		c.logger.Debug("merged", zap.String("path", path), zap.Int("zeroRegisters", other.ZeroRegisters()))
	}

	c.logger.Debug("counted",
		zap.Uint64("insertions", counted.Insertions()),
		zap.Int("zeroRegisters", counted.ZeroRegisters()),
		zap.Duration("elapsed", time.Since(start)),
	)

	if c.Compare == "" {
		fmt.Fprintf(c.Stdout, "%.0f\n", counted.Estimate())
	} else {
		compared, err := c.count(ctx, settings, hasher, []string{c.Compare})
		if err != nil {
			return err
		}
		if err := c.printComparison(counted, compared); err != nil {
			return err
		}
	}

	if c.Save != "" {
		if err := writeHll(c.Save, &counted); err != nil {
			return err
		}
		c.logger.Info("saved", zap.String("path", c.Save), zap.Int("bytes", counted.SizeInBytes()))
	}

	return nil
}

// count inserts every line of paths, or of stdin when paths is empty.
func (c *CountCommand) count(ctx context.Context, settings hll.Settings, hasher hll.Hasher, paths []string) (hll.Hll, error) {
	h, err := hll.NewHll(settings)
	if err != nil {
		return hll.Hll{}, err
	}
	h.SetHasher(hasher)

	if len(paths) == 0 {
		n, err := insertLines(ctx, &h, c.Stdin)
		if err != nil {
			return hll.Hll{}, errors.Wrap(err, "reading stdin")
		}
		c.logger.Debug("read stdin", zap.Int("lines", n))
		return h, nil
	}

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return hll.Hll{}, errors.Wrap(err, "opening input")
		}
		n, err := insertLines(ctx, &h, f)
		f.Close()
		if err != nil {
			return hll.Hll{}, errors.Wrapf(err, "reading %s", path)
		}
		c.logger.Debug("read file", zap.String("path", path), zap.Int("lines", n))
	}

	return h, nil
}

func (c *CountCommand) printComparison(left, right hll.Hll) error {
	cardinalities, err := hll.EstimateUnionCardinalities(left, right)
	if err != nil {
		return err
	}

	w := c.Stdout
	fmt.Fprintf(w, "left\t%.0f\n", cardinalities.Left)
	fmt.Fprintf(w, "right\t%.0f\n", cardinalities.Right)
	fmt.Fprintf(w, "union\t%.0f\n", cardinalities.Union)
	fmt.Fprintf(w, "intersection\t%.0f\n", cardinalities.Intersection())
	fmt.Fprintf(w, "left_only\t%.0f\n", cardinalities.LeftDifference())
	fmt.Fprintf(w, "right_only\t%.0f\n", cardinalities.RightDifference())
	fmt.Fprintf(w, "jaccard\t%.4f\n", cardinalities.Jaccard())
	return nil
}

// insertLines adds every line of r to h and returns the number of lines read.
func insertLines(ctx context.Context, h *hll.Hll, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	n := 0
	for scanner.Scan() {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		h.Insert(scanner.Bytes())
		n++
	}
	return n, scanner.Err()
}

func hasherByName(name string) (hll.Hasher, error) {
	switch name {
	case "sip", "":
		return hll.DefaultHasher, nil
	case "xx":
		return hll.XXHasher{}, nil
	default:
		return nil, errors.Errorf("unknown hasher %q, expected sip or xx", name)
	}
}

func readHll(path string) (hll.Hll, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hll.Hll{}, errors.Wrap(err, "reading saved Hll")
	}

	var h hll.Hll
	if filepath.Ext(path) == ".json" {
		err = h.UnmarshalJSON(data)
	} else {
		err = h.UnmarshalBinary(data)
	}
	if err != nil {
		return hll.Hll{}, errors.Wrapf(err, "decoding %s", path)
	}
	return h, nil
}

func writeHll(path string, h *hll.Hll) error {
	var data []byte
	var err error
	if filepath.Ext(path) == ".json" {
		data, err = h.MarshalJSON()
	} else {
		data, err = h.MarshalBinary()
	}
	if err != nil {
		return errors.Wrap(err, "encoding Hll")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "writing Hll")
}

// newLogger returns a console logger writing to w.  Debug messages are only
// emitted when verbose is set.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), level)
	return zap.New(core).Named("hllcount")
}
