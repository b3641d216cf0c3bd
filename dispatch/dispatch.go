package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hupe1980/fpdb/fingerprint"
	"github.com/hupe1980/fpdb/model"
)

// Config selects the algorithm and validation mode of a run. It is passed
// explicitly on every call.
type Config struct {
	Algorithm  fingerprint.Algorithm
	TrustInput bool
}

// Line is one raw input line with its 1-based line number.
type Line struct {
	Number int
	Text   string
}

// Batch is a contiguous group of input lines.
type Batch struct {
	Lines []Line
}

// NewBatch builds a Batch from texts, numbering lines from first.
func NewBatch(first int, texts []string) Batch {
	lines := make([]Line, len(texts))
	for i, t := range texts {
		lines[i] = Line{Number: first + i, Text: t}
	}
	return Batch{Lines: lines}
}

// Len returns the number of lines.
func (b Batch) Len() int {
	return len(b.Lines)
}

// Bytes returns the total text size of the batch.
func (b Batch) Bytes() int64 {
	var n int64
	for _, l := range b.Lines {
		n += int64(len(l.Text))
	}
	return n
}

// Dispatcher fingerprints batches with a Generator and a Strategy.
type Dispatcher struct {
	generator fingerprint.Generator
	strategy  Strategy
	logger    *slog.Logger
}

// New returns a Dispatcher. A nil strategy runs sequentially and a nil
// logger discards output.
func New(gen fingerprint.Generator, strategy Strategy, logger *slog.Logger) *Dispatcher {
	if strategy == nil {
		strategy = Sequential{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{generator: gen, strategy: strategy, logger: logger}
}

// Dispatch returns one outcome per line of batch, in input order.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg Config, batch Batch) ([]model.Outcome, error) {
	if !cfg.Algorithm.Valid() {
		return nil, &fingerprint.UnsupportedAlgorithmError{Name: cfg.Algorithm.String()}
	}

	outcomes, err := MapOrdered(ctx, d.strategy, batch.Lines, func(l Line) model.Outcome {
		return d.process(cfg, l)
	})
	if err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		if o.Skipped() {
			d.logger.WarnContext(ctx, "skipping line", "line", o.Line(), "error", o.Reason())
		}
	}
	return outcomes, nil
}

func (d *Dispatcher) process(cfg Config, l Line) model.Outcome {
	tokens := strings.Fields(l.Text)
	if len(tokens) < 2 {
		return model.Skip(l.Number, &MalformedRecordError{Line: l.Number, Tokens: len(tokens)})
	}

	res, err := d.generator.Generate(tokens[0], cfg.Algorithm, cfg.TrustInput)
	if err == nil && len(res.Bits) != d.generator.BitCount()/8 {
		err = fmt.Errorf("generator returned %d bytes, want %d", len(res.Bits), d.generator.BitCount()/8)
	}
	if err != nil {
		return model.Skip(l.Number, &FingerprintComputationError{Line: l.Number, Text: tokens[0], cause: err})
	}

	return model.Accept(model.Record{
		CanonicalText: []byte(res.Canonical),
		Identifier:    []byte(tokens[1]),
		Fingerprint:   res.Bits,
	})
}
