// Package lift drives the full pipeline of spec.md §2: token stream →
// line stream → program → write summaries → function discovery →
// liveness → annotated emission. It is the single entrypoint the CLI
// (cmd/asm86lift) calls; the heavy lifting lives in pkg/lex, pkg/parse,
// pkg/program, pkg/writes, pkg/funcs, pkg/live and pkg/emit, each
// implementing one stage as a pure function of its input.
package lift

import (
	"github.com/oisee/asm86lift/pkg/diag"
	"github.com/oisee/asm86lift/pkg/emit"
	"github.com/oisee/asm86lift/pkg/funcs"
	"github.com/oisee/asm86lift/pkg/inst"
	"github.com/oisee/asm86lift/pkg/lex"
	"github.com/oisee/asm86lift/pkg/live"
	"github.com/oisee/asm86lift/pkg/parse"
	"github.com/oisee/asm86lift/pkg/program"
	"github.com/oisee/asm86lift/pkg/writes"
)

// Run executes the whole analysis pipeline over src and returns the
// rendered pseudo-C transcription. sink receives every diagnostic of
// §7's local/recoverable classes; it may be nil to discard them.
func Run(src []byte, sink *diag.Sink) string {
	toks := lex.Tokenize(src)
	lines := parse.Lines(toks)
	p := program.Build(lines)

	reportDiagnostics(p, sink)

	ws := writes.Analyze(p)
	fr := funcs.Discover(p, ws)
	lv := live.Analyze(p, ws, fr)

	return emit.Render(p, ws, fr, lv)
}

// reportDiagnostics surfaces §7's two local/recoverable error classes —
// unknown mnemonics and garbage operands — passing every occurrence to the
// sink, across both the instruction stream and the hoisted constants. The
// sink logs an unknown mnemonic only once per name.
func reportDiagnostics(p *program.Program, sink *diag.Sink) {
	if sink == nil {
		return
	}
	for _, in := range p.Instructions {
		if _, _, unknown := inst.IO(in); unknown {
			sink.UnknownMnemonic(in.Mnemonic)
		}
		for _, o := range in.Operands {
			o := o
			inst.WalkGarbage(&o, sink.GarbageOperand)
		}
	}
	for _, c := range p.Constants {
		v := c.Value
		inst.WalkGarbage(&v, sink.GarbageOperand)
	}
}
