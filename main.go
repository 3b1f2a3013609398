// Package main implements the command line VGM instrument ripper.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/log"

	"github.com/FluffyKn1ght/mdfmvgmrip/export"
	"github.com/FluffyKn1ght/mdfmvgmrip/rip"
	"github.com/FluffyKn1ght/mdfmvgmrip/vgm"
)

type options struct {
	Input string

	InstOut      string
	MIDIOut      string
	DataOut      string
	WAVRate      int
	DumpCommands bool

	MergeRetriggers bool
	Debug           bool
	Quiet           bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			usageErr.showUsage()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	logger := createLogger(opts.Debug, opts.Quiet)
	if err := run(logger, opts); err != nil {
		logger.Error("Rip failed", log.Err(err))
		os.Exit(1)
	}
}

func createLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	}
	if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// usageError marks a command line mistake that should show the flag help.
type usageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *usageError) Error() string {
	return e.msg
}

func (e *usageError) showUsage() {
	if e.msg != "" {
		fmt.Fprintln(os.Stderr, e.msg)
	}
	fmt.Fprintf(os.Stderr, "usage: mdfmvgmrip [options] <file.vgm|file.vgz>\n\n")
	e.flags.PrintDefaults()
	fmt.Fprintln(os.Stderr)
}

func parseFlags() (options, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options

	flags.StringVar(&opts.InstOut, "fm-inst-out", "", "name of the FM instrument JSON file to write")
	flags.StringVar(&opts.MIDIOut, "midi-out", "", "name of the MIDI note data file to write")
	flags.StringVar(&opts.DataOut, "data-out", "", "name of the folder to save data blocks to (usually samples)")
	flags.IntVar(&opts.WAVRate, "wav-rate", 0, "sample rate for data block WAVs (0 = estimate from the stream)")
	flags.BoolVar(&opts.DumpCommands, "dump-commands", false, "save all commands to a text listing next to the input")
	flags.BoolVar(&opts.MergeRetriggers, "merge-retriggers", false, "treat overlapping key-on as note continuation instead of splitting")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || len(args) == 0 {
		return opts, &usageError{flags: flags}
	}
	opts.Input = args[0]

	if opts.InstOut == "" && opts.MIDIOut == "" && opts.DataOut == "" && !opts.DumpCommands {
		return opts, &usageError{flags: flags, msg: "no output selected, pass at least one output flag"}
	}
	return opts, nil
}

func run(logger *log.Logger, opts options) error {
	f, err := vgm.Load(opts.Input)
	if err != nil {
		return err
	}
	if !f.IsGenesis() {
		return fmt.Errorf("%s: not a Genesis stream, needs both YM2612 and SN76489 clocks", opts.Input)
	}

	logger.Info("Loaded stream",
		log.String("file", opts.Input),
		log.String("version", fmt.Sprintf("%X.%02X", f.Version>>8, f.Version&0xFF)),
		log.Int("fm_clock", int(f.ClockYM2612)),
		log.Int("psg_clock", int(f.ClockSN76489)))
	if f.GD3 != nil && f.GD3.TrackName != "" {
		logger.Info("Track",
			log.String("title", f.GD3.TrackName),
			log.String("game", f.GD3.GameName),
			log.String("author", f.GD3.Author))
	}

	if opts.DumpCommands {
		if err := dumpCommands(opts.Input, f); err != nil {
			// The interpreter below reports the same stream fault with
			// more context, so a failed listing is not fatal on its own.
			logger.Warn("Command listing incomplete", log.Err(err))
		}
	}

	ripper := rip.New(rip.Config{
		FMClock:         int(f.ClockYM2612),
		PSGClock:        int(f.ClockSN76489),
		MergeRetriggers: opts.MergeRetriggers,
		Logger:          logger,
	})
	res, ripErr := ripper.Run(f.Decoder())

	logger.Info("Rip finished",
		log.Int("commands", res.Commands),
		log.Int("instruments", len(res.Instruments)),
		log.Int("notes", len(res.Notes)),
		log.Int("data_blocks", len(res.Blocks)),
		log.String("length", fmt.Sprintf("%.2fs", float64(res.TotalTicks)/float64(res.TickRate))))

	if err := writeOutputs(logger, opts, res); err != nil {
		return err
	}

	if ripErr != nil {
		return fmt.Errorf("stream aborted early, results are partial: %w", ripErr)
	}
	return nil
}

func writeOutputs(logger *log.Logger, opts options, res *rip.Result) error {
	if opts.InstOut != "" {
		if err := writeInstruments(opts.InstOut, res); err != nil {
			return err
		}
		logger.Info("Saved FM instruments", log.String("file", opts.InstOut))
	}

	if opts.MIDIOut != "" {
		if err := writeMIDI(opts.MIDIOut, res); err != nil {
			return err
		}
		logger.Info("Saved MIDI note data", log.String("file", opts.MIDIOut))
	}

	if opts.DataOut != "" {
		if len(res.Blocks) == 0 {
			logger.Info("Stream contains no dumpable data blocks")
		} else if err := export.Blocks(opts.DataOut, res, opts.WAVRate); err != nil {
			return err
		} else {
			logger.Info("Saved data blocks",
				log.String("dir", opts.DataOut),
				log.Int("count", len(res.Blocks)))
		}
	}
	return nil
}

func writeInstruments(path string, res *rip.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Instruments(f, res.Instruments, res.TickRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeMIDI(path string, res *rip.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.MIDI(f, res.Notes, res.TotalTicks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func dumpCommands(input string, f *vgm.File) error {
	out, err := os.Create(input + "-writes.txt")
	if err != nil {
		return err
	}
	if err := export.Commands(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
