// Package cli implements the line-oriented operator menu.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"codeberg.org/mutker/sysrec/internal/errors"
	"codeberg.org/mutker/sysrec/internal/logger"
	"codeberg.org/mutker/sysrec/internal/query"
	"codeberg.org/mutker/sysrec/internal/record"
	"codeberg.org/mutker/sysrec/internal/sampler"
)

const (
	banner      = "Welcome to the sysinfo database!"
	menuPrompt  = "Please select one of the options below by typing the respective number and pressing the 'Enter' key."
	kindPrompt  = "Please select the type of records to view."
	modePrompt  = "Please select how to view the records."
	menuOption  = "%d.    %s\n"
	invalidPick = "Invalid input. Please enter a number in the range 1-%d.\n"
	invalidQuit = "Invalid input. Please enter 'q' to exit to the main menu."
	rangePrompt = "Enter a start and an end datetime (YYYY-MM-DD HH:MM:SS), or 'q' to go back."
	noRecords   = "No records found."
	quitting    = "Quitting Program..."
)

var (
	mainOptions = []string{"Start recording", "Stop recording", "View records", "Live data feed", "Quit Program"}
	kindOptions = []string{"System", "Components", "Disks", "Memory", "Back"}
	modeOptions = []string{"View all records", "View records in a date range", "Back"}
)

// Sender queues commands for the sampling engine.
type Sender interface {
	Send(ctx context.Context, cmd sampler.Command) error
}

// Querier is the read path used by the view records menu.
type Querier interface {
	All(ctx context.Context, kind record.Kind) ([]record.Record, error)
	ByRange(ctx context.Context, kind record.Kind, start, end string) ([]record.Record, error)
}

type Menu struct {
	in      *bufio.Scanner
	out     io.Writer
	control Sender
	queries Querier

	// mode is the last recording command issued from the main menu. The live
	// feed restores it on exit.
	mode sampler.Command
}

func NewMenu(in io.Reader, out io.Writer, control Sender, queries Querier) *Menu {
	return &Menu{
		in:      bufio.NewScanner(in),
		out:     out,
		control: control,
		queries: queries,
		mode:    sampler.Stop,
	}
}

// Run serves the main menu until the operator quits or input ends.
func (m *Menu) Run(ctx context.Context) error {
	m.println(banner)

	for {
		choice, err := m.choose(menuPrompt, mainOptions)
		if err != nil {
			return m.done(err)
		}

		switch choice {
		case 1:
			err = m.record(ctx, sampler.Start, "Starting recording... We will keep recording data for you until you stop recording")
		case 2:
			err = m.record(ctx, sampler.Stop, "Stopping recording...")
		case 3:
			m.println("Viewing records...")
			err = m.viewRecords(ctx)
		case 4:
			err = m.liveFeed(ctx)
		case 5:
			m.println(quitting)
			return nil
		}

		if err != nil {
			return m.done(err)
		}
	}
}

// done maps the end of input to a clean exit.
func (m *Menu) done(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err
}

func (m *Menu) record(ctx context.Context, cmd sampler.Command, msg string) error {
	if err := m.control.Send(ctx, cmd); err != nil {
		return err
	}
	m.mode = cmd
	m.println(msg)

	return nil
}

func (m *Menu) viewRecords(ctx context.Context) error {
	for {
		choice, err := m.choose(kindPrompt, kindOptions)
		if err != nil {
			return err
		}
		if choice == len(kindOptions) {
			return nil
		}

		if err := m.viewKind(ctx, record.Kinds[choice-1]); err != nil {
			return err
		}
	}
}

func (m *Menu) viewKind(ctx context.Context, kind record.Kind) error {
	for {
		choice, err := m.choose(modePrompt, modeOptions)
		if err != nil {
			return err
		}

		switch choice {
		case 1:
			m.show(m.queries.All(ctx, kind))
		case 2:
			if err := m.viewRange(ctx, kind); err != nil {
				return err
			}
		case 3:
			return nil
		}
	}
}

func (m *Menu) viewRange(ctx context.Context, kind record.Kind) error {
	if !kind.Timed() {
		m.println(errors.GetErrorMessage(errors.ErrRangeUnsupported) + ".")
		return nil
	}

	for {
		m.println(rangePrompt)
		line, err := m.readLine()
		if err != nil {
			return err
		}
		if line == "q" {
			return nil
		}

		start, end, err := query.ParseRange(line)
		if err != nil {
			m.printf("%s. %s\n", errors.GetErrorMessage(errors.CodeOf(err)), "Please try again.")
			continue
		}

		m.show(m.queries.ByRange(ctx, kind, start, end))

		return nil
	}
}

// show prints one record per line. Query failures are logged by the query
// service and reported to the operator without leaving the menu.
func (m *Menu) show(rows []record.Record, err error) {
	if err != nil {
		m.println(errors.GetErrorMessage(errors.CodeOf(err)) + ".")
		return
	}

	if len(rows) == 0 {
		m.println(noRecords)
		return
	}

	for _, r := range rows {
		fmt.Fprintln(m.out, r)
	}
}

// liveFeed switches the engine to verbose recording until the operator enters
// 'q', then restores the mode chosen from the main menu.
func (m *Menu) liveFeed(ctx context.Context) (err error) {
	if err := m.control.Send(ctx, sampler.StartVerbose); err != nil {
		return err
	}
	defer func() {
		if restoreErr := m.control.Send(ctx, m.mode); restoreErr != nil && err == nil {
			err = restoreErr
		}
		logger.Debug().Str("mode", m.mode.String()).Msg("Live feed closed")
	}()

	m.println("Starting live data feed...")
	m.println("enter 'q' at any time to return to the main menu")

	for {
		line, err := m.readLine()
		if err != nil {
			return err
		}
		if line == "q" {
			return nil
		}
		m.println(invalidQuit)
	}
}

// choose prints heading and a numbered option list, then reads a selection.
// Invalid input is rejected and the list is shown again.
func (m *Menu) choose(heading string, options []string) (int, error) {
	for {
		m.println(heading)
		for i, opt := range options {
			m.printf(menuOption, i+1, opt)
		}

		line, err := m.readLine()
		if err != nil {
			return 0, err
		}

		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(options) {
			logger.Debug().Str("input", line).Msg("Rejected menu input")
			m.printf(invalidPick, len(options))
			continue
		}

		return n, nil
	}
}

// readLine returns the next trimmed input line, or io.EOF once input ends.
func (m *Menu) readLine() (string, error) {
	if !m.in.Scan() {
		if err := m.in.Err(); err != nil {
			return "", errors.New().Wrap(errors.ErrInput, err)
		}
		return "", io.EOF
	}

	return strings.TrimSpace(m.in.Text()), nil
}

func (m *Menu) println(s string) {
	fmt.Fprintln(m.out, s)
}

func (m *Menu) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}
