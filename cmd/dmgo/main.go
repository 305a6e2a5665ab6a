// Command dmgo runs the emulator core against one of four host backends,
// grounded on valerio-go-jeebie/cmd/jeebie/main.go's urfave/cli flag set,
// extended with a --backend selector in place of the teacher's single
// hardcoded terminal renderer.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/finchwillow/dmgo"
	"github.com/finchwillow/dmgo/backend"
	"github.com/finchwillow/dmgo/backend/ebiten"
	"github.com/finchwillow/dmgo/backend/headless"
	"github.com/finchwillow/dmgo/backend/sdl2"
	"github.com/finchwillow/dmgo/backend/terminal"
	"github.com/finchwillow/dmgo/savestate"

	hebiten "github.com/hajimehoshi/ebiten/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmgo"
	app.Description = "A cycle-accurate Game Boy (DMG) emulator core"
	app.Usage = "dmgo [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Host backend: sdl2, ebiten, terminal, headless",
			Value: "terminal",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Alias for --backend headless",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run before exiting (required for headless)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "boot-rom",
			Usage: "Path to a 256-byte DMG boot ROM image",
		},
		cli.StringFlag{
			Name:  "save-state",
			Usage: "Path to a save-state file to load at startup",
		},
		cli.StringFlag{
			Name:  "save-state-out",
			Usage: "Path to write a save-state file to on exit",
		},
		cli.StringFlag{
			Name:  "mbc-ram-dir",
			Usage: "Directory to persist cartridge battery RAM (.sav file named after the ROM)",
		},
		cli.IntFlag{
			Name:  "sample-rate",
			Usage: "Audio samples pulled from the APU per second (sample-rate/60 per frame); the APU produces 48000 Hz",
			Value: 48000,
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("dmgo exited with an error", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	data, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("reading ROM: %w", err)
	}

	machine, err := dmgo.NewWithROM(data)
	if err != nil {
		return fmt.Errorf("loading cartridge: %w", err)
	}

	if bootPath := c.String("boot-rom"); bootPath != "" {
		boot, err := os.ReadFile(bootPath)
		if err != nil {
			return fmt.Errorf("reading boot ROM: %w", err)
		}
		if err := machine.LoadBootROM(boot); err != nil {
			return err
		}
	}

	ramPath := ""
	if ramDir := c.String("mbc-ram-dir"); ramDir != "" {
		romName := filepath.Base(romPath)
		romName = romName[:len(romName)-len(filepath.Ext(romName))]
		ramPath = filepath.Join(ramDir, romName+".sav")
		if saved, err := os.ReadFile(ramPath); err == nil {
			machine.LoadBatteryRAM(saved)
			slog.Info("loaded battery RAM", "path", ramPath)
		}
	}

	if statePath := c.String("save-state"); statePath != "" {
		saved, err := os.ReadFile(statePath)
		if err != nil {
			return fmt.Errorf("reading save state: %w", err)
		}
		if err := savestate.Load(machine, saved); err != nil {
			return fmt.Errorf("loading save state: %w", err)
		}
		slog.Info("loaded save state", "path", statePath)
	}

	backendName := c.String("backend")
	if c.Bool("headless") {
		backendName = "headless"
	}

	host, err := newBackend(backendName, romPath)
	if err != nil {
		return fmt.Errorf("initializing %s backend: %w", backendName, err)
	}
	defer host.Close()

	frames := c.Int("frames")
	if backendName == "headless" && frames <= 0 {
		return errors.New("headless backend requires --frames with a positive value")
	}

	samplesPerFrame := c.Int("sample-rate") / 60
	if err := runLoop(machine, host, frames, samplesPerFrame); err != nil {
		return err
	}

	if ramPath != "" {
		if err := os.MkdirAll(filepath.Dir(ramPath), 0o755); err != nil {
			return fmt.Errorf("creating battery RAM directory: %w", err)
		}
		f, err := os.Create(ramPath)
		if err != nil {
			return fmt.Errorf("creating battery RAM file: %w", err)
		}
		defer f.Close()
		if err := machine.FlushBatteryRAM(f); err != nil {
			return fmt.Errorf("flushing battery RAM: %w", err)
		}
	}

	if outPath := c.String("save-state-out"); outPath != "" {
		buf, err := savestate.Save(machine)
		if err != nil {
			return fmt.Errorf("encoding save state: %w", err)
		}
		if err := os.WriteFile(outPath, buf, 0o644); err != nil {
			return fmt.Errorf("writing save state: %w", err)
		}
		slog.Info("wrote save state", "path", outPath)
	}

	return nil
}

// newBackend constructs the named host backend. ebiten is handled specially
// by runLoop since ebiten.RunGame owns the host's event loop.
func newBackend(name, title string) (backend.Backend, error) {
	switch name {
	case "sdl2":
		return sdl2.New(title)
	case "ebiten":
		return ebiten.New(title)
	case "terminal":
		return terminal.New()
	case "headless":
		return headless.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want sdl2, ebiten, terminal, headless)", name)
	}
}

// runLoop drives machine against host one frame at a time, until either
// frames (if positive) elapse or the host asks to quit. ebiten is exempt:
// it drives its own loop via ebiten.RunGame, stepping the machine from
// inside Update.
func runLoop(machine *dmgo.Machine, host backend.Backend, frames, samplesPerFrame int) error {
	if eb, ok := host.(*ebiten.Backend); ok {
		return runEbitenLoop(machine, eb, frames, samplesPerFrame)
	}

	for i := 0; frames <= 0 || i < frames; i++ {
		input, quit := host.PollInput()
		if quit {
			break
		}
		machine.LatchInput(input)
		if err := machine.StepFrame(); err != nil {
			return fmt.Errorf("running frame %d: %w", i, err)
		}
		host.BlitFrame(machine.FrameBuffer())
		host.QueueSamples(machine.APU.GetSamples(samplesPerFrame))
		if err := host.Present(); err != nil {
			return fmt.Errorf("presenting frame: %w", err)
		}
	}
	return nil
}

// runEbitenLoop steps the machine from inside ebiten's Update callback by
// wrapping Backend in a driver that also owns the Machine; ebiten.RunGame
// blocks until the window closes or the configured frame budget elapses.
func runEbitenLoop(machine *dmgo.Machine, eb *ebiten.Backend, frames, samplesPerFrame int) error {
	driver := &ebitenDriver{machine: machine, backend: eb, frames: frames, samplesPerFrame: samplesPerFrame}
	return hebiten.RunGame(driver)
}

type ebitenDriver struct {
	machine         *dmgo.Machine
	backend         *ebiten.Backend
	frames          int
	count           int
	samplesPerFrame int
}

func (d *ebitenDriver) Update() error {
	if err := d.backend.Update(); err != nil {
		return err
	}
	input, quit := d.backend.PollInput()
	if quit || (d.frames > 0 && d.count >= d.frames) {
		return hebiten.Termination
	}
	d.machine.LatchInput(input)
	if err := d.machine.StepFrame(); err != nil {
		return err
	}
	d.backend.BlitFrame(d.machine.FrameBuffer())
	d.backend.QueueSamples(d.machine.APU.GetSamples(d.samplesPerFrame))
	d.count++
	return nil
}

func (d *ebitenDriver) Draw(screen *hebiten.Image) { d.backend.Draw(screen) }

func (d *ebitenDriver) Layout(outsideWidth, outsideHeight int) (int, int) {
	return d.backend.Layout(outsideWidth, outsideHeight)
}
