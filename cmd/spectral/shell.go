package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/spectral/cmd/spectral/console"
	"github.com/mklimuk/spectral/spectrum"
)

var shellCmd = cli.Command{
	Name:  "shell",
	Usage: "interactive session with one sensor",
	Action: func(c *cli.Context) error {
		return withDevice(c, func(ctx context.Context, dev *spectrum.AS726x) error {
			sh, err := newShell(ctx, dev, console.Writer())
			if err != nil {
				return console.Fail("sensor communication error", err)
			}
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          fmt.Sprintf("%s> ", strings.ToLower(sh.sensor.String())),
				AutoComplete:    shellCompleter,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return console.Fail("terminal error", err)
			}
			defer rl.Close()
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						return nil
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return console.Fail("terminal error", err)
				}
				quit, err := sh.exec(ctx, line)
				if err != nil {
					console.Errorf("%s", err)
				}
				if quit {
					return nil
				}
			}
		})
	},
}

var shellCompleter = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("info"),
	readline.PcItem("temp"),
	readline.PcItem("gain",
		readline.PcItem("1x"), readline.PcItem("3.7x"), readline.PcItem("16x"), readline.PcItem("64x")),
	readline.PcItem("mode",
		readline.PcItem("continuous-bank1"), readline.PcItem("continuous-bank2"),
		readline.PcItem("continuous-all"), readline.PcItem("one-shot")),
	readline.PcItem("inttime"),
	readline.PcItem("ready"),
	readline.PcItem("clear"),
	readline.PcItem("trigger", readline.PcItem("sync"), readline.PcItem("async")),
	readline.PcItem("wait"),
	readline.PcItem("spectrum"),
	readline.PcItem("raw"),
	readline.PcItem("cal"),
	readline.PcItem("led",
		readline.PcItem("indicator", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("bulb", readline.PcItem("on"), readline.PcItem("off"))),
	readline.PcItem("vread"),
	readline.PcItem("vwrite"),
	readline.PcItem("exit"),
)

const shellHelp = `commands:
  info                      sensor setup
  temp                      device temperature
  gain [1x|3.7x|16x|64x]    get or set gain
  mode [name]               get or set measurement mode
  inttime [1-255]           get or set integration time
  ready | clear             data-ready flag
  trigger [sync|async]      start a one-shot conversion
  wait                      wait for data-ready
  spectrum                  one-shot conversion and calibrated values
  raw <channel>             raw value of a channel (index or band name)
  cal <channel>             calibrated value of a channel
  led indicator|bulb on|off switch a LED
  vread <reg>               read a virtual register
  vwrite <reg> <value>      write a virtual register
  exit
`

type shell struct {
	dev    *spectrum.AS726x
	reader spectrum.SpectrumReader
	out    io.Writer
	sensor spectrum.SensorType
}

func newShell(ctx context.Context, dev *spectrum.AS726x, out io.Writer) (*shell, error) {
	sensor, err := dev.SensorType(ctx)
	if err != nil {
		return nil, err
	}
	return &shell{dev: dev, reader: dev, out: out, sensor: sensor}, nil
}

func (s *shell) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

// exec runs one command line and reports whether the session should end.
func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "exit", "quit":
		return true, nil
	case "help":
		s.printf("%s", shellHelp)
	case "info":
		return false, printInfo(ctx, s.out, s.dev)
	case "temp":
		t, err := s.dev.Temperature(ctx)
		if err != nil {
			return false, err
		}
		s.printf("%d°C\n", t)
	case "gain":
		if len(args) > 0 {
			return false, applySetup(ctx, s.dev, args[0], "", false, 0)
		}
		g, err := s.dev.Gain(ctx)
		if err != nil {
			return false, err
		}
		s.printf("%s\n", g)
	case "mode":
		if len(args) > 0 {
			return false, applySetup(ctx, s.dev, "", args[0], false, 0)
		}
		m, err := s.dev.MeasurementMode(ctx)
		if err != nil {
			return false, err
		}
		s.printf("%s\n", m)
	case "inttime":
		if len(args) > 0 {
			v, err := parseByte(args[0])
			if err != nil {
				return false, err
			}
			return false, applySetup(ctx, s.dev, "", "", true, v)
		}
		v, err := s.dev.IntegrationTime(ctx)
		if err != nil {
			return false, err
		}
		s.printf("%d (%s)\n", v, spectrum.IntegrationDuration(v))
	case "ready":
		ready, err := s.dev.DataReady(ctx)
		if err != nil {
			return false, err
		}
		s.printf("%t\n", ready)
	case "clear":
		return false, s.dev.ClearDataReady(ctx)
	case "trigger":
		if len(args) > 0 && args[0] == oneShotSync {
			return false, s.dev.TriggerOneShotSync(ctx)
		}
		return false, s.dev.TriggerOneShotAsync(ctx)
	case "wait":
		return false, s.dev.WaitDataReady(ctx)
	case "spectrum":
		return false, printSpectrum(ctx, s.out, s.sensor, s.reader)
	case "raw", "cal":
		if len(args) == 0 {
			return false, fmt.Errorf("%s: channel required", cmd)
		}
		ch, err := s.channel(args[0])
		if err != nil {
			return false, err
		}
		if cmd == "raw" {
			v, err := s.dev.RawChannel(ctx, ch)
			if err != nil {
				return false, err
			}
			s.printf("%d\n", v)
			return false, nil
		}
		v, err := s.dev.CalibratedChannel(ctx, ch)
		if err != nil {
			return false, err
		}
		s.printf("%.4f\n", v)
	case "led":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			return false, errors.New("usage: led indicator|bulb on|off")
		}
		on := args[1] == "on"
		switch args[0] {
		case "indicator":
			return false, s.dev.SetIndicatorLED(ctx, on)
		case "bulb":
			return false, s.dev.SetBulbLED(ctx, on)
		default:
			return false, fmt.Errorf("unknown led %q", args[0])
		}
	case "vread":
		if len(args) != 1 {
			return false, errors.New("usage: vread <reg>")
		}
		reg, err := parseByte(args[0])
		if err != nil {
			return false, err
		}
		v, err := s.dev.Transport().ReadVirtual(ctx, reg)
		if err != nil {
			return false, err
		}
		s.printf("%#02x: %#02x\n", reg, v)
	case "vwrite":
		if len(args) != 2 {
			return false, errors.New("usage: vwrite <reg> <value>")
		}
		reg, err := parseByte(args[0])
		if err != nil {
			return false, err
		}
		v, err := parseByte(args[1])
		if err != nil {
			return false, err
		}
		return false, s.dev.Transport().WriteVirtual(ctx, reg, v)
	default:
		return false, fmt.Errorf("unknown command %q, try help", cmd)
	}
	return false, nil
}

func (s *shell) channel(arg string) (spectrum.Channel, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		if i < 0 || i >= spectrum.ChannelCount {
			return 0, fmt.Errorf("%w: %d", spectrum.ErrInvalidChannel, i)
		}
		return spectrum.Channel(i), nil
	}
	return spectrum.ChannelByName(s.sensor, arg)
}

// printSpectrum runs one measurement and prints a line per band.
func printSpectrum(ctx context.Context, out io.Writer, sensor spectrum.SensorType, reader spectrum.SpectrumReader) error {
	values, err := reader.GetSpectrum(ctx)
	if err != nil {
		return err
	}
	for i, v := range values {
		_, _ = fmt.Fprintf(out, "%s %.2f\n", channelName(sensor, spectrum.Channel(i)), v)
	}
	return nil
}

func channelName(sensor spectrum.SensorType, ch spectrum.Channel) string {
	bands, err := spectrum.Bands(sensor)
	if err != nil {
		return fmt.Sprintf("ch%d", ch)
	}
	return fmt.Sprintf("%s(%dnm)", bands[ch].Name, bands[ch].Wavelength)
}

func parseByte(arg string) (byte, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q: %w", arg, err)
	}
	return byte(v), nil
}
