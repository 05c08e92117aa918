package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/lumen/internal/config"
	"github.com/muurk/lumen/internal/logging"
	"github.com/muurk/lumen/internal/messages"
	"github.com/muurk/lumen/internal/packet"
	"github.com/muurk/lumen/internal/ui"
)

// packCmd builds a message and prints its wire bytes
func (a *app) packCmd() *cobra.Command {
	var (
		values   string
		target   string
		source   uint32
		sequence uint8
	)

	cmd := &cobra.Command{
		Use:   "pack <Message>",
		Short: "Pack a message into hex",
		Long: `Build a message from the catalogue and print its wire bytes as hex.

Field values are given as a JSON or YAML mapping. Header fields not given
fall back to the flags, then to the config file. The sequence number is
taken from --sequence and is 1 unless given.`,
		Example: `  # Turn every light on
  lumen pack SetPower --values '{"level": 65535}'

  # Set the colour of one device by nickname
  lumen pack SetColor --target kitchen --values '{"hue": 120, "saturation": 1, "brightness": 0.5, "kelvin": 3500}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseValues(values)
			if err != nil {
				return err
			}

			serial, err := a.cfg.ResolveTarget(target)
			if err != nil {
				return err
			}
			if _, ok := fields["target"]; !ok {
				fields["target"] = serial
			}
			if _, ok := fields["source"]; !ok {
				if cmd.Flags().Changed("source") {
					fields["source"] = source
				} else {
					fields["source"] = a.cfg.Source
				}
			}
			if _, ok := fields["sequence"]; !ok {
				fields["sequence"] = sequence
			}

			msg, err := messages.Create(args[0], fields)
			if err != nil {
				return err
			}
			b, err := msg.PackWith(packet.PackOptions{Serial: serial})
			if err != nil {
				return fmt.Errorf("failed to pack %s: %w", args[0], err)
			}

			logging.LogPacket("packed", msg.Schema().Name(), b.Bytes())
			fmt.Fprintln(cmd.OutOrStdout(), b.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&values, "values", "{}", "Field values as a JSON or YAML mapping")
	cmd.Flags().StringVar(&target, "target", "", "Target serial or nickname (default from config)")
	cmd.Flags().Uint32Var(&source, "source", 0, "Source identifier (default from config)")
	cmd.Flags().Uint8Var(&sequence, "sequence", 1, "Sequence number")
	return cmd
}

// parseValues reads a mapping of field values. YAML is a superset of JSON so
// either form is accepted.
func parseValues(text string) (map[string]any, error) {
	fields := make(map[string]any)
	if strings.TrimSpace(text) == "" {
		return fields, nil
	}
	if err := yaml.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("invalid --values: %w", err)
	}
	return fields, nil
}

// unpackCmd decodes hex packets
func (a *app) unpackCmd() *cobra.Command {
	var (
		unknownOK bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "unpack <hex>|-",
		Short: "Unpack hex into message fields",
		Long: `Decode a packet given as hex and print its fields.

The message is chosen from the protocol and packet type in the header. Pass
"-" to read one packet per line from standard input.`,
		Example: `  # Decode one packet
  lumen unpack 240000340200000000000000000000000000000000000301000000000000000002000000

  # Decode packets of unknown type as a generic frame
  lumen unpack --unknown-ok --format compact 2400...

  # Decode a capture, one hex packet per line
  lumen unpack --format yaml - < capture.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = a.cfg.Format
			}
			p := ui.NewPrinter(cmd.OutOrStdout())

			if args[0] != "-" {
				return unpackOne(p, args[0], unknownOK, format)
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				if err := unpackOne(p, line, unknownOK, format); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().BoolVar(&unknownOK, "unknown-ok", false, "Decode unknown packet types as a generic frame")
	cmd.Flags().StringVar(&format, "format", "", "Output format (json, yaml, compact, cbor; default from config)")
	return cmd
}

func unpackOne(p *ui.Printer, text string, unknownOK bool, format string) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(text, "0x"))
	if err != nil {
		return fmt.Errorf("invalid hex packet: %w", err)
	}
	logging.LogRawBytes("unpack input", raw)

	msg, err := messages.Default.Unpack(raw, unknownOK)
	if err != nil {
		return err
	}
	logging.LogPacket("unpacked", msg.Schema().Name(), raw)
	return render(p, msg, raw, format)
}

// render prints an unpacked message in the requested format.
func render(p *ui.Printer, msg *packet.Packet, raw []byte, format string) error {
	switch format {
	case config.FormatJSON:
		data, err := json.MarshalIndent(msg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		p.Println(string(data))

	case config.FormatYAML:
		d, err := msg.DisplayDict()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		p.Print("---\n" + string(data))

	case config.FormatCBOR:
		data, err := msg.MarshalCBOR()
		if err != nil {
			return fmt.Errorf("failed to marshal CBOR: %w", err)
		}
		p.Println(hex.EncodeToString(data))

	case config.FormatCompact:
		entries, err := msg.DisplayEntries()
		if err != nil {
			return err
		}
		proto, pktType, err := messages.ExtractProtocolAndType(raw)
		if err != nil {
			return err
		}
		p.PrintHeader(msg.Schema().Name(), fmt.Sprintf("%s, %d bytes", messages.Key{Protocol: proto, Type: pktType}, len(raw)))
		fields := make([]ui.Field, len(entries))
		for i, e := range entries {
			fields[i] = ui.Field{Group: e.Group, Name: e.Name, Value: displayText(e.Value)}
		}
		p.PrintFields(fields)

	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	return nil
}

func displayText(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// messagesCmd lists the catalogue
func (a *app) messagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages",
		Short: "List known messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := &ui.Table{
				Headers: []string{"PROTOCOL", "TYPE", "NAME", "BYTES", "FIELDS"},
				Right:   map[int]bool{0: true, 1: true, 3: true},
			}
			for _, s := range messages.Default.Schemas() {
				proto, _ := s.Protocol()
				pktType, _ := s.Type()
				table.AddRow(
					fmt.Sprint(proto),
					fmt.Sprint(pktType),
					s.Name(),
					messageSize(s),
					strings.Join(payloadFields(s), ", "),
				)
			}
			return ui.NewPrinter(cmd.OutOrStdout()).PrintTable(table)
		},
	}
}

func messageSize(s *packet.Schema) string {
	n, err := s.FixedSizeBits()
	if err != nil {
		return "dynamic"
	}
	return fmt.Sprint(n / 8)
}

func payloadFields(s *packet.Schema) []string {
	members, _ := s.GroupMembers("payload")
	var out []string
	for _, name := range members {
		if !strings.HasPrefix(name, "reserved") {
			out = append(out, name)
		}
	}
	return out
}

// configCmd manages the config file
func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.path()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := config.NewConfig().SaveTo(path); err != nil {
				return err
			}
			logging.Info("Config file written", zap.String("path", path))
			ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Config file written", map[string]string{"Path": path})
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.path()
			if err != nil {
				return err
			}
			return showConfig(cmd.OutOrStdout(), path, a.cfg)
		},
	}

	nicknameCmd := &cobra.Command{
		Use:   "nickname <serial> <nickname>",
		Short: "Name a device so it can be used as --target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.path()
			if err != nil {
				return err
			}
			a.cfg.SetDeviceNickname(args[0], args[1])
			if err := a.cfg.SaveTo(path); err != nil {
				return err
			}
			ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Device named", map[string]string{
				"Serial":   strings.ToLower(args[0]),
				"Nickname": args[1],
			})
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd, nicknameCmd)
	return cmd
}

func (a *app) path() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.GetConfigPath()
}

func showConfig(w io.Writer, path string, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintf(w, "# %s\n%s", path, data)
	return nil
}
