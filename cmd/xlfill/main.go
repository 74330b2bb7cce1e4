// Package main provides the CLI entry point for xlfill.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/adnsv/xlfill/book"
	"github.com/adnsv/xlfill/xl"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	outputPath string
	dataPath   string
	sheetName  string
	mode       string
	dumpDir    string
	debug      bool
)

// dataFile is the layout of the YAML or JSON input. Row keys are row
// numbers.
type dataFile struct {
	Formats    map[string]int            `yaml:"formats"`
	Calculated *calculatedConfig         `yaml:"calculated"`
	Table      map[string][]any          `yaml:"table"`
	Rows       map[string]map[string]any `yaml:"rows"`
}

type calculatedConfig struct {
	HeaderRow int `yaml:"header_row"`
	Columns   []struct {
		Index   int `yaml:"index"`
		Header  any `yaml:"header"`
		Content any `yaml:"content"`
	} `yaml:"columns"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "xlfill [template.xlsx]",
		Short: "Fill a worksheet of an xlsx template with data",
		Long: `xlfill writes rows from a YAML or JSON data file into one worksheet
of an xlsx template. Without a template a blank workbook is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: run,
	}

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output xlsx path (required)")
	rootCmd.Flags().StringVarP(&dataPath, "data", "d", "", "YAML or JSON data file (required)")
	rootCmd.Flags().StringVar(&sheetName, "sheet", "", "Worksheet name (default: first sheet)")
	rootCmd.Flags().StringVar(&mode, "mode", "merge", "Template rows: merge, append, or replace")
	rootCmd.Flags().StringVar(&dumpDir, "dump", "", "Also write the package parts to this directory")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.MarkFlagRequired("output")
	rootCmd.MarkFlagRequired("data")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	m, err := book.ParseMode(mode)
	if err != nil {
		return err
	}
	opts := book.Options{
		Sheet:   sheetName,
		Mode:    m,
		AppName: "xlfill",
		Logger:  log,
	}

	data, err := loadData(dataPath)
	if err != nil {
		return err
	}

	var b *book.Book
	if len(args) == 0 {
		b, err = book.Blank(opts)
	} else {
		if _, statErr := os.Stat(args[0]); os.IsNotExist(statErr) {
			return fmt.Errorf("file not found: %s", args[0])
		}
		b, err = book.Open(args[0], opts)
	}
	if err != nil {
		return fmt.Errorf("opening template failed: %w", err)
	}

	if err := fill(b.Sheet(), data); err != nil {
		return err
	}
	if err := b.ResolveFormats(); err != nil {
		return fmt.Errorf("resolving formats failed: %w", err)
	}

	changed, err := b.Changed()
	if err != nil {
		return err
	}

	if dumpDir != "" {
		if err := b.Write(book.NewDirStorage(dumpDir)); err != nil {
			return fmt.Errorf("dump failed: %w", err)
		}
	}
	if err := b.Save(outputPath); err != nil {
		return fmt.Errorf("writing %s failed: %w", outputPath, err)
	}

	log.WithFields(logrus.Fields{
		"sheet":   b.SheetName(),
		"output":  outputPath,
		"rows":    len(b.Sheet().RowNumbers()),
		"changed": changed,
	}).Info("workbook written")
	return nil
}

func loadData(fn string) (*dataFile, error) {
	raw, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	var data dataFile
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing %s failed: %w", fn, err)
	}
	return &data, nil
}

func fill(ws *xl.Worksheet, data *dataFile) error {
	if data.Formats != nil {
		ws.Formats().SetUsed(data.Formats)
	}

	if len(data.Table) > 0 {
		table := make(map[int][]any, len(data.Table))
		for key, values := range data.Table {
			n, err := rowNumber(key)
			if err != nil {
				return err
			}
			table[n] = values
		}

		var calc *xl.Calculated
		if data.Calculated != nil {
			calc = &xl.Calculated{HeaderRow: data.Calculated.HeaderRow}
			for _, c := range data.Calculated.Columns {
				calc.Columns = append(calc.Columns, xl.CalculatedColumn{
					Index:   c.Index,
					Header:  c.Header,
					Content: c.Content,
				})
			}
		}
		if err := ws.AddRows(table, calc); err != nil {
			return err
		}
	}

	for key, cells := range data.Rows {
		n, err := rowNumber(key)
		if err != nil {
			return err
		}
		if err := ws.AddRow(n, cells); err != nil {
			return err
		}
	}
	return nil
}

// rowNumber parses a row key; JSON object keys are always strings.
func rowNumber(key string) (int, error) {
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("invalid row key %q", key)
	}
	return n, nil
}
