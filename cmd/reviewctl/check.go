// cmd/reviewctl/check.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/rules"
	"github.com/javajoker/verdict-cms/internal/utils"
)

// errRejected makes the process exit non-zero without printing twice.
var errRejected = errors.New("product rejected")

var (
	checkPublish bool
	checkOutput  string
)

var checkCmd = &cobra.Command{
	Use:   "check <product.json>",
	Short: "Run the save rules over a product document",
	Long: `Runs classification, conflict detection, the legal-defense gate and the
prohibited-terms scan over a product read from a JSON file ("-" for stdin).
Category rules apply when the document embeds its category.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkPublish, "publish", false, "Check as if the product were being published")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "text", "Output format: text or json")
}

func runCheck(cmd *cobra.Command, args []string) error {
	product, err := readProduct(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	if checkPublish {
		product.Status = models.ProductStatusPublished
	}

	tables, err := loadTables()
	if err != nil {
		return err
	}

	pipeline := rules.NewPipeline(tables, nil, logrus.StandardLogger())
	outcome, err := pipeline.Run(cmd.Context(), rules.SaveContext{}, product)

	rej, isRejection := rules.AsRejection(err)
	if err != nil && !isRejection {
		return err
	}

	out := cmd.OutOrStdout()
	if checkOutput == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if isRejection {
			if err := enc.Encode(map[string]interface{}{"accepted": false, "rejection": rej}); err != nil {
				return err
			}
			return errRejected
		}
		return enc.Encode(map[string]interface{}{"accepted": true, "product": outcome.Product, "conflicts": outcome.Conflicts})
	}

	if isRejection {
		fmt.Fprintf(out, "REJECTED at %s\n\n%s\n", rej.Stage, rej.Message)
		return errRejected
	}

	p := outcome.Product
	fmt.Fprintf(out, "ACCEPTED status=%s verdict=%s\n", p.Status, p.Verdict)
	for _, c := range outcome.Conflicts.Conflicts {
		fmt.Fprintf(out, "  %s %s: %s\n", c.Severity, c.Code, c.Message)
	}
	for _, d := range p.Detections {
		if d.DisplayMode != "" {
			fmt.Fprintf(out, "  %s -> %s\n", d.Compound, d.DisplayMode)
		}
	}
	return nil
}

func readProduct(stdin io.Reader, path string) (*models.Product, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read product: %w", err)
	}

	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse product: %w", err)
	}
	for i := range p.Detections {
		if err := utils.ValidateStruct(&p.Detections[i]); err != nil {
			return nil, fmt.Errorf("invalid detection %d: %w", i, err)
		}
	}
	return &p, nil
}

var lintCmd = &cobra.Command{
	Use:   "lint <text>...",
	Short: "Scan text for prohibited terms",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := loadTables()
		if err != nil {
			return err
		}

		terms := rules.NewLinter(tables).Scan(strings.Join(args, " "))
		if len(terms) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "clean")
			return nil
		}
		for _, t := range terms {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return errRejected
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the effective rule tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := loadTables()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(tables)
	},
}
