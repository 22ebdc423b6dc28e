package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drfirst/go-mme/internal/domain/mme"
)

var (
	calcMeds []string
	calcJSON bool
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Calculate total daily MME for a regimen",
	Long: `Calculates the total daily MME for one or more medications and reports
the overdose risk level with its clinical warnings.

Each --med is opioid:dose[:frequency]; frequency defaults to 1 per day.`,
	Example: `  mmectl calculate --med oxycodone:10:2
  mmectl calculate -m morphine:30:2 -m fentanyl_patch:25 --json`,
	Args: cobra.NoArgs,
	RunE: runCalculate,
}

func init() {
	calculateCmd.Flags().StringArrayVarP(&calcMeds, "med", "m", nil, "medication as opioid:dose[:frequency] (repeatable)")
	calculateCmd.Flags().BoolVar(&calcJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(calculateCmd)
}

func runCalculate(cmd *cobra.Command, _ []string) error {
	if len(calcMeds) == 0 {
		return errors.New("at least one --med is required")
	}

	items := make([]mme.DoseLineItem, 0, len(calcMeds))
	for i, arg := range calcMeds {
		item, err := parseMed(i, arg)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	res, err := mme.NewCalculator(table).ComputeTotal(items)
	if err != nil {
		return err
	}
	if len(res.Skipped) > 0 {
		logger.Warn("skipped unknown opioids", zap.Strings("opioids", res.Skipped))
	}

	if calcJSON {
		return outputJSON(cmd, res)
	}
	return outputCalculation(cmd, res)
}

// parseMed reads opioid:dose[:frequency]
func parseMed(index int, arg string) (mme.DoseLineItem, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || len(parts) > 3 || strings.TrimSpace(parts[0]) == "" {
		return mme.DoseLineItem{}, fmt.Errorf("invalid --med %q: want opioid:dose[:frequency]", arg)
	}

	dose, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return mme.DoseLineItem{}, mme.NewValidationError(index, "dose", mme.ErrInvalidDose)
	}

	freq := 1
	if len(parts) == 3 {
		freq, err = strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return mme.DoseLineItem{}, mme.NewValidationError(index, "frequency", mme.ErrInvalidFrequency)
		}
	}

	return mme.DoseLineItem{
		Opioid:    strings.TrimSpace(parts[0]),
		Dose:      dose,
		Frequency: freq,
	}, nil
}

func outputCalculation(cmd *cobra.Command, res *mme.Result) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEDICATION\tDOSE\tFREQ\tFACTOR\tDAILY MME")
	for _, c := range res.Calculations {
		fmt.Fprintf(w, "%s\t%g\t%d\t%g\t%.2f\n", c.Medication, c.Dose, c.Frequency, c.Factor, c.DailyMME)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cmd.Println()
	cmd.Printf("Total MME:  %.2f\n", res.TotalMME)
	cmd.Printf("Risk level: %s\n", res.RiskLevel)
	if len(res.Skipped) > 0 {
		cmd.Printf("Skipped:    %s\n", strings.Join(res.Skipped, ", "))
	}
	cmd.Println("Warnings:")
	for _, warning := range res.Warnings {
		cmd.Printf("  - %s\n", warning)
	}
	return nil
}

func outputJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
