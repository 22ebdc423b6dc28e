package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/drfirst/go-mme/internal/domain/mme"
)

var (
	convFrom string
	convTo   string
	convDose float64
	convJSON bool
)

var convertCmd = &cobra.Command{
	Use:     "convert",
	Short:   "Convert a dose from one opioid to another",
	Example: `  mmectl convert --from morphine --to oxycodone --dose 30`,
	Args:    cobra.NoArgs,
	RunE:    runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convFrom, "from", "", "source opioid")
	convertCmd.Flags().StringVar(&convTo, "to", "", "target opioid")
	convertCmd.Flags().Float64Var(&convDose, "dose", 0, "dose of the source opioid")
	convertCmd.Flags().BoolVar(&convJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, _ []string) error {
	if convFrom == "" || convTo == "" {
		return errors.New("--from and --to are required")
	}

	res, err := mme.NewConverter(table).Convert(convFrom, convTo, convDose)
	if err != nil {
		return err
	}

	if convJSON {
		return outputJSON(cmd, res)
	}

	cmd.Printf("%g %s = %.2f MME\n", res.OriginalDose, res.FromOpioid, res.MMEEquivalent)
	cmd.Printf("Converted dose:     %.2f %s\n", res.ConvertedDose, res.ToOpioid)
	cmd.Printf("Safe starting dose: %.2f %s\n", res.SafeStartingDose, res.ToOpioid)
	cmd.Println()
	cmd.Println(res.Warning)
	return nil
}
