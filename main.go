package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"goPropertyTax/taxcalc"
)

func init() {
	// Rates and amounts go out as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configFile string
	ratesFile  string
}

// engine returns the engine for the embedded 2025 tables, or for the
// tables in --rates when given.
func (o *rootOptions) engine() (*taxcalc.Engine, error) {
	if o.ratesFile == "" {
		return taxcalc.Default(), nil
	}
	data, err := os.ReadFile(o.ratesFile)
	if err != nil {
		return nil, fmt.Errorf("read rates: %w", err)
	}
	tables, err := taxcalc.LoadTables(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.ratesFile, err)
	}
	return taxcalc.NewEngine(tables), nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "proptax",
		Short: "Korean real-estate tax calculator",
		Long: `Calculates Korean capital gains, gift, acquisition and reconstruction
capital gains tax on the 2025 statutory tables.

Run a calculation directly from the command line, or start the HTTP API
with "proptax serve".`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML settings file layered over the built-in defaults")
	cmd.PersistentFlags().StringVar(&opts.ratesFile, "rates", "", "YAML rate tables to use instead of the embedded 2025 tables")

	cmd.AddCommand(
		newServeCmd(opts),
		newCapitalGainsCmd(opts),
		newGiftCmd(opts),
		newAcquisitionCmd(opts),
		newReconstructionCmd(opts),
		newRatesCmd(opts),
	)
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := LoadSettings(v, opts.configFile)
			if err != nil {
				return err
			}
			lggr, err := settings.NewLogger()
			if err != nil {
				return err
			}
			defer func() { _ = lggr.Sync() }()

			engine, err := opts.engine()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return NewWebServer(settings, engine, lggr).Start(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from config)")
	cmd.Flags().String("log-level", "", "debug, info, warn or error (default from config)")
	cmd.Flags().Bool("log-json", false, "log JSON lines instead of console text")
	_ = v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("log_level", cmd.Flags().Lookup("log-level"))
	_ = v.BindPFlag("log_json", cmd.Flags().Lookup("log-json"))
	return cmd
}

// outputOptions control where a calculation's result goes.
type outputOptions struct {
	json    bool
	pdfFile string
}

// runCalculation runs calc and writes the breakdown, or the raw result with
// --json, to the command's output. --pdf additionally writes the report.
func runCalculation(cmd *cobra.Command, opts *rootOptions, out *outputOptions, calc calculation) error {
	engine, err := opts.engine()
	if err != nil {
		return err
	}
	result, b, err := calc.Run(engine)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if out.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		PrintBreakdown(w, b)
	}

	if out.pdfFile != "" {
		pdfBytes, reportID, err := GenerateCalculationPDF(b, time.Now())
		if err != nil {
			return fmt.Errorf("generate PDF: %w", err)
		}
		if err := os.WriteFile(out.pdfFile, pdfBytes, 0o644); err != nil {
			return fmt.Errorf("write PDF: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report %s written to %s\n", reportID, out.pdfFile)
	}
	return nil
}

func addOutputFlags(cmd *cobra.Command, out *outputOptions) {
	cmd.Flags().BoolVar(&out.json, "json", false, "print the full result as JSON")
	cmd.Flags().StringVar(&out.pdfFile, "pdf", "", "also write a PDF report to this file")
}

func newCapitalGainsCmd(opts *rootOptions) *cobra.Command {
	calc := &capitalGainsCalc{in: defaultCapitalGainsInput()}
	out := &outputOptions{}
	in := &calc.in

	cmd := &cobra.Command{
		Use:     string(kindCapitalGains),
		Aliases: []string{"cgt"},
		Short:   "Capital gains tax (양도소득세) on a property sale",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalculation(cmd, opts, out, calc)
		},
	}

	f := cmd.Flags()
	f.StringVar((*string)(&in.Property), "property", string(in.Property), "general, non-business-land or a form label")
	f.Int64Var(&in.SalePrice, "sale-price", 0, "sale price in won")
	f.Int64Var(&in.AcquisitionPrice, "acquisition-price", 0, "acquisition price plus expenses in won")
	f.IntVar(&in.HoldingYears, "holding-years", 0, "completed years held")
	f.IntVar(&in.ResidenceYears, "residence-years", 0, "completed years lived in")
	f.StringVar((*string)(&in.DeductionTable), "table", string(in.DeductionTable), "holding deduction table: table-1 or table-2")
	f.StringVar((*string)(&in.Surcharge), "surcharge", string(in.Surcharge), "none, surcharge-20 or surcharge-30")
	f.BoolVar(&in.Exempt, "exempt", false, "claim the one-house exemption")
	f.BoolVar(&in.Joint, "joint", false, "jointly owned 50:50")
	addOutputFlags(cmd, out)
	return cmd
}

func newGiftCmd(opts *rootOptions) *cobra.Command {
	calc := &giftCalc{in: defaultGiftInput()}
	out := &outputOptions{}
	in := &calc.in

	cmd := &cobra.Command{
		Use:     "gift",
		Aliases: []string{string(kindGift)},
		Short:   "Gift tax (증여세)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalculation(cmd, opts, out, calc)
		},
	}

	f := cmd.Flags()
	f.StringVar((*string)(&in.Relationship), "relationship", string(in.Relationship),
		"spouse, adult-descendant, minor-descendant, ascendant or other-relative")
	f.Int64Var(&in.GiftValue, "value", 0, "value of this gift in won")
	f.Int64Var(&in.PriorGifts, "prior-gifts", 0, "gifts from the same donor in the last 10 years")
	f.Int64Var(&in.ExemptAmount, "exempt-amount", 0, "non-taxable amount")
	f.Int64Var(&in.ExcludedAmount, "excluded-amount", 0, "amount excluded from the taxable value")
	f.Int64Var(&in.AssumedDebt, "debt", 0, "debt assumed by the recipient")
	f.Int64Var(&in.PriorTaxCredit, "prior-tax", 0, "gift tax already paid on the prior gifts")
	addOutputFlags(cmd, out)
	return cmd
}

func newAcquisitionCmd(opts *rootOptions) *cobra.Command {
	calc := &acquisitionCalc{in: defaultAcquisitionInput()}
	out := &outputOptions{}
	in := &calc.in
	houses := in.Houses.String()

	cmd := &cobra.Command{
		Use:   string(kindAcquisition),
		Short: "Acquisition tax (취득세) with agriculture and education surtaxes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Houses = taxcalc.ParseHousingCount(houses)
			return runCalculation(cmd, opts, out, calc)
		},
	}

	f := cmd.Flags()
	f.StringVar((*string)(&in.Property), "property", string(in.Property),
		"national-housing, housing, general-building-land or farmland")
	f.StringVar((*string)(&in.Cause), "cause", string(in.Cause), "purchase, new-construction, inheritance or gift")
	f.StringVar(&houses, "houses", houses, "houses held after acquiring, 1 to 4 (4 means 4 or more)")
	f.BoolVar(&in.Regulated, "regulated", in.Regulated, "property is in a regulated area")
	f.Int64Var(&in.Price, "price", 0, "acquisition price in won")
	f.BoolVar(&in.AssessedOver300M, "assessed-over-300m", false, "assessed value is 300M won or more (gifts)")
	f.BoolVar(&in.SoleHouseInheritance, "sole-house-inheritance", false, "inheriting the household's only house")
	addOutputFlags(cmd, out)
	return cmd
}

func newReconstructionCmd(opts *rootOptions) *cobra.Command {
	calc := &reconstructionCalc{in: defaultReconstructionInput()}
	out := &outputOptions{}
	in := &calc.in

	cmd := &cobra.Command{
		Use:   string(kindReconstruction),
		Short: "Capital gains tax on a reconstruction new build with a settlement payment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalculation(cmd, opts, out, calc)
		},
	}

	f := cmd.Flags()
	f.Int64Var(&in.SalePrice, "sale-price", 0, "sale price of the new build in won")
	f.Int64Var(&in.NewBuildExpenses, "expenses", 0, "new build expenses in won")
	f.Int64Var(&in.RightsValue, "rights-value", 0, "rights value assessed at plan approval")
	f.Int64Var(&in.SettlementPayment, "settlement", 0, "settlement payment in won")
	f.Int64Var(&in.OriginalAcquisitionPrice, "original-price", 0, "acquisition price of the original property")
	f.Int64Var(&in.OriginalExpenses, "original-expenses", 0, "expenses on the original property")
	f.StringVar(&in.SaleDate, "sale-date", in.SaleDate, "sale date, YYYY-MM-DD")
	f.StringVar(&in.ApprovalDate, "approval-date", in.ApprovalDate, "management plan approval date, YYYY-MM-DD")
	f.StringVar(&in.AcquisitionDate, "acquisition-date", in.AcquisitionDate, "original acquisition date, YYYY-MM-DD")
	f.BoolVar(&in.Exempt, "exempt", in.Exempt, "claim the one-house exemption")
	f.StringVar((*string)(&in.OriginalTable), "original-table", string(in.OriginalTable), "deduction table for the original share")
	f.IntVar(&in.OriginalResidenceYears, "original-residence-years", 0, "years lived in, original share")
	f.StringVar((*string)(&in.SettlementTable), "settlement-table", string(in.SettlementTable), "deduction table for the settlement share")
	f.IntVar(&in.SettlementResidenceYears, "settlement-residence-years", 0, "years lived in, settlement share")
	f.BoolVar(&in.Joint, "joint", false, "jointly owned 50:50")
	addOutputFlags(cmd, out)
	return cmd
}

func newRatesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Print the rate tables as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(engine.Tables())
		},
	}
}
