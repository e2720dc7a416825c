package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/breeze-rmm/pkgreconcile/internal/config"
	"github.com/breeze-rmm/pkgreconcile/internal/logging"
	"github.com/breeze-rmm/pkgreconcile/internal/patterns"
	"github.com/breeze-rmm/pkgreconcile/internal/product"
	"github.com/breeze-rmm/pkgreconcile/internal/productstatus"
	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

var (
	reselect     bool
	writeBack    bool
	requiredList string
	optionalList string
	statusFilter []string
	baseOnly     bool
	licenseLang  string
	acceptLic    bool
	declineLic   bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify the product changes of the pending transaction",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, "classify", nil, func(ctx context.Context, s *session, out io.Writer) error {
			return classify(ctx, s, out)
		})
	},
}

var selectPatternsCmd = &cobra.Command{
	Use:   "select-patterns",
	Short: "Select the default software patterns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		details := map[string]any{"reselect": reselect, "write": writeBack}
		return withSession(cmd, "select-patterns", details, func(ctx context.Context, s *session, out io.Writer) error {
			return selectPatterns(ctx, s, out)
		})
	},
}

var logSelectionCmd = &cobra.Command{
	Use:   "log-selection",
	Short: "Log the resolvables changed by the user or the application",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, "log-selection", nil, func(ctx context.Context, s *session, out io.Writer) error {
			return patterns.LogSelection(ctx, s.resolver, s.log)
		})
	},
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List known products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, "products", nil, func(ctx context.Context, s *session, out io.Writer) error {
			return listProducts(ctx, s, out)
		})
	},
}

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Change the transaction state of a product",
}

var productSelectCmd = &cobra.Command{
	Use:   "select <product>",
	Short: "Select a product for installation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		details := map[string]any{"product": args[0]}
		return withSession(cmd, "product select", details, func(ctx context.Context, s *session, out io.Writer) error {
			return changeProduct(ctx, s, out, args[0], product.Product.Select, "selected")
		})
	},
}

var productRestoreCmd = &cobra.Command{
	Use:   "restore <product>",
	Short: "Restore a product to its state before the transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		details := map[string]any{"product": args[0]}
		return withSession(cmd, "product restore", details, func(ctx context.Context, s *session, out io.Writer) error {
			return changeProduct(ctx, s, out, args[0], product.Product.Restore, "restored")
		})
	},
}

var licenseCmd = &cobra.Command{
	Use:   "license <product>",
	Short: "Show or confirm the license of a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if acceptLic && declineLic {
			return errors.New("--accept and --decline are mutually exclusive")
		}
		return withSession(cmd, "license", map[string]any{"product": args[0]}, func(ctx context.Context, s *session, out io.Writer) error {
			return showLicense(ctx, s, out, args[0])
		})
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a config file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if len(args) == 1 {
			path = args[0]
		}
		return config.SaveTo(config.Default(), path)
	},
}

func init() {
	selectPatternsCmd.Flags().BoolVar(&reselect, "reselect", false, "select patterns again after a resolver reset, including user selections")
	selectPatternsCmd.Flags().BoolVar(&writeBack, "write", false, "write the resulting state back to the snapshot")
	selectPatternsCmd.Flags().StringVar(&requiredList, "required", "", "required patterns (default from config default_patterns)")
	selectPatternsCmd.Flags().StringVar(&optionalList, "optional", "", "optional patterns (default from config optional_default_patterns)")

	productsCmd.Flags().StringSliceVar(&statusFilter, "status", nil, "only list products with one of these statuses")
	productsCmd.Flags().BoolVar(&baseOnly, "base", false, "only list base products available for installation")

	for _, c := range []*cobra.Command{productSelectCmd, productRestoreCmd, licenseCmd} {
		c.Flags().BoolVar(&writeBack, "write", false, "write the resulting state back to the snapshot")
	}
	licenseCmd.Flags().StringVar(&licenseLang, "lang", "", "license language (default from config or locale)")
	licenseCmd.Flags().BoolVar(&acceptLic, "accept", false, "confirm the license")
	licenseCmd.Flags().BoolVar(&declineLic, "decline", false, "withdraw the license confirmation")

	productCmd.AddCommand(productSelectCmd)
	productCmd.AddCommand(productRestoreCmd)

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(selectPatternsCmd)
	rootCmd.AddCommand(logSelectionCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(productCmd)
	rootCmd.AddCommand(licenseCmd)
	rootCmd.AddCommand(initConfigCmd)
}

func withSession(cmd *cobra.Command, command string, details map[string]any, fn func(context.Context, *session, io.Writer) error) error {
	s, err := openSession(command, cmd.ErrOrStderr(), details)
	if err != nil {
		return err
	}
	ctx := logging.NewContext(cmd.Context(), s.log)
	err = fn(ctx, s, cmd.OutOrStdout())
	return s.close(cmd.ErrOrStderr(), err)
}

func classify(ctx context.Context, s *session, out io.Writer) error {
	recs, err := s.resolver.QueryResolvables(ctx, "", resolvable.KindProduct)
	if err != nil {
		return err
	}

	res := productstatus.Resolve(recs)
	res.Publish(s.reporter)
	logging.FromContext(ctx).Info("products classified",
		"new", len(res.New),
		"kept", len(res.Kept),
		"removed", len(res.Removed),
		"updated", len(res.Updated),
		"invalid", len(res.Invalid))

	if len(res.Summary) == 0 {
		fmt.Fprintln(out, "No products will be updated or removed.")
	}
	for _, line := range res.Summary {
		fmt.Fprintln(out, line)
	}
	return res.Err()
}

func selectPatterns(ctx context.Context, s *session, out io.Writer) error {
	required := patterns.ParseList(s.cfg.DefaultPatterns)
	if requiredList != "" {
		required = patterns.ParseList(requiredList)
	}
	optional := patterns.ParseList(s.cfg.OptionalDefaultPatterns)
	if optionalList != "" {
		optional = patterns.ParseList(optionalList)
	}

	c := patterns.NewController(s.resolver, s.reporter).WithLogger(s.log)
	rep, err := c.Select(ctx, required, optional, reselect)

	fmt.Fprintf(out, "installed: %d, reinstated: %d, skipped: %d\n", rep.Installed, rep.Reinstated, rep.Skipped)
	if len(rep.Failed) > 0 {
		fmt.Fprintf(out, "failed: %s\n", strings.Join(rep.Failed, " "))
	}
	if len(rep.MissingMandatory) > 0 {
		fmt.Fprintf(out, "missing: %s\n", strings.Join(rep.MissingMandatory, " "))
	}
	if len(rep.MissingOptional) > 0 {
		fmt.Fprintf(out, "missing optional: %s\n", strings.Join(rep.MissingOptional, " "))
	}

	// Failures are partial; what was applied is still written.
	if writeBack {
		if werr := s.save(); werr != nil {
			return errors.Join(err, werr)
		}
	}
	return err
}

func listProducts(ctx context.Context, s *session, out io.Writer) error {
	var (
		products []product.Product
		err      error
	)
	switch {
	case baseOnly:
		products, err = s.catalog.AvailableBase(ctx)
	case len(statusFilter) > 0:
		statuses := make([]resolvable.Status, 0, len(statusFilter))
		for _, f := range statusFilter {
			st, perr := resolvable.ParseStatus(f)
			if perr != nil {
				return perr
			}
			statuses = append(statuses, st)
		}
		products, err = s.catalog.WithStatus(ctx, statuses...)
	default:
		products, err = s.catalog.All(ctx)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tARCH\tSTATUS\tBY\tLABEL")
	for _, p := range products {
		st, err := p.Status(ctx)
		if err != nil {
			return err
		}
		by, err := p.TransactBy(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.Name, p.Version, p.Arch, st, by, p.Label())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	base, ok, err := s.catalog.SelectedBase(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(out, "\nSelected base product: %s\n", base.Label())
	}
	return nil
}

func findProduct(ctx context.Context, s *session, name string) (product.Product, error) {
	all, err := s.catalog.All(ctx)
	if err != nil {
		return product.Product{}, err
	}
	for _, p := range all {
		if p.Name == name {
			return p, nil
		}
	}
	return product.Product{}, fmt.Errorf("product %s not found", name)
}

func changeProduct(ctx context.Context, s *session, out io.Writer, name string, change func(product.Product, context.Context) error, verb string) error {
	p, err := findProduct(ctx, s, name)
	if err != nil {
		return err
	}
	if err := change(p, ctx); err != nil {
		s.reporter.Error(err.Error())
		return err
	}
	st, err := p.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s, now %s\n", p.Label(), verb, st)
	if writeBack {
		return s.save()
	}
	return nil
}

func showLicense(ctx context.Context, s *session, out io.Writer, name string) error {
	p, err := findProduct(ctx, s, name)
	if err != nil {
		return err
	}

	text, found := p.License(licenseLang)
	switch {
	case !found:
		fmt.Fprintf(out, "No license known for %s.\n", p.Label())
	case text == "":
		fmt.Fprintf(out, "%s has no license to confirm.\n", p.Label())
	default:
		fmt.Fprintln(out, text)
	}

	if !acceptLic && !declineLic {
		if p.LicenseConfirmationRequired() {
			fmt.Fprintf(out, "Confirmation required, confirmed: %v\n", p.LicenseConfirmed())
		}
		return nil
	}

	p.ConfirmLicense(acceptLic)
	s.log.Info("license confirmation changed", "product", p.Name, "confirmed", acceptLic)
	if writeBack {
		return s.save()
	}
	return nil
}
